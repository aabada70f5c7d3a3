package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
)

var (
	mdRenderer    goldmark.Markdown
	htmlSanitizer *bluemonday.Policy
)

func init() {
	mdRenderer = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)

	htmlSanitizer = bluemonday.UGCPolicy()
}

// FormatMarkdown renders a finished wait as GitHub-flavored Markdown, suitable
// for posting as a pull request comment.
func FormatMarkdown(r model.CheckResult) string {
	var b strings.Builder
	s := r.Summary

	fmt.Fprintf(&b, "## %s\n\n", markdownTitle(r))

	if r.CommitSHA != "" {
		fmt.Fprintf(&b, "Commit `%s`", shortSHA(r.CommitSHA))
		if r.Duration > 0 {
			fmt.Fprintf(&b, " · waited %s", r.Duration.Round(time.Second))
		}
		if r.RetriesUsed > 0 {
			fmt.Fprintf(&b, " · %d retries", r.RetriesUsed)
		}
		b.WriteString("\n\n")
	}

	if s.Total == 0 {
		b.WriteString(noChecksMessage + " for this commit.\n")
		return b.String()
	}

	b.WriteString("| Total | Passed | Failed | Pending | Skipped |\n")
	b.WriteString("|------:|-------:|-------:|--------:|--------:|\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %d | %d |\n", s.Total, s.Passed, s.Failed, s.Pending, s.Skipped)

	if len(s.FailureDetails) == 0 {
		return b.String()
	}

	b.WriteString("\n### Failures\n")
	for _, fd := range s.FailureDetails {
		b.WriteByte('\n')
		fmt.Fprintf(&b, "#### %s %s\n\n", ErrorTypeIcon(fd.ErrorType), escapeMarkdown(fd.CheckName))
		fmt.Fprintf(&b, "- **Type:** `%s`\n", fd.ErrorType)
		if fd.URL != "" {
			fmt.Fprintf(&b, "- **Details:** [%s](<%s>)\n", escapeMarkdown(fd.CheckName), fd.URL)
		}
		if files := listFiles(fd.AffectedFiles); files != "" {
			fmt.Fprintf(&b, "- **Files:** %s\n", escapeMarkdown(files))
		}
		if fd.Summary != "" {
			fmt.Fprintf(&b, "\n> %s\n", escapeMarkdown(firstLine(fd.Summary)))
		}
		if fd.SuggestedFix != "" {
			fmt.Fprintf(&b, "\n```sh\n%s\n```\n", fd.SuggestedFix)
		}
	}

	return b.String()
}

func markdownTitle(r model.CheckResult) string {
	switch {
	case r.Summary.OverallStatus == model.OverallNone:
		return "⚪ No CI checks"
	case r.Success:
		return "✅ CI passed"
	case r.Reason == model.ReasonCriticalFailure:
		return "🔴 CI failed (stopped early on a critical failure)"
	case r.Summary.Pending > 0:
		return "⏳ CI still running"
	default:
		return "🔴 CI failed"
	}
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	">", `\>`,
	"|", `\|`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// RenderHTML converts a markdown string to sanitized HTML.
// Returns empty string for empty input.
func RenderHTML(src string) string {
	if src == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(src), &buf); err != nil {
		return htmlSanitizer.Sanitize(src)
	}

	return htmlSanitizer.Sanitize(buf.String())
}
