// Package report renders check summaries, progress updates and run history
// for terminals, pull request comments and machine consumers.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
)

// maxListedFiles caps the affected files shown per failure.
const maxListedFiles = 5

// noChecksMessage is shown instead of a "0/0" count when nothing reported.
const noChecksMessage = "No CI checks configured"

var errorTypeIcons = map[model.ErrorType]string{
	model.ErrorTypeTestFailure:   "🧪",
	model.ErrorTypeLintingError:  "🧹",
	model.ErrorTypeTypeError:     "🔤",
	model.ErrorTypeSecurityIssue: "🔒",
	model.ErrorTypeBuildError:    "🔨",
	model.ErrorTypeFormatError:   "🎨",
	model.ErrorTypeUnknown:       "❓",
}

// ErrorTypeIcon returns the glyph used for t in reports.
func ErrorTypeIcon(t model.ErrorType) string {
	if icon, ok := errorTypeIcons[t]; ok {
		return icon
	}
	return errorTypeIcons[model.ErrorTypeUnknown]
}

// FormatCheckSummary renders the full multi-line report for s.
func FormatCheckSummary(s model.CheckSummary) string {
	var b strings.Builder

	b.WriteString(summaryHeader(s))
	b.WriteByte('\n')

	if len(s.FailureDetails) > 0 {
		b.WriteByte('\n')
	}
	for _, fd := range s.FailureDetails {
		writeFailure(&b, fd)
	}

	if s.Total > 0 {
		b.WriteByte('\n')
		fmt.Fprintf(&b, "Passed: %d\n", s.Passed)
		if s.Pending > 0 {
			fmt.Fprintf(&b, "Pending: %d\n", s.Pending)
		}
		if s.Skipped > 0 {
			fmt.Fprintf(&b, "Skipped: %d\n", s.Skipped)
		}
	}

	return b.String()
}

func summaryHeader(s model.CheckSummary) string {
	switch s.OverallStatus {
	case model.OverallSuccess:
		return fmt.Sprintf("✅ All checks passed (%d/%d)", s.Passed, s.Total)
	case model.OverallPending:
		return fmt.Sprintf("⏳ Checks in progress (%d/%d completed)", s.Completed(), s.Total)
	case model.OverallFailure:
		return fmt.Sprintf("🔴 %d of %d checks failed", s.Failed, s.Total)
	default:
		return "⚪ " + noChecksMessage
	}
}

func writeFailure(b *strings.Builder, fd model.FailureDetail) {
	fmt.Fprintf(b, "%s %s (%s)\n", ErrorTypeIcon(fd.ErrorType), fd.CheckName, fd.ErrorType)
	if fd.Summary != "" {
		fmt.Fprintf(b, "   %s\n", firstLine(fd.Summary))
	}
	if files := listFiles(fd.AffectedFiles); files != "" {
		fmt.Fprintf(b, "   Files: %s\n", files)
	}
	if fd.SuggestedFix != "" {
		fmt.Fprintf(b, "   💡 %s\n", fd.SuggestedFix)
	}
	if fd.URL != "" {
		fmt.Fprintf(b, "   🔗 %s\n", fd.URL)
	}
	b.WriteByte('\n')
}

// listFiles joins at most maxListedFiles paths and notes how many were left out.
func listFiles(files []string) string {
	if len(files) == 0 {
		return ""
	}
	if len(files) <= maxListedFiles {
		return strings.Join(files, ", ")
	}
	return fmt.Sprintf("%s (+%d more)", strings.Join(files[:maxListedFiles], ", "), len(files)-maxListedFiles)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

// FormatCompact renders s as a single line.
func FormatCompact(s model.CheckSummary) string {
	switch s.OverallStatus {
	case model.OverallSuccess:
		return fmt.Sprintf("✅ CI passed (%d/%d checks)", s.Passed, s.Total)
	case model.OverallFailure:
		return fmt.Sprintf("🔴 CI failed (%d/%d checks failed: %s)", s.Failed, s.Total, strings.Join(s.FailedChecks(), ", "))
	case model.OverallPending:
		return fmt.Sprintf("⏳ CI running (%d/%d checks completed)", s.Completed(), s.Total)
	default:
		return "⚪ " + noChecksMessage
	}
}

// FormatProgress renders one progress tick as "[mm:ss] X/Y checks completed"
// followed by the checks that changed state.
func FormatProgress(u model.ProgressUpdate) string {
	var b strings.Builder

	b.WriteString(clock(u.Elapsed))
	b.WriteByte(' ')
	if u.Total == 0 {
		b.WriteString(noChecksMessage)
		return b.String()
	}

	fmt.Fprintf(&b, "%d/%d checks completed", u.Total-u.Pending, u.Total)
	for _, name := range u.NewPasses {
		fmt.Fprintf(&b, "\n  ✅ %s passed", name)
	}
	for _, name := range u.NewFailures {
		fmt.Fprintf(&b, "\n  ❌ %s failed", name)
	}
	if u.Pending > 0 {
		fmt.Fprintf(&b, "\n  ⏳ %d pending", u.Pending)
	}

	return b.String()
}

// clock formats d as "[mm:ss]"; minutes are not wrapped into hours.
func clock(d time.Duration) string {
	secs := max(0, int(d.Round(time.Second)/time.Second))
	return fmt.Sprintf("[%02d:%02d]", secs/60, secs%60)
}
