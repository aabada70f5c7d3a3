package application

import (
	"regexp"
	"unicode"
	"unicode/utf8"
)

// sourceExt matches the file extensions we report as affected files.
// Longer alternatives come first so "tsx" is not cut short as "ts".
const sourceExt = `(?:tsx|ts|jsx|js|py|go|rs)`

// FileExtractor pulls source file paths out of unstructured CI output.
// Patterns are applied in order; each pattern's first capture group is the path.
// A capture is discarded when it is glued to a longer token: preceded by a
// word character, '.', ':' or '/' (a URL tail), or followed by a word
// character or a '.' that continues the name (lib/x.go.bak).
type FileExtractor struct {
	patterns []*regexp.Regexp
}

// NewFileExtractor builds an extractor from the given patterns. Each pattern
// must have at least one capture group.
func NewFileExtractor(patterns ...*regexp.Regexp) *FileExtractor {
	return &FileExtractor{patterns: patterns}
}

// DefaultFileExtractor recognizes pytest node IDs, compiler diagnostics,
// Python tracebacks, and bare slash-separated paths.
var DefaultFileExtractor = NewFileExtractor(
	regexp.MustCompile(`([\w./-]+\.` + sourceExt + `)::\w+`),               // tests/test_api.py::test_get
	regexp.MustCompile(`([\w./-]+\.` + sourceExt + `)\(\d+,\s*\d+\)`),      // src/app.ts(12,5)
	regexp.MustCompile(`File "([^"]+\.` + sourceExt + `)"`),               // File "app/main.py", line 3
	regexp.MustCompile(`([\w.-]*(?:/[\w.-]+)+\.` + sourceExt + `)`),         // ./pkg/server/handler.go:42
)

// Extract returns every distinct path found in text. Order is pattern-major:
// all paths from the first pattern in text order, then new paths from the
// second, and so on. It never returns nil.
func (e *FileExtractor) Extract(text string) []string {
	files := []string{}
	if text == "" {
		return files
	}

	seen := make(map[string]bool)
	for _, re := range e.patterns {
		for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
			if len(loc) < 4 || loc[2] < 0 || loc[2] == loc[3] {
				continue
			}
			if !standsAlone(text, loc[2], loc[3]) {
				continue
			}
			path := text[loc[2]:loc[3]]
			if seen[path] {
				continue
			}
			seen[path] = true
			files = append(files, path)
		}
	}

	return files
}

// standsAlone reports whether text[start:end] is a whole path token.
func standsAlone(text string, start, end int) bool {
	if start > 0 {
		prev, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(prev) || prev == '.' || prev == ':' || prev == '/' {
			return false
		}
	}
	if end < len(text) {
		next, size := utf8.DecodeRuneInString(text[end:])
		if isWordRune(next) {
			return false
		}
		if next == '.' {
			// A trailing full stop is punctuation; "x.go.bak" is a different file.
			after, _ := utf8.DecodeRuneInString(text[end+size:])
			if end+size < len(text) && isWordRune(after) {
				return false
			}
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// ExtractAffectedFiles runs the default extractor over text.
func ExtractAffectedFiles(text string) []string {
	return DefaultFileExtractor.Extract(text)
}
