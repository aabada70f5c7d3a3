package application

import (
	"strings"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
)

// classificationRule maps a set of keywords to the ErrorType they indicate.
type classificationRule struct {
	errorType model.ErrorType
	keywords  []string
}

// classificationRules is evaluated in order; the first rule with a keyword
// contained in any input wins. Matching is by substring, not by word, so
// "unformatted" counts as "format" and "types" counts as "type".
var classificationRules = []classificationRule{
	{model.ErrorTypeTestFailure, []string{"test", "spec", "pytest", "jest", "mocha", "unittest", "vitest"}},
	{model.ErrorTypeLintingError, []string{"lint", "eslint", "pylint", "flake8", "ruff"}},
	{model.ErrorTypeTypeError, []string{"type", "typecheck", "mypy", "typescript", "tsc"}},
	{model.ErrorTypeSecurityIssue, []string{"security", "codeql", "secret", "vuln", "dependency"}},
	{model.ErrorTypeBuildError, []string{"build", "compile", "webpack", "tsc", "babel", "rollup", "vite"}},
	{model.ErrorTypeFormatError, []string{"format", "prettier", "black", "autopep8"}},
}

// ClassifyError assigns an ErrorType to a failed check from its name and the
// title and summary of its output. Comparison is case-insensitive.
func ClassifyError(name, summary, title string) model.ErrorType {
	fields := [3]string{
		strings.ToLower(name),
		strings.ToLower(summary),
		strings.ToLower(title),
	}

	for _, rule := range classificationRules {
		for _, kw := range rule.keywords {
			for _, f := range fields {
				if strings.Contains(f, kw) {
					return rule.errorType
				}
			}
		}
	}

	return model.ErrorTypeUnknown
}
