package application

import (
	"path"
	"strings"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
)

// Suggest proposes a remediation for a failure of the given type. The
// command is tailored to Python or Node projects based on the extensions of
// the affected files; an unknown failure yields an empty command.
func Suggest(summary string, errType model.ErrorType, affectedFiles []string) model.AutoFixSuggestion {
	pyFiles, nodeFiles := splitByLanguage(affectedFiles)
	lockfileTouched := containsBase(affectedFiles, "package-lock.json")

	return model.AutoFixSuggestion{
		Command:           suggestCommand(summary, errType, pyFiles, nodeFiles),
		AutoFixable:       isAutoFixable(errType, lockfileTouched),
		ExecutionStrategy: executionStrategy(errType),
		Confidence:        confidence(errType, lockfileTouched),
	}
}

func suggestCommand(summary string, errType model.ErrorType, pyFiles, nodeFiles []string) string {
	switch errType {
	case model.ErrorTypeTestFailure:
		if len(pyFiles) > 0 {
			return "pytest " + strings.Join(pyFiles, " ") + " -v"
		}
		if len(nodeFiles) > 0 {
			return "npm test -- " + strings.Join(nodeFiles, " ")
		}
		return "npm test -- --verbose"
	case model.ErrorTypeLintingError:
		if len(pyFiles) > 0 {
			return "ruff check --fix " + strings.Join(pyFiles, " ")
		}
		return "npm run lint -- --fix"
	case model.ErrorTypeTypeError:
		return "npm run typecheck"
	case model.ErrorTypeFormatError:
		if len(pyFiles) > 0 {
			return "black " + strings.Join(pyFiles, " ")
		}
		return "npm run format"
	case model.ErrorTypeBuildError:
		return "npm run build"
	case model.ErrorTypeSecurityIssue:
		return securityCommand(summary)
	default:
		return ""
	}
}

func securityCommand(summary string) string {
	s := strings.ToLower(summary)
	switch {
	case strings.Contains(s, "secret"):
		return "Remove the exposed secret from the code and rotate the credential"
	case strings.Contains(s, "dependency"), strings.Contains(s, "vulnerability"):
		return "npm audit fix"
	case strings.Contains(s, "codeql"):
		return "Review the CodeQL findings at the check URL"
	default:
		return "Review the security findings in the check details"
	}
}

func isAutoFixable(errType model.ErrorType, lockfileTouched bool) bool {
	switch errType {
	case model.ErrorTypeLintingError, model.ErrorTypeFormatError:
		return true
	case model.ErrorTypeSecurityIssue:
		return lockfileTouched
	default:
		return false
	}
}

func executionStrategy(errType model.ErrorType) model.ExecutionStrategy {
	switch errType {
	case model.ErrorTypeLintingError, model.ErrorTypeFormatError:
		return model.StrategyDeterministic
	case model.ErrorTypeTestFailure, model.ErrorTypeTypeError, model.ErrorTypeBuildError:
		return model.StrategyAI
	default:
		return model.StrategyManual
	}
}

func confidence(errType model.ErrorType, lockfileTouched bool) float64 {
	switch {
	case errType == model.ErrorTypeLintingError, errType == model.ErrorTypeFormatError:
		return 0.95
	case errType == model.ErrorTypeSecurityIssue && lockfileTouched:
		return 0.85
	default:
		return 0.5
	}
}

// splitByLanguage partitions files into Python and Node sources.
func splitByLanguage(files []string) (py, node []string) {
	for _, f := range files {
		switch path.Ext(f) {
		case ".py":
			py = append(py, f)
		case ".ts", ".tsx", ".js", ".jsx":
			node = append(node, f)
		}
	}
	return py, node
}

func containsBase(files []string, base string) bool {
	for _, f := range files {
		if path.Base(f) == base {
			return true
		}
	}
	return false
}
