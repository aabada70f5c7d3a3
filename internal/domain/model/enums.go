package model

// ErrorType is the classification assigned to a failed check.
type ErrorType string

const (
	ErrorTypeTestFailure   ErrorType = "test_failure"
	ErrorTypeLintingError  ErrorType = "linting_error"
	ErrorTypeTypeError     ErrorType = "type_error"
	ErrorTypeSecurityIssue ErrorType = "security_issue"
	ErrorTypeBuildError    ErrorType = "build_error"
	ErrorTypeFormatError   ErrorType = "format_error"
	ErrorTypeUnknown       ErrorType = "unknown"
)

// IsCritical reports whether a failure of this type stops a fail-fast wait
// before the remaining checks finish. Lint, format and type failures never do.
func (t ErrorType) IsCritical() bool {
	switch t {
	case ErrorTypeTestFailure, ErrorTypeBuildError, ErrorTypeSecurityIssue:
		return true
	default:
		return false
	}
}

// OverallStatus is the aggregate state of every check on a commit.
type OverallStatus string

const (
	OverallSuccess OverallStatus = "success"
	OverallFailure OverallStatus = "failure"
	OverallPending OverallStatus = "pending"
	// OverallNone means no check runs or statuses were reported at all.
	OverallNone OverallStatus = "none"
)

// ExecutionStrategy describes how an automated fixer should apply a suggestion.
type ExecutionStrategy string

const (
	StrategyDeterministic ExecutionStrategy = "deterministic" // Fixed tool invocation.
	StrategyAI            ExecutionStrategy = "ai"            // Needs semantic judgment.
	StrategyManual        ExecutionStrategy = "manual"        // A human has to look.
)

// Reason values for CheckResult.Reason.
const (
	ReasonCriticalFailure = "critical_failure"
)

// Outcome is the recorded end state of one wait, as stored in run history.
type Outcome string

const (
	OutcomeSuccess         Outcome = "success"
	OutcomeFailure         Outcome = "failure"
	OutcomeCriticalFailure Outcome = "critical_failure"
	OutcomeTimeout         Outcome = "timeout"
)
