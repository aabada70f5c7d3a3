package model

import "time"

// FailureDetail describes one failed check, enriched with a classification,
// the files its output mentions, and a suggested remediation command.
type FailureDetail struct {
	CheckName     string    `json:"check_name"`
	ErrorType     ErrorType `json:"error_type"`
	Summary       string    `json:"summary"`
	AffectedFiles []string  `json:"affected_files"`
	SuggestedFix  string    `json:"suggested_fix,omitempty"` // Empty when no suggestion applies.
	URL           string    `json:"url,omitempty"`
}

// CheckSummary is one point-in-time snapshot of a commit's CI state.
// Passed+Failed+Pending+Skipped may be less than Total because cancelled,
// timed out and action_required runs are not tallied into any bucket.
type CheckSummary struct {
	Total          int             `json:"total"`
	Passed         int             `json:"passed"`
	Failed         int             `json:"failed"`
	Pending        int             `json:"pending"`
	Skipped        int             `json:"skipped"`
	FailureDetails []FailureDetail `json:"failure_details"`
	OverallStatus  OverallStatus   `json:"overall_status"`
	StartedAt      time.Time       `json:"started_at"`
	CompletedAt    time.Time       `json:"completed_at,omitzero"`
	Duration       time.Duration   `json:"duration,omitempty"` // Zero when no run has completed.

	// PassedChecks holds the names of passing checks, used for progress diffing.
	PassedChecks []string `json:"-"`
}

// FailedChecks returns the names of failed checks in report order.
func (s CheckSummary) FailedChecks() []string {
	names := make([]string, 0, len(s.FailureDetails))
	for _, fd := range s.FailureDetails {
		names = append(names, fd.CheckName)
	}
	return names
}

// Completed returns the number of checks that are no longer pending.
func (s CheckSummary) Completed() int {
	return s.Total - s.Pending
}

// ProgressUpdate is the difference between two consecutive snapshots,
// delivered to a progress observer while a wait is running.
type ProgressUpdate struct {
	Timestamp   time.Time     `json:"timestamp"`
	Elapsed     time.Duration `json:"elapsed"`
	Total       int           `json:"total"`
	Passed      int           `json:"passed"`
	Failed      int           `json:"failed"`
	Pending     int           `json:"pending"`
	NewFailures []string      `json:"new_failures"`
	NewPasses   []string      `json:"new_passes"`
}

// CheckResult is the terminal result of a wait that did not time out.
type CheckResult struct {
	Success     bool          `json:"success"`
	CommitSHA   string        `json:"commit_sha"`
	Summary     CheckSummary  `json:"summary"`
	Duration    time.Duration `json:"duration"`
	RetriesUsed int           `json:"retries_used"`
	Reason      string        `json:"reason,omitempty"`
}

// Outcome maps the result onto the history outcome vocabulary.
func (r CheckResult) Outcome() Outcome {
	switch {
	case r.Success:
		return OutcomeSuccess
	case r.Reason == ReasonCriticalFailure:
		return OutcomeCriticalFailure
	default:
		return OutcomeFailure
	}
}

// AutoFixSuggestion is an advisory remediation for one failure.
type AutoFixSuggestion struct {
	Command           string            `json:"command"`
	AutoFixable       bool              `json:"auto_fixable"`
	ExecutionStrategy ExecutionStrategy `json:"execution_strategy"`
	Confidence        float64           `json:"confidence"`
}
