package model

import "time"

// CheckRun represents an individual CI/CD check run from the GitHub Checks API.
type CheckRun struct {
	ID          int64          // GitHub check run ID.
	Name        string         // Check run name (e.g., "build", "lint").
	Status      string         // queued, in_progress, completed, waiting, requested, pending.
	Conclusion  string         // success, failure, neutral, cancelled, skipped, timed_out, action_required.
	Output      CheckRunOutput // Annotations summary reported by the check.
	DetailsURL  string         // URL to the check run details page.
	StartedAt   time.Time      // When the check run started.
	CompletedAt time.Time      // When the check run completed (zero if not yet completed).
}

// CheckRunOutput carries the free-form output a check run attaches to itself.
// Any field may be empty; many CI integrations only fill Title.
type CheckRunOutput struct {
	Title   string
	Summary string
	Text    string
}

// IsCompleted reports whether the check run has reached its final state.
func (cr CheckRun) IsCompleted() bool {
	return cr.Status == "completed"
}

// CombinedStatus represents the aggregated commit status from the GitHub Status API.
type CombinedStatus struct {
	State    string         // Overall state: success, failure, pending.
	Statuses []CommitStatus // Individual status entries.
}

// CommitStatus represents an individual status entry from the GitHub Status API.
type CommitStatus struct {
	Context     string // CI service identifier (e.g., "ci/circleci").
	State       string // success, failure, pending, error.
	Description string // Human-readable description of the status.
	TargetURL   string // URL for more details on the status.
}
