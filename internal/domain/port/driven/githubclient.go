package driven

import (
	"context"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
)

// StatusFetcher defines the driven port for reading CI state from GitHub.
// Implementations own transport concerns (auth, caching, rate limiting);
// callers treat every error as terminal for the current operation.
type StatusFetcher interface {
	// ResolveCommitSHA turns a user-supplied identifier (PR number, PR URL,
	// branch name or commit SHA) into the commit SHA whose checks are polled.
	ResolveCommitSHA(ctx context.Context, repoFullName string, identifier string) (string, error)
	// FetchCheckRuns returns all check runs for the given ref (commit SHA or branch).
	FetchCheckRuns(ctx context.Context, repoFullName string, ref string) ([]model.CheckRun, error)
	// FetchCombinedStatus returns the combined commit status for the given ref.
	// A nil result with a nil error means no statuses were reported.
	FetchCombinedStatus(ctx context.Context, repoFullName string, ref string) (*model.CombinedStatus, error)
}
