package application

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
	"github.com/ericfisherdev/ciwatch/internal/domain/port/driven"
)

// StatusService answers one-shot "what is CI doing right now" queries.
type StatusService struct {
	fetcher driven.StatusFetcher
	now     func() time.Time
}

// NewStatusService creates a new StatusService with the required dependencies.
func NewStatusService(fetcher driven.StatusFetcher) *StatusService {
	return &StatusService{
		fetcher: fetcher,
		now:     time.Now,
	}
}

// GetDetailedCheckStatus resolves the target once and returns a single
// snapshot of its checks, without polling.
func (s *StatusService) GetDetailedCheckStatus(ctx context.Context, target model.Target) (*model.CheckSummary, error) {
	startedAt := s.now()

	sha, err := s.fetcher.ResolveCommitSHA(ctx, target.RepoFullName, target.Identifier)
	if err != nil {
		return nil, fmt.Errorf("resolving %q in %s: %w", target.Identifier, target.RepoFullName, err)
	}

	summary, err := fetchSnapshot(ctx, s.fetcher, target.RepoFullName, sha, startedAt)
	if err != nil {
		return nil, err
	}

	return &summary, nil
}
