package application

import (
	"context"
	"errors"
	"time"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
	"github.com/ericfisherdev/ciwatch/internal/domain/port/driven"
)

// HistoryService records finished waits. A nil store disables recording.
type HistoryService struct {
	store driven.HistoryStore
	now   func() time.Time
}

// NewHistoryService creates a HistoryService; store may be nil.
func NewHistoryService(store driven.HistoryStore) *HistoryService {
	return &HistoryService{store: store, now: time.Now}
}

// Enabled reports whether a store is configured.
func (s *HistoryService) Enabled() bool {
	return s.store != nil
}

// RecordWait stores the outcome of one WaitForChecks call. result is nil when
// waitErr is a timeout. Other errors are not recorded since the outcome of
// the checks is unknown.
func (s *HistoryService) RecordWait(ctx context.Context, target model.Target, result *model.CheckResult, waitErr error) error {
	if s.store == nil {
		return nil
	}

	rec := model.RunRecord{
		RepoFullName: target.RepoFullName,
		Identifier:   target.Identifier,
		FinishedAt:   s.now().UTC(),
	}

	var timeoutErr *TimeoutError
	switch {
	case result != nil:
		rec.Outcome = result.Outcome()
		rec.CommitSHA = result.CommitSHA
		rec.Duration = result.Duration
		rec.RetriesUsed = result.RetriesUsed
		fillCounts(&rec, result.Summary)
	case errors.As(waitErr, &timeoutErr):
		rec.Outcome = model.OutcomeTimeout
		rec.CommitSHA = timeoutErr.CommitSHA
		rec.Duration = timeoutErr.Elapsed
		if timeoutErr.Last != nil {
			fillCounts(&rec, *timeoutErr.Last)
		}
	default:
		return nil
	}

	_, err := s.store.Record(ctx, rec)
	return err
}

// Recent lists recorded runs, newest first.
func (s *HistoryService) Recent(ctx context.Context, repoFullName string, limit int) ([]model.RunRecord, error) {
	if s.store == nil {
		return []model.RunRecord{}, nil
	}
	return s.store.ListRecent(ctx, repoFullName, limit)
}

func fillCounts(rec *model.RunRecord, s model.CheckSummary) {
	rec.Total = s.Total
	rec.Passed = s.Passed
	rec.Failed = s.Failed
	rec.Pending = s.Pending
}
