package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
	"github.com/ericfisherdev/ciwatch/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.HistoryStore = (*HistoryRepo)(nil)

// timeLayout is how finished_at is stored; it sorts lexically in UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// HistoryRepo is the SQLite implementation of the HistoryStore port interface.
type HistoryRepo struct {
	db *DB
}

// NewHistoryRepo creates a new HistoryRepo backed by the given DB.
func NewHistoryRepo(db *DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// Record inserts one finished wait and returns its row ID.
func (r *HistoryRepo) Record(ctx context.Context, rec model.RunRecord) (int64, error) {
	const query = `
		INSERT INTO run_history (
			repo_full_name, identifier, commit_sha, outcome,
			total, passed, failed, pending, retries_used, duration_ms, finished_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	finishedAt := rec.FinishedAt
	if finishedAt.IsZero() {
		finishedAt = time.Now()
	}

	result, err := r.db.Writer.ExecContext(ctx, query,
		rec.RepoFullName, rec.Identifier, rec.CommitSHA, string(rec.Outcome),
		rec.Total, rec.Passed, rec.Failed, rec.Pending, rec.RetriesUsed,
		rec.Duration.Milliseconds(), finishedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run for %s %s: %w", rec.RepoFullName, rec.Identifier, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	return id, nil
}

// ListRecent returns up to limit runs, newest first. An empty repoFullName
// lists runs across all repositories.
func (r *HistoryRepo) ListRecent(ctx context.Context, repoFullName string, limit int) ([]model.RunRecord, error) {
	if limit <= 0 {
		return []model.RunRecord{}, nil
	}

	const query = `
		SELECT id, repo_full_name, identifier, commit_sha, outcome,
		       total, passed, failed, pending, retries_used, duration_ms, finished_at
		FROM run_history
		WHERE ? = '' OR repo_full_name = ?
		ORDER BY finished_at DESC, id DESC
		LIMIT ?
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, repoFullName, repoFullName, limit)
	if err != nil {
		return nil, fmt.Errorf("query run history: %w", err)
	}
	defer rows.Close()

	runs := []model.RunRecord{}
	for rows.Next() {
		rec, err := scanRunRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run record: %w", err)
		}
		runs = append(runs, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run history: %w", err)
	}

	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRunRecord(s scanner) (*model.RunRecord, error) {
	var rec model.RunRecord
	var outcome, finishedAt string
	var durationMS int64

	err := s.Scan(
		&rec.ID, &rec.RepoFullName, &rec.Identifier, &rec.CommitSHA, &outcome,
		&rec.Total, &rec.Passed, &rec.Failed, &rec.Pending, &rec.RetriesUsed,
		&durationMS, &finishedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Outcome = model.Outcome(outcome)
	rec.Duration = time.Duration(durationMS) * time.Millisecond

	rec.FinishedAt, err = parseTime(finishedAt)
	if err != nil {
		return nil, fmt.Errorf("parse finished_at: %w", err)
	}

	return &rec, nil
}

func parseTime(s string) (time.Time, error) {
	formats := []string{
		timeLayout,
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
