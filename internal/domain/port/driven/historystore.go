package driven

import (
	"context"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
)

// HistoryStore defines the driven port for the local record of finished waits.
type HistoryStore interface {
	// Record appends a finished run and returns its assigned ID.
	Record(ctx context.Context, rec model.RunRecord) (int64, error)
	// ListRecent returns up to limit runs, newest first. An empty
	// repoFullName lists runs for every repository.
	ListRecent(ctx context.Context, repoFullName string, limit int) ([]model.RunRecord, error)
}
