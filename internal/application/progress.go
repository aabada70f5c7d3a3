package application

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
)

// ProgressFunc observes progress while a wait is running. It is called
// synchronously on the polling goroutine, so it must return promptly; a
// blocking observer stalls polling. Wrap slow observers with NewQueuedProgress.
type ProgressFunc func(model.ProgressUpdate)

// snapshotChanged reports whether cur differs from prev in any tallied count.
// The first snapshot (prev == nil) always counts as a change.
func snapshotChanged(prev *model.CheckSummary, cur model.CheckSummary) bool {
	if prev == nil {
		return true
	}
	return prev.Passed != cur.Passed ||
		prev.Failed != cur.Failed ||
		prev.Pending != cur.Pending ||
		prev.Total != cur.Total
}

// DiffSnapshots computes the progress between two consecutive snapshots.
// A check already failing (or passing) in prev is not reported again.
func DiffSnapshots(prev *model.CheckSummary, cur model.CheckSummary, now time.Time, elapsed time.Duration) model.ProgressUpdate {
	var prevFailed, prevPassed []string
	if prev != nil {
		prevFailed = prev.FailedChecks()
		prevPassed = prev.PassedChecks
	}

	return model.ProgressUpdate{
		Timestamp:   now,
		Elapsed:     elapsed,
		Total:       cur.Total,
		Passed:      cur.Passed,
		Failed:      cur.Failed,
		Pending:     cur.Pending,
		NewFailures: newNames(prevFailed, cur.FailedChecks()),
		NewPasses:   newNames(prevPassed, cur.PassedChecks),
	}
}

// newNames returns the distinct entries of cur absent from prev, in cur order.
func newNames(prev, cur []string) []string {
	known := make(map[string]bool, len(prev)+len(cur))
	for _, n := range prev {
		known[n] = true
	}

	out := []string{}
	for _, n := range cur {
		if known[n] {
			continue
		}
		known[n] = true
		out = append(out, n)
	}
	return out
}

// QueuedProgress decouples a slow observer from the polling loop. Updates are
// buffered and delivered on a dedicated goroutine; when the buffer is full the
// update is dropped rather than stalling the poller.
type QueuedProgress struct {
	fn   ProgressFunc
	ch   chan model.ProgressUpdate
	done chan struct{}
	once sync.Once
}

// NewQueuedProgress starts the delivery goroutine. Call Close when the wait
// returns to flush pending updates.
func NewQueuedProgress(fn ProgressFunc, buffer int) *QueuedProgress {
	if buffer < 1 {
		buffer = 1
	}

	q := &QueuedProgress{
		fn:   fn,
		ch:   make(chan model.ProgressUpdate, buffer),
		done: make(chan struct{}),
	}

	go func() {
		defer close(q.done)
		for u := range q.ch {
			q.fn(u)
		}
	}()

	return q
}

// Deliver enqueues u without blocking. It satisfies ProgressFunc.
func (q *QueuedProgress) Deliver(u model.ProgressUpdate) {
	select {
	case q.ch <- u:
	default:
		slog.Warn("progress observer falling behind, update dropped",
			"passed", u.Passed,
			"failed", u.Failed,
			"pending", u.Pending,
		)
	}
}

// Close stops accepting updates and waits for queued ones to be delivered.
// Deliver must not be called after Close.
func (q *QueuedProgress) Close() {
	q.once.Do(func() { close(q.ch) })
	<-q.done
}
