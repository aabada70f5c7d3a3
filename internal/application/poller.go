package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
	"github.com/ericfisherdev/ciwatch/internal/domain/port/driven"
)

// Wait defaults.
const (
	defaultTimeout       = 10 * time.Minute
	defaultMaxRetries    = 3
	defaultRetryDelay    = 5 * time.Second
	defaultNoChecksGrace = 30 * time.Second
)

// ErrTimeout is matched by errors.Is for every *TimeoutError.
var ErrTimeout = errors.New("timed out waiting for checks")

// TimeoutError reports that the wait budget ran out while checks were still
// pending. The outcome is unknown, which is why it is an error rather than a
// failed CheckResult.
type TimeoutError struct {
	CommitSHA string
	Timeout   time.Duration
	Elapsed   time.Duration
	Last      *model.CheckSummary // Most recent snapshot; nil if none was taken.
}

func (e *TimeoutError) Error() string {
	if e.Last == nil {
		return fmt.Sprintf("timed out after %s waiting for checks", e.Elapsed.Round(time.Second))
	}
	return fmt.Sprintf("timed out after %s waiting for checks (%d of %d still pending)",
		e.Elapsed.Round(time.Second), e.Last.Pending, e.Last.Total)
}

func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// RetryOptions bounds the flaky-failure retry policy.
type RetryOptions struct {
	MaxRetries int
	RetryDelay time.Duration
}

// WaitOptions configures one WaitForChecks call. Start from
// DefaultWaitOptions; zero durations fall back to the defaults.
type WaitOptions struct {
	Timeout time.Duration
	Backoff BackoffConfig
	// OnProgress, if set, is called on the polling goroutine whenever the
	// tallied counts change. It must not block.
	OnProgress ProgressFunc
	// FailFast stops as soon as a test, build or security check fails.
	FailFast bool
	// RetryFlaky keeps polling after a completed failure that looks transient.
	RetryFlaky bool
	Retry      RetryOptions
	// NoChecksGrace is how long to keep polling while no check has been
	// reported at all before concluding that no CI is configured.
	NoChecksGrace time.Duration
}

// DefaultWaitOptions returns a 10 minute, fail-fast wait with no flaky retries.
func DefaultWaitOptions() WaitOptions {
	return WaitOptions{
		Timeout:  defaultTimeout,
		Backoff:  DefaultBackoffConfig(),
		FailFast: true,
		Retry: RetryOptions{
			MaxRetries: defaultMaxRetries,
			RetryDelay: defaultRetryDelay,
		},
		NoChecksGrace: defaultNoChecksGrace,
	}
}

func (o WaitOptions) withDefaults() WaitOptions {
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	o.Backoff = o.Backoff.withDefaults()
	if o.Retry.MaxRetries < 0 {
		o.Retry.MaxRetries = 0
	}
	if o.Retry.RetryDelay <= 0 {
		o.Retry.RetryDelay = defaultRetryDelay
	}
	if o.NoChecksGrace < 0 {
		o.NoChecksGrace = 0
	}
	return o
}

// flakyKeywords mark a failure summary as possibly transient.
var flakyKeywords = []string{"timeout", "network", "flaky"}

// looksFlaky reports whether any failure in s mentions a transient cause.
func looksFlaky(s model.CheckSummary) bool {
	for _, fd := range s.FailureDetails {
		text := strings.ToLower(fd.Summary)
		for _, kw := range flakyKeywords {
			if strings.Contains(text, kw) {
				return true
			}
		}
	}
	return false
}

// criticalFailure returns the first failure whose type stops a fail-fast wait.
func criticalFailure(s model.CheckSummary) (model.FailureDetail, bool) {
	for _, fd := range s.FailureDetails {
		if fd.ErrorType.IsCritical() {
			return fd, true
		}
	}
	return model.FailureDetail{}, false
}

// Sleeper pauses for d or until ctx is done, whichever comes first.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Poller waits for a commit's CI checks to settle. A Poller holds no state
// between calls, so one Poller may serve concurrent waits on different targets.
type Poller struct {
	fetcher driven.StatusFetcher
	now     func() time.Time
	sleep   Sleeper
}

// NewPoller creates a Poller reading CI state through fetcher.
func NewPoller(fetcher driven.StatusFetcher) *Poller {
	return &Poller{
		fetcher: fetcher,
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// WithClock replaces the wall clock and sleep function. Intended for tests.
func (p *Poller) WithClock(now func() time.Time, sleep Sleeper) *Poller {
	p.now = now
	p.sleep = sleep
	return p
}

// waitState is everything one WaitForChecks call mutates.
type waitState struct {
	start   time.Time
	sha     string
	backoff *Backoff
	prev    *model.CheckSummary
	retries int
}

// WaitForChecks polls the target's checks until they settle and returns the
// outcome. A completed failure and a fail-fast stop are returned as a
// CheckResult with Success false. A *TimeoutError is returned when the budget
// runs out while checks are pending; ctx cancellation returns ctx.Err();
// fetch errors are returned wrapped and are not retried.
func (p *Poller) WaitForChecks(ctx context.Context, target model.Target, opts WaitOptions) (*model.CheckResult, error) {
	opts = opts.withDefaults()

	st := &waitState{
		start:   p.now(),
		backoff: NewBackoff(opts.Backoff),
	}

	sha, err := p.fetcher.ResolveCommitSHA(ctx, target.RepoFullName, target.Identifier)
	if err != nil {
		return nil, fmt.Errorf("resolving %q in %s: %w", target.Identifier, target.RepoFullName, err)
	}
	st.sha = sha

	slog.Debug("waiting for checks",
		"repo", target.RepoFullName,
		"identifier", target.Identifier,
		"sha", sha,
		"timeout", opts.Timeout,
		"fail_fast", opts.FailFast,
		"retry_flaky", opts.RetryFlaky,
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		elapsed := p.now().Sub(st.start)
		if elapsed >= opts.Timeout {
			return nil, &TimeoutError{CommitSHA: sha, Timeout: opts.Timeout, Elapsed: elapsed, Last: st.prev}
		}

		summary, err := fetchSnapshot(ctx, p.fetcher, target.RepoFullName, sha, st.start)
		if err != nil {
			return nil, err
		}

		elapsed = p.now().Sub(st.start)
		if snapshotChanged(st.prev, summary) && opts.OnProgress != nil {
			opts.OnProgress(DiffSnapshots(st.prev, summary, p.now(), elapsed))
		}
		st.prev = &summary

		slog.Debug("poll",
			"sha", sha,
			"total", summary.Total,
			"passed", summary.Passed,
			"failed", summary.Failed,
			"pending", summary.Pending,
			"elapsed", elapsed.Round(time.Millisecond),
		)

		if result, done := p.settle(summary, st, opts, elapsed); done {
			return result, nil
		}

		var delay time.Duration
		if st.retrying(summary, opts) {
			st.retries++
			delay = opts.Retry.RetryDelay
			slog.Info("retrying after suspected flaky failure",
				"sha", sha,
				"attempt", st.retries,
				"max_retries", opts.Retry.MaxRetries,
				"failed", summary.FailedChecks(),
			)
		} else {
			delay = st.backoff.Next()
		}

		// Never sleep past the deadline so the timeout fires on time.
		if remaining := opts.Timeout - p.now().Sub(st.start); delay > remaining {
			delay = max(remaining, 0)
		}
		if err := p.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// retrying reports whether a settled failure should be polled again under
// the flaky-retry policy. The caller increments the retry count.
func (st *waitState) retrying(s model.CheckSummary, opts WaitOptions) bool {
	return s.Pending == 0 &&
		s.Failed > 0 &&
		opts.RetryFlaky &&
		st.retries < opts.Retry.MaxRetries &&
		looksFlaky(s)
}

// settle decides whether summary ends the wait.
func (p *Poller) settle(s model.CheckSummary, st *waitState, opts WaitOptions, elapsed time.Duration) (*model.CheckResult, bool) {
	result := &model.CheckResult{
		CommitSHA:   st.sha,
		Summary:     s,
		Duration:    elapsed,
		RetriesUsed: st.retries,
	}

	if s.Pending == 0 {
		if s.Total == 0 && elapsed < opts.NoChecksGrace {
			// Checks may not have registered yet for a fresh push.
			return nil, false
		}
		if s.Failed == 0 {
			result.Success = true
			return result, true
		}
		if st.retrying(s, opts) {
			return nil, false
		}
		return result, true
	}

	if opts.FailFast {
		if fd, ok := criticalFailure(s); ok {
			slog.Info("failing fast on critical failure",
				"check", fd.CheckName,
				"error_type", fd.ErrorType,
				"pending", s.Pending,
			)
			result.Reason = model.ReasonCriticalFailure
			return result, true
		}
	}

	return nil, false
}
