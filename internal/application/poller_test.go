package application_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/ciwatch/internal/application"
	"github.com/ericfisherdev/ciwatch/internal/domain/model"
)

// --- Mock implementations ---

type snapshot struct {
	runs     []model.CheckRun
	statuses []model.CommitStatus
}

// scriptedFetcher serves snapshots in order; the last one repeats forever.
type scriptedFetcher struct {
	mu         sync.Mutex
	sha        string
	resolveErr error
	fetchErr   error
	snapshots  []snapshot
	calls      int
	refs       []string
}

func (f *scriptedFetcher) ResolveCommitSHA(_ context.Context, _ string, _ string) (string, error) {
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	if f.sha == "" {
		return "abc123", nil
	}
	return f.sha, nil
}

func (f *scriptedFetcher) FetchCheckRuns(_ context.Context, _ string, ref string) ([]model.CheckRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.refs = append(f.refs, ref)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	idx := min(f.calls, len(f.snapshots)-1)
	f.calls++
	return f.snapshots[idx].runs, nil
}

func (f *scriptedFetcher) FetchCombinedStatus(_ context.Context, _ string, _ string) (*model.CombinedStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	idx := min(f.calls-1, len(f.snapshots)-1)
	statuses := f.snapshots[idx].statuses
	if statuses == nil {
		return nil, nil
	}
	return &model.CombinedStatus{Statuses: statuses}, nil
}

func (f *scriptedFetcher) fetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeClock advances only when the poller sleeps.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	return nil
}

// --- Helpers ---

func passing(name string) model.CheckRun {
	return model.CheckRun{Name: name, Status: "completed", Conclusion: "success"}
}

func running(name string) model.CheckRun {
	return model.CheckRun{Name: name, Status: "in_progress"}
}

func failing(name, summary string) model.CheckRun {
	return model.CheckRun{
		Name:       name,
		Status:     "completed",
		Conclusion: "failure",
		Output:     model.CheckRunOutput{Summary: summary},
	}
}

var target = model.Target{RepoFullName: "octocat/hello-world", Identifier: "42"}

func newTestPoller(f *scriptedFetcher) (*application.Poller, *fakeClock) {
	clock := newFakeClock()
	return application.NewPoller(f).WithClock(clock.Now, clock.Sleep), clock
}

// --- Tests ---

func TestWaitForChecks_SucceedsWhenAllPass(t *testing.T) {
	f := &scriptedFetcher{snapshots: []snapshot{
		{runs: []model.CheckRun{passing("build"), running("test")}},
		{runs: []model.CheckRun{passing("build"), passing("test")}},
	}}
	p, clock := newTestPoller(f)

	result, err := p.WaitForChecks(context.Background(), target, application.DefaultWaitOptions())

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "abc123", result.CommitSHA)
	assert.Empty(t, result.Reason)
	assert.Equal(t, 0, result.RetriesUsed)
	assert.Equal(t, 5*time.Second, result.Duration)
	assert.Equal(t, model.OverallSuccess, result.Summary.OverallStatus)
	assert.Equal(t, []time.Duration{5 * time.Second}, clock.sleeps)
	assert.Equal(t, []string{"abc123", "abc123"}, f.refs, "sha resolved once and reused")
}

func TestWaitForChecks_FailFastOnCriticalFailure(t *testing.T) {
	f := &scriptedFetcher{snapshots: []snapshot{
		{runs: []model.CheckRun{
			failing("unit-tests", "3 tests failed"),
			running("a"), running("b"), running("c"), running("d"), running("e"),
		}},
	}}
	p, clock := newTestPoller(f)

	result, err := p.WaitForChecks(context.Background(), target, application.DefaultWaitOptions())

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, model.ReasonCriticalFailure, result.Reason)
	assert.Equal(t, 5, result.Summary.Pending)
	assert.Empty(t, clock.sleeps, "fail-fast must not wait for pending checks")
	assert.Equal(t, 1, f.fetches())
}

func TestWaitForChecks_LintFailureDoesNotFailFast(t *testing.T) {
	f := &scriptedFetcher{snapshots: []snapshot{
		{runs: []model.CheckRun{failing("eslint", "12 problems"), running("a"), running("b")}},
		{runs: []model.CheckRun{failing("eslint", "12 problems"), passing("a"), passing("b")}},
	}}
	p, _ := newTestPoller(f)

	result, err := p.WaitForChecks(context.Background(), target, application.DefaultWaitOptions())

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Empty(t, result.Reason, "completed failure is not a fail-fast stop")
	assert.Equal(t, 0, result.Summary.Pending)
	assert.Equal(t, 2, f.fetches())
}

func TestWaitForChecks_FailFastDisabled(t *testing.T) {
	f := &scriptedFetcher{snapshots: []snapshot{
		{runs: []model.CheckRun{failing("test", "boom"), running("build")}},
		{runs: []model.CheckRun{failing("test", "boom"), passing("build")}},
	}}
	p, _ := newTestPoller(f)

	opts := application.DefaultWaitOptions()
	opts.FailFast = false
	result, err := p.WaitForChecks(context.Background(), target, opts)

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Empty(t, result.Reason)
	assert.Equal(t, 2, f.fetches())
}

func TestWaitForChecks_TimeoutWithFakeClock(t *testing.T) {
	f := &scriptedFetcher{snapshots: []snapshot{{runs: []model.CheckRun{running("slow")}}}}
	p, clock := newTestPoller(f)

	opts := application.DefaultWaitOptions()
	opts.Timeout = time.Minute
	result, err := p.WaitForChecks(context.Background(), target, opts)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, application.ErrTimeout)

	var timeoutErr *application.TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, time.Minute, timeoutErr.Elapsed, "last sleep is clipped to the deadline")
	require.NotNil(t, timeoutErr.Last)
	assert.Equal(t, 1, timeoutErr.Last.Pending)
	assert.Equal(t, "abc123", timeoutErr.CommitSHA)

	assert.Equal(t, []time.Duration{
		5 * time.Second,
		7500 * time.Millisecond,
		11250 * time.Millisecond,
		16875 * time.Millisecond,
		19375 * time.Millisecond,
	}, clock.sleeps)
}

func TestWaitForChecks_TimeoutWithRealClock(t *testing.T) {
	f := &scriptedFetcher{snapshots: []snapshot{{runs: []model.CheckRun{running("slow")}}}}
	p := application.NewPoller(f)

	opts := application.DefaultWaitOptions()
	opts.Timeout = 300 * time.Millisecond
	opts.Backoff = application.BackoffConfig{Initial: 10 * time.Millisecond, Max: 50 * time.Millisecond, Multiplier: 1.5}

	start := time.Now()
	_, err := p.WaitForChecks(context.Background(), target, opts)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, application.ErrTimeout)
	assert.GreaterOrEqual(t, elapsed, 300*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestWaitForChecks_RetriesFlakyFailures(t *testing.T) {
	f := &scriptedFetcher{snapshots: []snapshot{
		{runs: []model.CheckRun{failing("e2e", "flaky test detected"), passing("build")}},
	}}
	p, clock := newTestPoller(f)

	opts := application.DefaultWaitOptions()
	opts.RetryFlaky = true
	opts.Retry = application.RetryOptions{MaxRetries: 3, RetryDelay: 5 * time.Second}
	result, err := p.WaitForChecks(context.Background(), target, opts)

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 3, result.RetriesUsed)
	assert.Empty(t, result.Reason)
	assert.Equal(t, 4, f.fetches())
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second, 5 * time.Second}, clock.sleeps)
}

func TestWaitForChecks_FlakyFailureRecovers(t *testing.T) {
	f := &scriptedFetcher{snapshots: []snapshot{
		{runs: []model.CheckRun{failing("e2e", "network error fetching fixtures"), passing("build")}},
		{runs: []model.CheckRun{passing("e2e"), passing("build")}},
	}}
	p, _ := newTestPoller(f)

	opts := application.DefaultWaitOptions()
	opts.RetryFlaky = true
	result, err := p.WaitForChecks(context.Background(), target, opts)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.RetriesUsed)
}

func TestWaitForChecks_NoRetryForGenuineFailure(t *testing.T) {
	f := &scriptedFetcher{snapshots: []snapshot{
		{runs: []model.CheckRun{failing("unit", "assertion failed: want 2 got 3")}},
	}}
	p, clock := newTestPoller(f)

	opts := application.DefaultWaitOptions()
	opts.RetryFlaky = true
	result, err := p.WaitForChecks(context.Background(), target, opts)

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 0, result.RetriesUsed)
	assert.Empty(t, clock.sleeps)
}

func TestWaitForChecks_RetryDisabledByDefault(t *testing.T) {
	f := &scriptedFetcher{snapshots: []snapshot{
		{runs: []model.CheckRun{failing("e2e", "flaky test detected")}},
	}}
	p, _ := newTestPoller(f)

	result, err := p.WaitForChecks(context.Background(), target, application.DefaultWaitOptions())

	require.NoError(t, err)
	assert.Equal(t, 0, result.RetriesUsed)
	assert.Equal(t, 1, f.fetches())
}

func TestWaitForChecks_ProgressReportsOnlyChanges(t *testing.T) {
	first := snapshot{runs: []model.CheckRun{failing("A", "lint failed"), running("B"), running("C")}}
	f := &scriptedFetcher{snapshots: []snapshot{
		first,
		first,
		{runs: []model.CheckRun{failing("A", "lint failed"), failing("B", "lint failed"), passing("C")}},
	}}
	p, _ := newTestPoller(f)

	var updates []model.ProgressUpdate
	opts := application.DefaultWaitOptions()
	opts.OnProgress = func(u model.ProgressUpdate) { updates = append(updates, u) }

	_, err := p.WaitForChecks(context.Background(), target, opts)

	require.NoError(t, err)
	require.Len(t, updates, 2, "unchanged second snapshot is not reported")
	assert.Equal(t, []string{"A"}, updates[0].NewFailures)
	assert.Equal(t, []string{"B"}, updates[1].NewFailures)
	assert.Equal(t, []string{"C"}, updates[1].NewPasses)
	assert.Equal(t, 0, updates[1].Pending)
}

func TestWaitForChecks_NoChecksConfigured(t *testing.T) {
	f := &scriptedFetcher{snapshots: []snapshot{{}}}
	p, clock := newTestPoller(f)

	result, err := p.WaitForChecks(context.Background(), target, application.DefaultWaitOptions())

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 0, result.Summary.Total)
	assert.Equal(t, model.OverallNone, result.Summary.OverallStatus)
	assert.GreaterOrEqual(t, result.Duration, 30*time.Second)
	assert.Len(t, clock.sleeps, 4)
}

func TestWaitForChecks_ChecksAppearAfterPush(t *testing.T) {
	f := &scriptedFetcher{snapshots: []snapshot{
		{},
		{runs: []model.CheckRun{running("build")}},
		{runs: []model.CheckRun{passing("build")}},
	}}
	p, _ := newTestPoller(f)

	result, err := p.WaitForChecks(context.Background(), target, application.DefaultWaitOptions())

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Summary.Total)
}

func TestWaitForChecks_CommitStatusesCount(t *testing.T) {
	f := &scriptedFetcher{snapshots: []snapshot{
		{runs: []model.CheckRun{passing("build")}, statuses: []model.CommitStatus{{Context: "ci/jenkins", State: "pending"}}},
		{runs: []model.CheckRun{passing("build")}, statuses: []model.CommitStatus{{Context: "ci/jenkins", State: "success"}}},
	}}
	p, _ := newTestPoller(f)

	result, err := p.WaitForChecks(context.Background(), target, application.DefaultWaitOptions())

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Summary.Passed)
	assert.Equal(t, 2, f.fetches())
}

func TestWaitForChecks_FetchErrorPropagates(t *testing.T) {
	apiErr := errors.New("502 bad gateway")
	f := &scriptedFetcher{fetchErr: apiErr, snapshots: []snapshot{{}}}
	p, clock := newTestPoller(f)

	result, err := p.WaitForChecks(context.Background(), target, application.DefaultWaitOptions())

	assert.Nil(t, result)
	assert.ErrorIs(t, err, apiErr)
	assert.NotErrorIs(t, err, application.ErrTimeout)
	assert.Empty(t, clock.sleeps, "fetch errors are not retried")
}

func TestWaitForChecks_ResolveErrorPropagates(t *testing.T) {
	resolveErr := errors.New("pull request not found")
	f := &scriptedFetcher{resolveErr: resolveErr, snapshots: []snapshot{{}}}
	p, _ := newTestPoller(f)

	_, err := p.WaitForChecks(context.Background(), target, application.DefaultWaitOptions())

	assert.ErrorIs(t, err, resolveErr)
	assert.Equal(t, 0, f.fetches())
}

func TestWaitForChecks_CanceledContext(t *testing.T) {
	f := &scriptedFetcher{snapshots: []snapshot{{runs: []model.CheckRun{running("slow")}}}}
	p, _ := newTestPoller(f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.WaitForChecks(ctx, target, application.DefaultWaitOptions())

	assert.ErrorIs(t, err, context.Canceled)
}

func TestWaitForChecks_CancelInterruptsSleep(t *testing.T) {
	f := &scriptedFetcher{snapshots: []snapshot{{runs: []model.CheckRun{running("slow")}}}}
	p := application.NewPoller(f)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	opts := application.DefaultWaitOptions()
	opts.Backoff = application.BackoffConfig{Initial: time.Minute, Max: time.Minute, Multiplier: 1}

	start := time.Now()
	_, err := p.WaitForChecks(ctx, target, opts)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestWaitForChecks_ConcurrentWaitsAreIndependent(t *testing.T) {
	quick := application.BackoffConfig{Initial: time.Millisecond, Max: 5 * time.Millisecond, Multiplier: 2}

	fa := &scriptedFetcher{sha: "aaa", snapshots: []snapshot{
		{runs: []model.CheckRun{running("x")}},
		{runs: []model.CheckRun{passing("x")}},
	}}
	fb := &scriptedFetcher{sha: "bbb", snapshots: []snapshot{
		{runs: []model.CheckRun{running("y")}},
		{runs: []model.CheckRun{running("y")}},
		{runs: []model.CheckRun{failing("y", "compile error")}},
	}}

	var wg sync.WaitGroup
	results := make([]*model.CheckResult, 2)
	errs := make([]error, 2)
	for i, f := range []*scriptedFetcher{fa, fb} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			opts := application.DefaultWaitOptions()
			opts.Backoff = quick
			results[i], errs[i] = application.NewPoller(f).WaitForChecks(context.Background(), target, opts)
		}()
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.True(t, results[0].Success)
	assert.Equal(t, "aaa", results[0].CommitSHA)
	assert.False(t, results[1].Success)
	assert.Equal(t, "bbb", results[1].CommitSHA)
}
