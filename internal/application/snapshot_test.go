package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
)

func TestBuildSummary_Counts(t *testing.T) {
	tests := []struct {
		name        string
		checkRuns   []model.CheckRun
		statuses    []model.CommitStatus
		wantTotal   int
		wantPassed  int
		wantFailed  int
		wantPending int
		wantSkipped int
		wantStatus  model.OverallStatus
	}{
		{
			name: "all passing check runs + success status",
			checkRuns: []model.CheckRun{
				{Name: "build", Status: "completed", Conclusion: "success"},
				{Name: "lint", Status: "completed", Conclusion: "success"},
			},
			statuses:   []model.CommitStatus{{Context: "ci/circleci", State: "success"}},
			wantTotal:  3,
			wantPassed: 3,
			wantStatus: model.OverallSuccess,
		},
		{
			name: "one failing check run",
			checkRuns: []model.CheckRun{
				{Name: "build", Status: "completed", Conclusion: "success"},
				{Name: "test", Status: "completed", Conclusion: "failure"},
			},
			wantTotal:  2,
			wantPassed: 1,
			wantFailed: 1,
			wantStatus: model.OverallFailure,
		},
		{
			name: "in_progress run is pending",
			checkRuns: []model.CheckRun{
				{Name: "build", Status: "completed", Conclusion: "success"},
				{Name: "test", Status: "in_progress"},
			},
			wantTotal:   2,
			wantPassed:  1,
			wantPending: 1,
			wantStatus:  model.OverallPending,
		},
		{
			name: "incomplete run is pending regardless of conclusion",
			checkRuns: []model.CheckRun{
				{Name: "test", Status: "queued", Conclusion: "failure"},
			},
			wantTotal:   1,
			wantPending: 1,
			wantStatus:  model.OverallPending,
		},
		{
			name: "failing takes precedence over pending",
			checkRuns: []model.CheckRun{
				{Name: "build", Status: "completed", Conclusion: "failure"},
				{Name: "test", Status: "in_progress"},
			},
			wantTotal:   2,
			wantFailed:  1,
			wantPending: 1,
			wantStatus:  model.OverallFailure,
		},
		{
			name:       "no check runs no statuses",
			wantStatus: model.OverallNone,
		},
		{
			name:       "status error counts as failure",
			statuses:   []model.CommitStatus{{Context: "ci/jenkins", State: "error"}},
			wantTotal:  1,
			wantFailed: 1,
			wantStatus: model.OverallFailure,
		},
		{
			name:        "status pending",
			statuses:    []model.CommitStatus{{Context: "ci/jenkins", State: "pending"}},
			wantTotal:   1,
			wantPending: 1,
			wantStatus:  model.OverallPending,
		},
		{
			name: "neutral counts as passed, skipped as skipped",
			checkRuns: []model.CheckRun{
				{Name: "optional", Status: "completed", Conclusion: "neutral"},
				{Name: "conditional", Status: "completed", Conclusion: "skipped"},
			},
			wantTotal:   2,
			wantPassed:  1,
			wantSkipped: 1,
			wantStatus:  model.OverallSuccess,
		},
		{
			name: "cancelled is counted in total only",
			checkRuns: []model.CheckRun{
				{Name: "build", Status: "completed", Conclusion: "success"},
				{Name: "deploy", Status: "completed", Conclusion: "cancelled"},
				{Name: "e2e", Status: "completed", Conclusion: "timed_out"},
			},
			wantTotal:  3,
			wantPassed: 1,
			wantStatus: model.OverallSuccess,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildSummary(tt.checkRuns, tt.statuses, time.Time{})

			assert.Equal(t, tt.wantTotal, got.Total)
			assert.Equal(t, tt.wantPassed, got.Passed)
			assert.Equal(t, tt.wantFailed, got.Failed)
			assert.Equal(t, tt.wantPending, got.Pending)
			assert.Equal(t, tt.wantSkipped, got.Skipped)
			assert.Equal(t, tt.wantStatus, got.OverallStatus)

			assert.LessOrEqual(t, got.Passed+got.Failed+got.Pending+got.Skipped, got.Total)
			assert.Equal(t, got.Failed > 0, got.OverallStatus == model.OverallFailure)
			assert.Equal(t, got.Failed == 0 && got.Pending == 0 && got.Total > 0, got.OverallStatus == model.OverallSuccess)
			assert.Len(t, got.FailureDetails, got.Failed)
		})
	}
}

func TestBuildSummary_FailureDetail(t *testing.T) {
	runs := []model.CheckRun{
		{
			Name:       "pytest",
			Status:     "completed",
			Conclusion: "failure",
			Output: model.CheckRunOutput{
				Title:   "2 failed",
				Summary: "2 tests failed",
				Text:    "FAILED tests/test_api.py::test_get\nFAILED tests/test_db.py::test_put\nFAILED tests/test_api.py::test_post",
			},
			DetailsURL: "https://github.com/o/r/runs/1",
		},
	}

	got := BuildSummary(runs, nil, time.Time{})

	require.Len(t, got.FailureDetails, 1)
	fd := got.FailureDetails[0]
	assert.Equal(t, "pytest", fd.CheckName)
	assert.Equal(t, model.ErrorTypeTestFailure, fd.ErrorType)
	assert.Equal(t, "2 tests failed", fd.Summary)
	assert.Equal(t, []string{"tests/test_api.py", "tests/test_db.py"}, fd.AffectedFiles)
	assert.Equal(t, "pytest tests/test_api.py tests/test_db.py -v", fd.SuggestedFix)
	assert.Equal(t, "https://github.com/o/r/runs/1", fd.URL)
}

func TestBuildSummary_FailureDetailFallbacks(t *testing.T) {
	t.Run("check run with only a title", func(t *testing.T) {
		got := BuildSummary([]model.CheckRun{
			{Name: "deploy", Status: "completed", Conclusion: "failure", Output: model.CheckRunOutput{Title: "Deploy rejected"}},
		}, nil, time.Time{})

		require.Len(t, got.FailureDetails, 1)
		assert.Equal(t, "Deploy rejected", got.FailureDetails[0].Summary)
		assert.Equal(t, model.ErrorTypeUnknown, got.FailureDetails[0].ErrorType)
		assert.Empty(t, got.FailureDetails[0].SuggestedFix)
		assert.Equal(t, []string{}, got.FailureDetails[0].AffectedFiles)
	})

	t.Run("check run with no output", func(t *testing.T) {
		got := BuildSummary([]model.CheckRun{
			{Name: "deploy", Status: "completed", Conclusion: "failure"},
		}, nil, time.Time{})

		require.Len(t, got.FailureDetails, 1)
		assert.Equal(t, "Check run failed", got.FailureDetails[0].Summary)
	})

	t.Run("commit status uses context and description", func(t *testing.T) {
		got := BuildSummary(nil, []model.CommitStatus{
			{Context: "ci/eslint", State: "failure", Description: "12 problems", TargetURL: "https://ci.example.com/1"},
		}, time.Time{})

		require.Len(t, got.FailureDetails, 1)
		fd := got.FailureDetails[0]
		assert.Equal(t, "ci/eslint", fd.CheckName)
		assert.Equal(t, model.ErrorTypeLintingError, fd.ErrorType)
		assert.Equal(t, "12 problems", fd.Summary)
		assert.Equal(t, "npm run lint -- --fix", fd.SuggestedFix)
		assert.Equal(t, "https://ci.example.com/1", fd.URL)
	})

	t.Run("commit status without description", func(t *testing.T) {
		got := BuildSummary(nil, []model.CommitStatus{{Context: "ci/x", State: "error"}}, time.Time{})

		require.Len(t, got.FailureDetails, 1)
		assert.Equal(t, "Status reported error", got.FailureDetails[0].Summary)
	})
}

func TestBuildSummary_Duration(t *testing.T) {
	base := time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC)

	t.Run("longest completed run", func(t *testing.T) {
		runs := []model.CheckRun{
			{Name: "a", Status: "completed", Conclusion: "success", StartedAt: base, CompletedAt: base.Add(2 * time.Minute)},
			{Name: "b", Status: "completed", Conclusion: "success", StartedAt: base, CompletedAt: base.Add(5 * time.Minute)},
			{Name: "c", Status: "completed", Conclusion: "success", StartedAt: base.Add(time.Minute), CompletedAt: base.Add(3 * time.Minute)},
		}

		got := BuildSummary(runs, nil, base)

		assert.Equal(t, 5*time.Minute, got.Duration)
		assert.Equal(t, base.Add(5*time.Minute), got.CompletedAt)
		assert.Equal(t, base, got.StartedAt)
	})

	t.Run("undefined while nothing completed", func(t *testing.T) {
		runs := []model.CheckRun{{Name: "a", Status: "in_progress", StartedAt: base}}

		got := BuildSummary(runs, nil, base)

		assert.Zero(t, got.Duration)
		assert.True(t, got.CompletedAt.IsZero())
	})

	t.Run("completed at unset while still pending", func(t *testing.T) {
		runs := []model.CheckRun{
			{Name: "a", Status: "completed", Conclusion: "success", StartedAt: base, CompletedAt: base.Add(time.Minute)},
			{Name: "b", Status: "in_progress", StartedAt: base},
		}

		got := BuildSummary(runs, nil, base)

		assert.Equal(t, time.Minute, got.Duration)
		assert.True(t, got.CompletedAt.IsZero())
	})
}

func TestBuildSummary_EmptyHasNonNilFailureDetails(t *testing.T) {
	got := BuildSummary(nil, nil, time.Time{})

	assert.NotNil(t, got.FailureDetails)
	assert.Zero(t, got.Total)
	assert.Equal(t, model.OverallNone, got.OverallStatus)
}
