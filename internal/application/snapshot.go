package application

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
	"github.com/ericfisherdev/ciwatch/internal/domain/port/driven"
)

// BuildSummary merges check runs from the Checks API and commit statuses from
// the Status API into one snapshot. The two lists are not deduplicated against
// each other; a check reported by both APIs is counted twice. BuildSummary
// performs no I/O.
func BuildSummary(checkRuns []model.CheckRun, statuses []model.CommitStatus, startedAt time.Time) model.CheckSummary {
	summary := model.CheckSummary{
		Total:          len(checkRuns) + len(statuses),
		FailureDetails: []model.FailureDetail{},
		StartedAt:      startedAt,
	}

	var lastCompleted time.Time

	for _, cr := range checkRuns {
		if !cr.IsCompleted() {
			// queued, in_progress, waiting, requested, pending
			summary.Pending++
			continue
		}

		if cr.CompletedAt.After(lastCompleted) {
			lastCompleted = cr.CompletedAt
		}
		if !cr.StartedAt.IsZero() && !cr.CompletedAt.IsZero() {
			if d := cr.CompletedAt.Sub(cr.StartedAt); d > summary.Duration {
				summary.Duration = d
			}
		}

		switch cr.Conclusion {
		case "success", "neutral":
			summary.Passed++
			summary.PassedChecks = append(summary.PassedChecks, cr.Name)
		case "failure":
			summary.Failed++
			summary.FailureDetails = append(summary.FailureDetails, checkRunFailure(cr))
		case "skipped":
			summary.Skipped++
		default:
			// cancelled, timed_out, action_required: counted in Total only.
		}
	}

	for _, st := range statuses {
		switch st.State {
		case "success":
			summary.Passed++
			summary.PassedChecks = append(summary.PassedChecks, st.Context)
		case "failure", "error":
			summary.Failed++
			summary.FailureDetails = append(summary.FailureDetails, commitStatusFailure(st))
		case "pending":
			summary.Pending++
		}
	}

	summary.OverallStatus = overallStatus(summary)
	if summary.OverallStatus != model.OverallPending && !lastCompleted.IsZero() {
		summary.CompletedAt = lastCompleted
	}

	return summary
}

// overallStatus applies the priority failing > pending > none > success.
func overallStatus(s model.CheckSummary) model.OverallStatus {
	switch {
	case s.Failed > 0:
		return model.OverallFailure
	case s.Pending > 0:
		return model.OverallPending
	case s.Total == 0:
		return model.OverallNone
	default:
		return model.OverallSuccess
	}
}

func checkRunFailure(cr model.CheckRun) model.FailureDetail {
	summary := firstNonEmpty(cr.Output.Summary, cr.Output.Title, "Check run failed")
	errType := ClassifyError(cr.Name, cr.Output.Summary, cr.Output.Title)
	files := ExtractAffectedFiles(cr.Output.Text)

	return model.FailureDetail{
		CheckName:     cr.Name,
		ErrorType:     errType,
		Summary:       summary,
		AffectedFiles: files,
		SuggestedFix:  Suggest(summary, errType, files).Command,
		URL:           cr.DetailsURL,
	}
}

func commitStatusFailure(st model.CommitStatus) model.FailureDetail {
	summary := firstNonEmpty(st.Description, "Status reported "+st.State)
	errType := ClassifyError(st.Context, st.Description, "")
	files := []string{}

	return model.FailureDetail{
		CheckName:     st.Context,
		ErrorType:     errType,
		Summary:       summary,
		AffectedFiles: files,
		SuggestedFix:  Suggest(summary, errType, files).Command,
		URL:           st.TargetURL,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// fetchSnapshot reads both status sources for sha and builds a summary.
// Fetch errors are returned as-is with context; they are not retried here.
func fetchSnapshot(ctx context.Context, fetcher driven.StatusFetcher, repoFullName, sha string, startedAt time.Time) (model.CheckSummary, error) {
	runs, err := fetcher.FetchCheckRuns(ctx, repoFullName, sha)
	if err != nil {
		return model.CheckSummary{}, fmt.Errorf("fetching check runs: %w", err)
	}

	combined, err := fetcher.FetchCombinedStatus(ctx, repoFullName, sha)
	if err != nil {
		return model.CheckSummary{}, fmt.Errorf("fetching commit statuses: %w", err)
	}

	var statuses []model.CommitStatus
	if combined != nil {
		statuses = combined.Statuses
	}

	return BuildSummary(runs, statuses, startedAt), nil
}
