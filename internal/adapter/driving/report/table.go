package report

import (
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
)

var outcomeLabels = map[model.Outcome]string{
	model.OutcomeSuccess:         "✅ success",
	model.OutcomeFailure:         "🔴 failure",
	model.OutcomeCriticalFailure: "🔴 fail-fast",
	model.OutcomeTimeout:         "⌛ timeout",
}

// WriteHistoryTable writes recorded runs as an aligned, borderless table.
func WriteHistoryTable(w io.Writer, runs []model.RunRecord) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Finished", "Repo", "Target", "Commit", "Outcome", "Passed", "Failed", "Pending", "Retries", "Duration"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)

	for _, run := range runs {
		table.Append([]string{
			strconv.FormatInt(run.ID, 10),
			run.FinishedAt.Local().Format("2006-01-02 15:04"),
			run.RepoFullName,
			run.Identifier,
			shortSHA(run.CommitSHA),
			outcomeLabel(run.Outcome),
			strconv.Itoa(run.Passed),
			strconv.Itoa(run.Failed),
			strconv.Itoa(run.Pending),
			strconv.Itoa(run.RetriesUsed),
			run.Duration.Round(time.Second).String(),
		})
	}

	table.Render()
}

func outcomeLabel(o model.Outcome) string {
	if label, ok := outcomeLabels[o]; ok {
		return label
	}
	return string(o)
}
