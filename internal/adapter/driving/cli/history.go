package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/ciwatch/internal/adapter/driving/report"
	"github.com/ericfisherdev/ciwatch/internal/config"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit int
		all   bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent waits recorded on this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.validate(); err != nil {
				return err
			}
			if a.cfg.HistoryDB == "" {
				return &ExitCodeError{Code: ExitError, Err: errors.New("run history is disabled (history_db is empty)")}
			}

			history, closeHistory := a.openHistory(a.cfg.HistoryDB)
			defer closeHistory()
			if !history.Enabled() {
				return &ExitCodeError{Code: ExitError, Err: errors.New("run history is unavailable")}
			}

			repo := a.cfg.Repo
			if all {
				repo = ""
			}

			runs, err := history.Recent(cmd.Context(), repo, limit)
			if err != nil {
				return &ExitCodeError{Code: ExitError, Err: err}
			}

			out := cmd.OutOrStdout()
			if a.cfg.Format == config.FormatJSON {
				return report.WriteJSON(out, runs)
			}
			report.WriteHistoryTable(out, runs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	cmd.Flags().BoolVar(&all, "all", false, "show runs for every repository, ignoring --repo")

	return cmd
}
