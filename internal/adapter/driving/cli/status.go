package cli

import (
	"github.com/spf13/cobra"

	"github.com/ericfisherdev/ciwatch/internal/adapter/driving/report"
	"github.com/ericfisherdev/ciwatch/internal/application"
	"github.com/ericfisherdev/ciwatch/internal/config"
	"github.com/ericfisherdev/ciwatch/internal/domain/model"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <pr-number|pr-url|branch|sha>",
		Short: "Show the current state of CI checks without waiting",
		Long: `Take a single snapshot of a pull request's or commit's checks and report it.
Exits 1 if any check has already failed, 0 otherwise (including while checks
are still running).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			target, err := resolveTarget(ctx, args[0], a.cfg.Repo, a.deps.GitRemote)
			if err != nil {
				return &ExitCodeError{Code: ExitError, Err: err}
			}

			svc := application.NewStatusService(a.deps.NewFetcher(a.cfg.GitHubToken))
			summary, err := svc.GetDetailedCheckStatus(ctx, target)
			if err != nil {
				return &ExitCodeError{Code: ExitError, Err: err}
			}

			out := cmd.OutOrStdout()
			if a.cfg.Format == config.FormatJSON {
				err = report.WriteJSON(out, summary)
			} else {
				err = writeResult(out, a.cfg.Format, &model.CheckResult{
					Success: summary.Failed == 0,
					Summary: *summary,
				})
			}
			if err != nil {
				return &ExitCodeError{Code: ExitError, Err: err}
			}

			if summary.Failed > 0 {
				return &ExitCodeError{Code: ExitFailure}
			}
			return nil
		},
	}
}
