package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/ciwatch/internal/adapter/driving/report"
	"github.com/ericfisherdev/ciwatch/internal/application"
	"github.com/ericfisherdev/ciwatch/internal/config"
	"github.com/ericfisherdev/ciwatch/internal/domain/model"
)

// Progress modes for --progress.
const (
	progressAuto   = "auto"
	progressAlways = "always"
	progressNever  = "never"
)

type waitFlags struct {
	timeout     time.Duration
	interval    time.Duration
	maxInterval time.Duration
	noFailFast  bool
	retryFlaky  bool
	maxRetries  int
	retryDelay  time.Duration
	noHistory   bool
	progress    string
}

func newWaitCmd(a *app) *cobra.Command {
	var f waitFlags

	cmd := &cobra.Command{
		Use:   "wait <pr-number|pr-url|branch|sha>",
		Short: "Wait for CI checks to finish and report the result",
		Long: `Poll the checks of a pull request, branch or commit until they all finish,
a test, build or security check fails (unless --no-fail-fast), or the timeout
expires. Progress is written to stderr and the final report to stdout.`,
		Example: `  ciwatch wait 42
  ciwatch wait https://github.com/octo/widgets/pull/42 --json
  ciwatch wait main --repo octo/widgets --timeout 20m --retry-flaky`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.apply(cmd, a.cfg)
			if err := a.validate(); err != nil {
				return err
			}
			if f.progress != progressAuto && f.progress != progressAlways && f.progress != progressNever {
				return &ExitCodeError{Code: ExitError, Err: fmt.Errorf("unknown progress mode %q", f.progress)}
			}
			return a.runWait(cmd, args[0], f)
		},
	}

	flags := cmd.Flags()
	flags.DurationVar(&f.timeout, "timeout", 0, "give up after this long (default 10m)")
	flags.DurationVar(&f.interval, "interval", 0, "first poll interval (default 5s)")
	flags.DurationVar(&f.maxInterval, "max-interval", 0, "longest poll interval (default 30s)")
	flags.BoolVar(&f.noFailFast, "no-fail-fast", false, "keep waiting after a test, build or security failure")
	flags.BoolVar(&f.retryFlaky, "retry-flaky", false, "keep polling after failures that mention timeouts, network errors or flakiness")
	flags.IntVar(&f.maxRetries, "max-retries", 0, "flaky retries before giving up (default 3)")
	flags.DurationVar(&f.retryDelay, "retry-delay", 0, "pause between flaky retries (default 5s)")
	flags.BoolVar(&f.noHistory, "no-history", false, "do not record this run in the local history")
	flags.StringVar(&f.progress, "progress", progressAuto, "progress lines on stderr: auto, always or never")

	return cmd
}

// apply copies explicitly set flags over the loaded config.
func (f *waitFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("timeout") {
		cfg.Timeout = f.timeout
	}
	if changed("interval") {
		cfg.PollInterval = f.interval
	}
	if changed("max-interval") {
		cfg.MaxInterval = f.maxInterval
	}
	if changed("no-fail-fast") {
		cfg.FailFast = !f.noFailFast
	}
	if changed("retry-flaky") {
		cfg.RetryFlaky = f.retryFlaky
	}
	if changed("max-retries") {
		cfg.MaxRetries = f.maxRetries
	}
	if changed("retry-delay") {
		cfg.RetryDelay = f.retryDelay
	}
	if f.noHistory {
		cfg.HistoryDB = ""
	}
}

func waitOptions(cfg *config.Config) application.WaitOptions {
	opts := application.DefaultWaitOptions()
	opts.Timeout = cfg.Timeout
	opts.Backoff = application.BackoffConfig{
		Initial:    cfg.PollInterval,
		Max:        cfg.MaxInterval,
		Multiplier: cfg.Multiplier,
	}
	opts.FailFast = cfg.FailFast
	opts.RetryFlaky = cfg.RetryFlaky
	opts.Retry = application.RetryOptions{
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
	}
	return opts
}

func (a *app) runWait(cmd *cobra.Command, identifier string, f waitFlags) error {
	ctx := cmd.Context()
	cfg := a.cfg

	target, err := resolveTarget(ctx, identifier, cfg.Repo, a.deps.GitRemote)
	if err != nil {
		return &ExitCodeError{Code: ExitError, Err: err}
	}

	history, closeHistory := a.openHistory(cfg.HistoryDB)
	defer closeHistory()

	opts := waitOptions(cfg)

	// Printed on the polling goroutine; every update reaches stderr.
	stderr := cmd.ErrOrStderr()
	if f.progress == progressAlways || (f.progress == progressAuto && a.deps.IsTerminal(stderr)) {
		opts.OnProgress = func(u model.ProgressUpdate) {
			fmt.Fprintln(stderr, report.FormatProgress(u))
		}
	}

	slog.Debug("starting wait", "repo", target.RepoFullName, "identifier", target.Identifier)

	poller := application.NewPoller(a.deps.NewFetcher(cfg.GitHubToken))
	result, waitErr := poller.WaitForChecks(ctx, target, opts)

	if err := history.RecordWait(ctx, target, result, waitErr); err != nil {
		slog.Warn("failed to record run history", "error", err)
	}

	out := cmd.OutOrStdout()

	var timeoutErr *application.TimeoutError
	switch {
	case errors.As(waitErr, &timeoutErr):
		if err := writeTimeout(out, cfg.Format, timeoutErr); err != nil {
			return &ExitCodeError{Code: ExitError, Err: err}
		}
		return &ExitCodeError{Code: ExitTimeout, Err: timeoutErr}
	case waitErr != nil:
		return &ExitCodeError{Code: ExitError, Err: waitErr}
	}

	if err := writeResult(out, cfg.Format, result); err != nil {
		return &ExitCodeError{Code: ExitError, Err: err}
	}
	return resultError(result)
}

// openHistory returns a HistoryService over the configured database. A
// database that cannot be opened only disables recording.
func (a *app) openHistory(path string) (*application.HistoryService, func()) {
	if path == "" {
		return application.NewHistoryService(nil), func() {}
	}

	store, closer, err := a.deps.OpenHistory(path)
	if err != nil {
		slog.Warn("run history disabled", "path", path, "error", err)
		return application.NewHistoryService(nil), func() {}
	}

	return application.NewHistoryService(store), func() {
		if err := closer.Close(); err != nil {
			slog.Error("error closing history database", "error", err)
		}
	}
}

// timeoutReport is the JSON shape of a timed-out wait.
type timeoutReport struct {
	Success   bool                `json:"success"`
	TimedOut  bool                `json:"timed_out"`
	CommitSHA string              `json:"commit_sha"`
	Elapsed   time.Duration       `json:"elapsed"`
	Timeout   time.Duration       `json:"timeout"`
	Summary   *model.CheckSummary `json:"summary"`
}

func writeTimeout(w io.Writer, format string, e *application.TimeoutError) error {
	if format == config.FormatJSON {
		return report.WriteJSON(w, timeoutReport{
			TimedOut:  true,
			CommitSHA: e.CommitSHA,
			Elapsed:   e.Elapsed,
			Timeout:   e.Timeout,
			Summary:   e.Last,
		})
	}

	if e.Last != nil {
		last := model.CheckResult{CommitSHA: e.CommitSHA, Summary: *e.Last, Duration: e.Elapsed}
		if err := writeResult(w, format, &last); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "⌛ %s\n", e.Error())
	return err
}

func writeResult(w io.Writer, format string, r *model.CheckResult) error {
	var err error
	switch format {
	case config.FormatJSON:
		return report.WriteJSON(w, r)
	case config.FormatCompact:
		_, err = fmt.Fprintln(w, report.FormatCompact(r.Summary))
	case config.FormatMarkdown:
		_, err = fmt.Fprint(w, report.FormatMarkdown(*r))
	case config.FormatHTML:
		_, err = fmt.Fprint(w, report.RenderHTML(report.FormatMarkdown(*r)))
	default:
		_, err = fmt.Fprint(w, report.FormatCheckSummary(r.Summary))
		if err == nil && r.RetriesUsed > 0 {
			_, err = fmt.Fprintf(w, "Flaky retries used: %d\n", r.RetriesUsed)
		}
		if err == nil && r.Reason == model.ReasonCriticalFailure {
			_, err = fmt.Fprintln(w, "Stopped early on a critical failure; remaining checks were not awaited.")
		}
	}
	return err
}
