// Package cli implements the ciwatch command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	ghAdapter "github.com/ericfisherdev/ciwatch/internal/adapter/driven/github"
	sqliteAdapter "github.com/ericfisherdev/ciwatch/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/ciwatch/internal/config"
	"github.com/ericfisherdev/ciwatch/internal/domain/port/driven"
)

var version = "dev"

// SetVersion records the build version shown by "ciwatch version".
func SetVersion(v string) {
	version = v
}

// Deps are the outside-world collaborators the commands use. Zero fields are
// filled with the real implementations by NewRootCommand.
type Deps struct {
	NewFetcher  func(token string) driven.StatusFetcher
	OpenHistory func(path string) (driven.HistoryStore, io.Closer, error)
	GitRemote   GitRemoteFunc
	// IsTerminal reports whether progress lines should be written to w.
	IsTerminal func(w io.Writer) bool
}

func (d Deps) withDefaults() Deps {
	if d.NewFetcher == nil {
		d.NewFetcher = func(token string) driven.StatusFetcher { return ghAdapter.NewClient(token) }
	}
	if d.OpenHistory == nil {
		d.OpenHistory = openSQLiteHistory
	}
	if d.GitRemote == nil {
		d.GitRemote = gitOriginURL
	}
	if d.IsTerminal == nil {
		d.IsTerminal = isTerminal
	}
	return d
}

func openSQLiteHistory(path string) (driven.HistoryStore, io.Closer, error) {
	db, err := sqliteAdapter.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening history database: %w", err)
	}
	return sqliteAdapter.NewHistoryRepo(db), db, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// app is the state shared by every command in one invocation.
type app struct {
	deps Deps
	cfg  *config.Config

	configPath string
	repo       string
	format     string
	jsonOut    bool
	verbose    bool
	quiet      bool
}

// NewRootCommand builds the ciwatch command tree.
func NewRootCommand(deps Deps) *cobra.Command {
	a := &app{deps: deps.withDefaults()}

	rootCmd := &cobra.Command{
		Use:   "ciwatch",
		Short: "ciwatch: wait on GitHub CI and explain what failed",
		Long: `ciwatch polls the checks of a pull request or commit until they settle,
classifies each failure (tests, lint, types, security, build, formatting),
lists the files involved, and suggests a command to fix it.

Exit status is 0 when checks pass, 1 when they fail, 2 on timeout and 3 on
usage, configuration or GitHub API errors.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ./.ciwatch.yaml, then ~/.config/ciwatch/config.yaml)")
	flags.StringVarP(&a.repo, "repo", "R", "", "repository as owner/repo (default from config or the origin remote)")
	flags.StringVarP(&a.format, "format", "f", "", "output format: text, compact, markdown, html or json")
	flags.BoolVar(&a.jsonOut, "json", false, "shorthand for --format json")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log debug details to stderr")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "only log errors")

	rootCmd.AddCommand(newWaitCmd(a))
	rootCmd.AddCommand(newStatusCmd(a))
	rootCmd.AddCommand(newHistoryCmd(a))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// Execute runs the command tree with args and returns the error whose
// ExitCode should terminate the process.
func Execute(ctx context.Context, args []string) error {
	rootCmd := NewRootCommand(Deps{})
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// setup loads configuration, applies global flags and configures logging.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return &ExitCodeError{Code: ExitError, Err: err}
	}

	if cmd.Flags().Changed("repo") {
		cfg.Repo = a.repo
	}
	if cmd.Flags().Changed("format") {
		cfg.Format = strings.ToLower(a.format)
	}
	if a.jsonOut {
		cfg.Format = config.FormatJSON
	}
	switch {
	case a.verbose:
		cfg.LogLevel = "debug"
	case a.quiet:
		cfg.LogLevel = "error"
	}

	a.cfg = cfg
	setupLogging(cmd.ErrOrStderr(), cfg.LogLevel)

	if cfg.File != "" {
		slog.Debug("config loaded", "file", cfg.File)
	}
	return nil
}

// validate applies command-specific overrides before checking the config.
func (a *app) validate() error {
	if err := a.cfg.Validate(); err != nil {
		return &ExitCodeError{Code: ExitError, Err: fmt.Errorf("invalid configuration: %w", err)}
	}
	return nil
}

func setupLogging(w io.Writer, level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
}
