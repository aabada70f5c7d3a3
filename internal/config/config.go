// Package config loads ciwatch settings from an optional YAML file and
// CIWATCH_ environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Output formats accepted by Format.
const (
	FormatText     = "text"
	FormatCompact  = "compact"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
	FormatJSON     = "json"
)

// Config holds the resolved settings for one ciwatch invocation.
type Config struct {
	GitHubToken  string
	Repo         string // owner/repo; may be empty until a PR URL supplies it.
	Timeout      time.Duration
	PollInterval time.Duration
	MaxInterval  time.Duration
	Multiplier   float64
	FailFast     bool
	RetryFlaky   bool
	MaxRetries   int
	RetryDelay   time.Duration
	HistoryDB    string // Empty disables run history.
	LogLevel     string
	Format       string

	// File is the config file that was read, or empty if none was found.
	File string
}

// fileConfig mirrors the YAML file. Pointers distinguish "unset" from zero.
type fileConfig struct {
	GitHubToken  *string  `yaml:"github_token"`
	Repo         *string  `yaml:"repo"`
	Timeout      *string  `yaml:"timeout"`
	PollInterval *string  `yaml:"poll_interval"`
	MaxInterval  *string  `yaml:"max_interval"`
	Multiplier   *float64 `yaml:"multiplier"`
	FailFast     *bool    `yaml:"fail_fast"`
	RetryFlaky   *bool    `yaml:"retry_flaky"`
	MaxRetries   *int     `yaml:"max_retries"`
	RetryDelay   *string  `yaml:"retry_delay"`
	HistoryDB    *string  `yaml:"history_db"`
	LogLevel     *string  `yaml:"log_level"`
	Format       *string  `yaml:"format"`
}

// Default returns the built-in settings: a 10 minute fail-fast wait polling
// from 5s up to 30s, with history kept in the user cache directory.
func Default() *Config {
	return &Config{
		Timeout:      10 * time.Minute,
		PollInterval: 5 * time.Second,
		MaxInterval:  30 * time.Second,
		Multiplier:   1.5,
		FailFast:     true,
		MaxRetries:   3,
		RetryDelay:   5 * time.Second,
		HistoryDB:    defaultHistoryPath(),
		LogLevel:     "info",
		Format:       FormatText,
	}
}

func defaultHistoryPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "ciwatch", "history.db")
}

// Load builds a Config from defaults, then the YAML file, then environment
// variables. An explicit path must exist; with an empty path the first of
// ./.ciwatch.yaml and ~/.config/ciwatch/config.yaml that exists is used.
// Load does not validate; callers apply flag overrides first and then call
// Validate.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
		cfg.File = path
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// findConfigFile returns the first standard config location that exists.
func findConfigFile() string {
	candidates := []string{".ciwatch.yaml"}

	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "ciwatch", "config.yaml"))
	}

	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config file %s does not exist", path)
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing config YAML %s: %w", path, err)
	}

	setString(&c.GitHubToken, fc.GitHubToken)
	setString(&c.Repo, fc.Repo)
	setString(&c.HistoryDB, fc.HistoryDB)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.Format, fc.Format)

	if fc.Multiplier != nil {
		c.Multiplier = *fc.Multiplier
	}
	if fc.FailFast != nil {
		c.FailFast = *fc.FailFast
	}
	if fc.RetryFlaky != nil {
		c.RetryFlaky = *fc.RetryFlaky
	}
	if fc.MaxRetries != nil {
		c.MaxRetries = *fc.MaxRetries
	}

	durations := []struct {
		key string
		src *string
		dst *time.Duration
	}{
		{"timeout", fc.Timeout, &c.Timeout},
		{"poll_interval", fc.PollInterval, &c.PollInterval},
		{"max_interval", fc.MaxInterval, &c.MaxInterval},
		{"retry_delay", fc.RetryDelay, &c.RetryDelay},
	}
	for _, d := range durations {
		if d.src == nil {
			continue
		}
		parsed, err := time.ParseDuration(*d.src)
		if err != nil {
			return fmt.Errorf("%s: %s has invalid duration %q: %w", path, d.key, *d.src, err)
		}
		*d.dst = parsed
	}

	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// applyEnv overlays CIWATCH_ environment variables. CIWATCH_GITHUB_TOKEN
// falls back to GITHUB_TOKEN.
func (c *Config) applyEnv() error {
	if v := os.Getenv("CIWATCH_GITHUB_TOKEN"); v != "" {
		c.GitHubToken = v
	} else if v := os.Getenv("GITHUB_TOKEN"); v != "" && c.GitHubToken == "" {
		c.GitHubToken = v
	}

	if v, ok := os.LookupEnv("CIWATCH_REPO"); ok {
		c.Repo = v
	}
	if v, ok := os.LookupEnv("CIWATCH_HISTORY_DB"); ok {
		c.HistoryDB = v
	}
	if v, ok := os.LookupEnv("CIWATCH_LOG_LEVEL"); ok {
		c.LogLevel = v
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"CIWATCH_TIMEOUT", &c.Timeout},
		{"CIWATCH_POLL_INTERVAL", &c.PollInterval},
		{"CIWATCH_MAX_INTERVAL", &c.MaxInterval},
	}
	for _, d := range durations {
		v, ok := os.LookupEnv(d.key)
		if !ok {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s has invalid duration %q: %w", d.key, v, err)
		}
		*d.dst = parsed
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"CIWATCH_FAIL_FAST", &c.FailFast},
		{"CIWATCH_RETRY_FLAKY", &c.RetryFlaky},
	}
	for _, b := range bools {
		v, ok := os.LookupEnv(b.key)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s has invalid boolean %q: %w", b.key, v, err)
		}
		*b.dst = parsed
	}

	if v, ok := os.LookupEnv("CIWATCH_MAX_RETRIES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CIWATCH_MAX_RETRIES has invalid integer %q: %w", v, err)
		}
		c.MaxRetries = n
	}

	return nil
}

var repoPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)

var validFormats = []string{FormatText, FormatCompact, FormatMarkdown, FormatHTML, FormatJSON}

var validLogLevels = []string{"debug", "info", "warn", "error"}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	positive := []struct {
		name string
		d    time.Duration
	}{
		{"timeout", c.Timeout},
		{"poll interval", c.PollInterval},
		{"max interval", c.MaxInterval},
		{"retry delay", c.RetryDelay},
	}
	for _, p := range positive {
		if p.d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", p.name, p.d))
		}
	}

	if c.MaxInterval > 0 && c.PollInterval > c.MaxInterval {
		errs = append(errs, fmt.Errorf("poll interval %s exceeds max interval %s", c.PollInterval, c.MaxInterval))
	}
	if c.Multiplier < 1 {
		errs = append(errs, fmt.Errorf("multiplier must be at least 1, got %g", c.Multiplier))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max retries must not be negative, got %d", c.MaxRetries))
	}
	if c.Repo != "" && !repoPattern.MatchString(c.Repo) {
		errs = append(errs, fmt.Errorf("invalid repo %q: expected owner/repo", c.Repo))
	}
	if !slices.Contains(validFormats, c.Format) {
		errs = append(errs, fmt.Errorf("unknown format %q (want one of %s)", c.Format, strings.Join(validFormats, ", ")))
	}
	if !slices.Contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		errs = append(errs, fmt.Errorf("unknown log level %q (want one of %s)", c.LogLevel, strings.Join(validLogLevels, ", ")))
	}

	return errors.Join(errs...)
}
