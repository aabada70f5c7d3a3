package application

import (
	"errors"
	"math"
	"time"
)

// Default poll backoff: start at 5s, grow by half each poll, cap at 30s.
const (
	defaultInitialInterval = 5 * time.Second
	defaultMaxInterval     = 30 * time.Second
	defaultMultiplier      = 1.5
)

// BackoffConfig describes an exponential poll schedule.
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// DefaultBackoffConfig returns the 5s → 30s, ×1.5 schedule.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial:    defaultInitialInterval,
		Max:        defaultMaxInterval,
		Multiplier: defaultMultiplier,
	}
}

// Validate checks that the schedule is non-decreasing and bounded.
func (c BackoffConfig) Validate() error {
	if c.Initial <= 0 {
		return errors.New("initial interval must be positive")
	}
	if c.Max < c.Initial {
		return errors.New("max interval must not be less than initial interval")
	}
	if c.Multiplier < 1 {
		return errors.New("multiplier must be at least 1")
	}
	return nil
}

// withDefaults fills zero fields from the default schedule.
func (c BackoffConfig) withDefaults() BackoffConfig {
	d := DefaultBackoffConfig()
	if c.Initial <= 0 {
		c.Initial = d.Initial
	}
	if c.Max <= 0 {
		c.Max = max(d.Max, c.Initial)
	}
	if c.Multiplier <= 0 {
		c.Multiplier = d.Multiplier
	}
	return c
}

// IntervalAt returns the n-th interval (0-based) of the schedule:
// min(Max, Initial × Multiplierⁿ).
func (c BackoffConfig) IntervalAt(n int) time.Duration {
	raw := float64(c.Initial) * math.Pow(c.Multiplier, float64(n))
	if raw >= float64(c.Max) {
		return c.Max
	}
	return time.Duration(raw)
}

// Backoff tracks the current position in a poll schedule. Each wait owns its
// own Backoff; it is not safe for concurrent use.
type Backoff struct {
	cfg     BackoffConfig
	current time.Duration
}

// NewBackoff creates a Backoff positioned at the initial interval.
func NewBackoff(cfg BackoffConfig) *Backoff {
	cfg = cfg.withDefaults()
	return &Backoff{cfg: cfg, current: cfg.Initial}
}

// Current returns the interval the next call to Next will return.
func (b *Backoff) Current() time.Duration {
	return b.current
}

// Next returns the current interval and advances the schedule.
func (b *Backoff) Next() time.Duration {
	d := b.current
	grown := time.Duration(float64(b.current) * b.cfg.Multiplier)
	b.current = min(b.cfg.Max, grown)
	return d
}

// Reset moves the schedule back to the initial interval.
func (b *Backoff) Reset() {
	b.current = b.cfg.Initial
}
