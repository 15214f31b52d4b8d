// Package ratelimit paces outbound generation calls with a rolling-window
// request bound plus a minimum spacing between consecutive calls.
package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/versewright/versewright/pkg/telemetry"
)

// Defaults applied to zero-valued Config fields.
const (
	DefaultWindow      = 60 * time.Second
	DefaultMaxRequests = 10
	DefaultMinInterval = 6 * time.Second
)

// Config bounds the request rate.
type Config struct {
	// Window is the rolling interval over which MaxRequests applies.
	Window time.Duration
	// MaxRequests is the most calls allowed to start within any Window.
	MaxRequests int
	// MinInterval separates the start of consecutive calls.
	MinInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.MaxRequests <= 0 {
		c.MaxRequests = DefaultMaxRequests
	}
	if c.MinInterval < 0 {
		c.MinInterval = 0
	}
	return c
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Limiter grants permission to start calls. It is safe for concurrent use;
// each granted caller holds a distinct reserved start time.
type Limiter struct {
	cfg     Config
	now     func() time.Time
	sleep   Sleeper
	metrics *telemetry.Metrics
	logger  *slog.Logger

	mu      sync.Mutex
	history []time.Time // ascending start times, including future reservations
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// WithSleeper overrides how the limiter waits.
func WithSleeper(s Sleeper) Option {
	return func(l *Limiter) {
		if s != nil {
			l.sleep = s
		}
	}
}

// WithMetrics records granted waits.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(l *Limiter) { l.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a Limiter.
func New(cfg Config, opts ...Option) *Limiter {
	l := &Limiter{
		cfg:    cfg.withDefaults(),
		now:    time.Now,
		sleep:  sleepCtx,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "ratelimit")
	return l
}

// Config returns the effective configuration.
func (l *Limiter) Config() Config { return l.cfg }

// Wait blocks until the caller may start a call. It reserves the earliest
// start time that keeps at most MaxRequests starts in any Window and at least
// MinInterval after the previous start, then sleeps until that time.
//
// The only error is ctx.Err(); a cancelled caller gives its reservation back.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	now := l.now()
	l.prune(now)
	slot := l.nextSlot(now)
	l.history = append(l.history, slot)
	l.mu.Unlock()

	wait := slot.Sub(now)
	if wait > 0 {
		l.logger.Debug("rate limit wait", "wait", wait)
		if err := l.sleep(ctx, wait); err != nil {
			l.withdraw(slot)
			return err
		}
	}
	l.metrics.LimiterGranted(wait)
	return nil
}

// Reset forgets all recorded starts.
func (l *Limiter) Reset() {
	l.mu.Lock()
	l.history = nil
	l.mu.Unlock()
}

// Snapshot returns the recorded start times, oldest first.
func (l *Limiter) Snapshot() []time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]time.Time, len(l.history))
	copy(out, l.history)
	return out
}

// prune drops starts that fell out of the window. Caller holds mu.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.cfg.Window)
	i := 0
	for i < len(l.history) && !l.history[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.history = append(l.history[:0], l.history[i:]...)
	}
}

// nextSlot computes the earliest permitted start. Caller holds mu.
func (l *Limiter) nextSlot(now time.Time) time.Time {
	slot := now
	n := len(l.history)
	if n >= l.cfg.MaxRequests {
		if t := l.history[n-l.cfg.MaxRequests].Add(l.cfg.Window); t.After(slot) {
			slot = t
		}
	}
	if n > 0 {
		if t := l.history[n-1].Add(l.cfg.MinInterval); t.After(slot) {
			slot = t
		}
	}
	return slot
}

func (l *Limiter) withdraw(slot time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.history) - 1; i >= 0; i-- {
		if l.history[i].Equal(slot) {
			l.history = append(l.history[:i], l.history[i+1:]...)
			return
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
