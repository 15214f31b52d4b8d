package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/versewright/versewright/pkg/models"
	"github.com/versewright/versewright/pkg/telemetry"
)

// Tier names used in stats and metrics.
const (
	TierMemory     = "memory"
	TierPersistent = "persistent"
)

// Persistent is a durable tier. Entries never expire on their own.
type Persistent interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// Statter provides tier statistics without coupling to a concrete store.
type Statter interface {
	Stats() (models.CacheStats, error)
}

// Policy declares how one operation uses the cache.
type Policy struct {
	// Operation labels metrics and logs.
	Operation string
	// Enabled turns caching on. Operations with intentionally varied output
	// leave it off.
	Enabled bool
	// Persistent additionally reads and writes the durable tier.
	Persistent bool
}

// Layered combines the in-memory tier with an optional durable tier.
// Reads go memory first, then durable (promoting hits into memory); writes go
// to memory and, for persistent policies, to the durable tier.
type Layered struct {
	memory     *Memory
	persistent Persistent
	group      singleflight.Group
	metrics    *telemetry.Metrics
	logger     *slog.Logger
}

// LayeredOption customizes a Layered cache.
type LayeredOption func(*Layered)

// WithMetrics records hits, misses and stores.
func WithMetrics(m *telemetry.Metrics) LayeredOption {
	return func(l *Layered) { l.metrics = m }
}

// WithLogger sets the logger for durable-tier failures.
func WithLogger(logger *slog.Logger) LayeredOption {
	return func(l *Layered) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLayered builds a layered cache. persistent may be nil.
func NewLayered(memory *Memory, persistent Persistent, opts ...LayeredOption) *Layered {
	if memory == nil {
		memory = NewMemory(DefaultTTL)
	}
	l := &Layered{
		memory:     memory,
		persistent: persistent,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "cache")
	return l
}

// Memory returns the in-memory tier.
func (l *Layered) Memory() *Memory { return l.memory }

// HasPersistent reports whether a durable tier is attached.
func (l *Layered) HasPersistent() bool { return l != nil && l.persistent != nil }

// Clear evicts every entry from both tiers.
func (l *Layered) Clear(ctx context.Context) error {
	if l == nil {
		return nil
	}
	l.memory.Clear()
	if l.persistent != nil {
		if err := l.persistent.Clear(ctx); err != nil {
			return fmt.Errorf("clear persistent cache: %w", err)
		}
	}
	return nil
}

// Stats returns statistics for each tier.
func (l *Layered) Stats() ([]models.CacheStats, error) {
	if l == nil {
		return nil, nil
	}
	mem, _ := l.memory.Stats()
	out := []models.CacheStats{mem}
	if s, ok := l.persistent.(Statter); ok {
		st, err := s.Stats()
		if err != nil {
			return out, fmt.Errorf("persistent cache stats: %w", err)
		}
		st.Tier = TierPersistent
		out = append(out, st)
	}
	return out, nil
}

// Memoize returns the cached value for key or computes it with fn.
// The boolean result is true when the value came from the cache.
//
// Concurrent misses on the same key share a single fn call, run with the
// first caller's context. A waiter whose own context is still live retries
// when that shared call was cancelled. Errors and results produced after the
// context was cancelled are never stored.
func Memoize[T any](ctx context.Context, l *Layered, policy Policy, key string, fn func(context.Context) (T, error)) (T, bool, error) {
	if l == nil || !policy.Enabled {
		v, err := fn(ctx)
		return v, false, err
	}

	if v, ok := lookup[T](ctx, l, policy, key); ok {
		return v, true, nil
	}
	l.metrics.CacheMiss(policy.Operation)

	var zero T
	for {
		ch := l.group.DoChan(key, func() (any, error) {
			v, err := fn(ctx)
			if err != nil {
				return v, err
			}
			if ctx.Err() != nil {
				return v, ctx.Err()
			}
			store(ctx, l, policy, key, v)
			return v, nil
		})

		var res singleflight.Result
		select {
		case <-ctx.Done():
			return zero, false, ctx.Err()
		case res = <-ch:
		}

		if res.Err != nil {
			if isContextErr(res.Err) && ctx.Err() == nil {
				l.logger.Debug("shared call cancelled by another caller; retrying",
					"operation", policy.Operation,
				)
				continue
			}
			v, _ := res.Val.(T)
			return v, false, res.Err
		}
		v, ok := res.Val.(T)
		if !ok {
			return zero, false, fmt.Errorf("cache %s: unexpected value type %T", policy.Operation, res.Val)
		}
		return v, false, nil
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func lookup[T any](ctx context.Context, l *Layered, policy Policy, key string) (T, bool) {
	var zero T
	if raw, ok := l.memory.Get(key); ok {
		if v, ok := raw.(T); ok {
			l.metrics.CacheHit(policy.Operation, TierMemory)
			return v, true
		}
		l.logger.Warn("cache entry has unexpected type; ignoring",
			"operation", policy.Operation,
			"type", fmt.Sprintf("%T", raw),
		)
	}
	if !policy.Persistent || l.persistent == nil {
		return zero, false
	}
	data, ok, err := l.persistent.Get(ctx, key)
	if err != nil {
		l.logger.Warn("persistent cache read failed",
			"operation", policy.Operation,
			"error", err,
		)
		return zero, false
	}
	if !ok {
		return zero, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		l.logger.Warn("persistent cache entry undecodable; ignoring",
			"operation", policy.Operation,
			"error", err,
		)
		return zero, false
	}
	l.memory.Set(key, v)
	l.metrics.CacheHit(policy.Operation, TierPersistent)
	return v, true
}

func store[T any](ctx context.Context, l *Layered, policy Policy, key string, v T) {
	l.memory.Set(key, v)
	l.metrics.CacheStore(policy.Operation, TierMemory)
	if !policy.Persistent || l.persistent == nil {
		return
	}
	data, err := json.Marshal(v)
	if err == nil {
		err = l.persistent.Put(ctx, key, data)
	}
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			l.logger.Warn("persistent cache write failed",
				"operation", policy.Operation,
				"error", err,
			)
		}
		return
	}
	l.metrics.CacheStore(policy.Operation, TierPersistent)
}
