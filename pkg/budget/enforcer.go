// Package budget caps the tokens spent on generation calls per period.
package budget

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/versewright/versewright/pkg/gemini"
	"github.com/versewright/versewright/pkg/models"
)

// ErrBudgetExceeded is returned when the period's token budget is used up.
// It wraps gemini.ErrQuotaExceeded so callers treat it like an upstream quota.
var ErrBudgetExceeded = fmt.Errorf("token budget exceeded: %w", gemini.ErrQuotaExceeded)

// Periods.
const (
	PeriodDaily   = "daily"
	PeriodMonthly = "monthly"
)

// TokenCounter reports tokens used since a point in time.
type TokenCounter interface {
	TotalTokens(ctx context.Context, since time.Time) (int64, error)
}

// Enforcer checks recorded token usage against a budget.
type Enforcer struct {
	maxTokens int64
	period    string
	counter   TokenCounter
	now       func() time.Time
}

// New creates an Enforcer. period defaults to daily.
func New(maxTokens int64, period string, counter TokenCounter) *Enforcer {
	period = strings.ToLower(strings.TrimSpace(period))
	if period != PeriodMonthly {
		period = PeriodDaily
	}
	return &Enforcer{maxTokens: maxTokens, period: period, counter: counter, now: time.Now}
}

// Check returns ErrBudgetExceeded once usage in the current period reaches
// the budget.
func (e *Enforcer) Check(ctx context.Context) error {
	used, err := e.counter.TotalTokens(ctx, e.periodStart())
	if err != nil {
		return fmt.Errorf("budget check: %w", err)
	}
	if used >= e.maxTokens {
		return ErrBudgetExceeded
	}
	return nil
}

// Status reports usage against the budget for the current period.
func (e *Enforcer) Status(ctx context.Context) (models.BudgetStatus, error) {
	since := e.periodStart()
	used, err := e.counter.TotalTokens(ctx, since)
	if err != nil {
		return models.BudgetStatus{}, fmt.Errorf("budget status: %w", err)
	}
	remaining := e.maxTokens - used
	if remaining < 0 {
		remaining = 0
	}
	return models.BudgetStatus{
		Period:    e.period,
		Since:     since,
		MaxTokens: e.maxTokens,
		Used:      used,
		Remaining: remaining,
	}, nil
}

func (e *Enforcer) periodStart() time.Time {
	now := e.now().UTC()
	if e.period == PeriodMonthly {
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// Waiter is the pacing hook run before each generation call.
type Waiter interface {
	Wait(ctx context.Context) error
}

// Guard checks the budget before delegating to the next Waiter, so a call
// over budget neither reaches the API nor consumes a rate-limit slot.
type Guard struct {
	enforcer *Enforcer
	next     Waiter
}

// NewGuard wraps next. next may be nil.
func NewGuard(e *Enforcer, next Waiter) *Guard {
	return &Guard{enforcer: e, next: next}
}

// Wait implements Waiter.
func (g *Guard) Wait(ctx context.Context) error {
	if err := g.enforcer.Check(ctx); err != nil {
		return err
	}
	if g.next == nil {
		return nil
	}
	return g.next.Wait(ctx)
}

// Reset forwards to the wrapped Waiter when it supports resetting.
func (g *Guard) Reset() {
	if r, ok := g.next.(interface{ Reset() }); ok {
		r.Reset()
	}
}
