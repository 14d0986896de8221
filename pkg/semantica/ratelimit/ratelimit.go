// Package ratelimit caps analyses per client identity over a rolling window.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/cognicore/semantica/pkg/semantica/internalerr"
	"github.com/cognicore/semantica/pkg/semantica/store"
)

// Usage is the part of store.Store the limiter needs.
type Usage interface {
	InsertUsage(ctx context.Context, row store.UsageRow) (string, error)
	CountUsageSince(ctx context.Context, identity string, since time.Time) (int, error)
}

// Limiter counts usage events. Checks are read-then-compare: two requests
// racing past the check may both be recorded.
type Limiter struct {
	usage  Usage
	limit  int
	window time.Duration
	now    func() time.Time
}

// New creates a limiter allowing limit events per window. A limit <= 0
// disables limiting.
func New(usage Usage, limit int, window time.Duration, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{usage: usage, limit: limit, window: window, now: now}
}

// Status is the identity's standing inside the current window.
type Status struct {
	Used      int `json:"used"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

// Check returns ErrRateLimited once identity has limit or more events in the window.
func (l *Limiter) Check(ctx context.Context, identity string) (Status, error) {
	if l.limit <= 0 {
		return Status{}, nil
	}
	used, err := l.usage.CountUsageSince(ctx, identity, l.now().Add(-l.window))
	if err != nil {
		return Status{}, fmt.Errorf("ratelimit: count usage: %w", err)
	}
	st := Status{Used: used, Limit: l.limit, Remaining: max(l.limit-used, 0)}
	if used >= l.limit {
		return st, fmt.Errorf("ratelimit: %s used %d of %d: %w", identity, used, l.limit, internalerr.ErrRateLimited)
	}
	return st, nil
}

// Record appends a usage event for identity.
func (l *Limiter) Record(ctx context.Context, identity, keywords string, tokens int) error {
	_, err := l.usage.InsertUsage(ctx, store.UsageRow{
		Identity:  identity,
		Keywords:  keywords,
		Tokens:    tokens,
		CreatedAt: l.now(),
	})
	if err != nil {
		return fmt.Errorf("ratelimit: record usage: %w", err)
	}
	return nil
}
