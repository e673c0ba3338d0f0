// Package ratelimit throttles outgoing marketplace API calls. Each vendor
// account gets a per-minute quota plus a minimum gap between requests.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Limiter blocks until the caller may issue one more request.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Factory builds the limiter for a key on first use.
type Factory func(key string, perMinute int, minDelay time.Duration) Limiter

// Registry hands out one shared limiter per vendor account, so concurrent
// runs against the same credentials draw from the same quota.
type Registry struct {
	mu       sync.Mutex
	limiters map[string]Limiter
	factory  Factory
}

func NewRegistry(factory Factory) *Registry {
	if factory == nil {
		factory = LocalFactory
	}
	return &Registry{
		limiters: make(map[string]Limiter),
		factory:  factory,
	}
}

// For returns the limiter for vendor+account. Limits only apply when the
// limiter is first created.
func (r *Registry) For(vendor, account string, perMinute int, minDelay time.Duration) Limiter {
	key := Key(vendor, account)

	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.limiters[key]; ok {
		return l
	}
	l := r.factory(key, perMinute, minDelay)
	r.limiters[key] = l
	return l
}

func Key(vendor, account string) string {
	if account == "" {
		account = "default"
	}
	return fmt.Sprintf("%s:%s", vendor, account)
}

// LocalFactory builds in-process windows.
func LocalFactory(_ string, perMinute int, minDelay time.Duration) Limiter {
	return NewWindow(perMinute, minDelay)
}

// sleepCtx sleeps for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
