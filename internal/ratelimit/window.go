package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Window is the in-process limiter: a one-minute request counter that
// blocks until the window resets once perMinute is reached, plus a fixed
// minimum delay between consecutive requests.
type Window struct {
	mu          sync.Mutex
	perMinute   int
	minDelay    time.Duration
	count       int
	windowStart time.Time
	lastRequest time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewWindow(perMinute int, minDelay time.Duration) *Window {
	return &Window{
		perMinute: perMinute,
		minDelay:  minDelay,
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

// Wait reserves a slot. The mutex is held while sleeping so callers are
// served in order.
func (w *Window) Wait(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	if w.windowStart.IsZero() || now.Sub(w.windowStart) >= time.Minute {
		w.windowStart = now
		w.count = 0
	}

	if w.perMinute > 0 && w.count >= w.perMinute {
		if err := w.sleep(ctx, w.windowStart.Add(time.Minute).Sub(now)); err != nil {
			return err
		}
		now = w.now()
		w.windowStart = now
		w.count = 0
	}

	if !w.lastRequest.IsZero() {
		if gap := w.minDelay - now.Sub(w.lastRequest); gap > 0 {
			if err := w.sleep(ctx, gap); err != nil {
				return err
			}
			now = w.now()
		}
	}

	w.count++
	w.lastRequest = now
	return nil
}
