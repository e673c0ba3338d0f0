package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a limiter whose state lives in Redis, so every process using the
// same vendor account shares one quota. The per-minute count is a fixed
// window keyed by the minute; spacing uses a SET NX key that expires after
// minDelay.
type Redis struct {
	rdb       redis.Cmdable
	key       string
	perMinute int
	minDelay  time.Duration
	now       func() time.Time
}

func NewRedis(rdb redis.Cmdable, key string, perMinute int, minDelay time.Duration) *Redis {
	return &Redis{
		rdb:       rdb,
		key:       key,
		perMinute: perMinute,
		minDelay:  minDelay,
		now:       time.Now,
	}
}

// RedisFactory adapts NewRedis to a Registry factory.
func RedisFactory(rdb redis.Cmdable) Factory {
	return func(key string, perMinute int, minDelay time.Duration) Limiter {
		return NewRedis(rdb, key, perMinute, minDelay)
	}
}

func (l *Redis) Wait(ctx context.Context) error {
	if err := l.reserveSlot(ctx); err != nil {
		return err
	}
	return l.reserveGap(ctx)
}

func (l *Redis) reserveSlot(ctx context.Context) error {
	if l.perMinute <= 0 {
		return nil
	}
	for {
		now := l.now()
		minute := now.Unix() / 60
		k := fmt.Sprintf("ratelimit:%s:%d", l.key, minute)

		n, err := l.rdb.Incr(ctx, k).Result()
		if err != nil {
			return fmt.Errorf("rate limit counter: %w", err)
		}
		if n == 1 {
			if err := l.rdb.Expire(ctx, k, 2*time.Minute).Err(); err != nil {
				return fmt.Errorf("rate limit expire: %w", err)
			}
		}
		if n <= int64(l.perMinute) {
			return nil
		}

		next := time.Unix((minute+1)*60, 0)
		if err := sleepCtx(ctx, next.Sub(now)); err != nil {
			return err
		}
	}
}

func (l *Redis) reserveGap(ctx context.Context) error {
	if l.minDelay <= 0 {
		return nil
	}
	gapKey := l.key + ":gap"
	for {
		ok, err := l.rdb.SetNX(ctx, gapKey, 1, l.minDelay).Result()
		if err != nil {
			return fmt.Errorf("rate limit gap: %w", err)
		}
		if ok {
			return nil
		}

		wait, err := l.rdb.PTTL(ctx, gapKey).Result()
		if err != nil {
			return fmt.Errorf("rate limit gap ttl: %w", err)
		}
		if wait <= 0 {
			wait = 10 * time.Millisecond
		}
		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}
	}
}
