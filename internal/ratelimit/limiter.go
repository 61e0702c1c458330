package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	ipWindow     = 15 * time.Minute
	ipMaxHits    = 10
	mailCooldown = 2 * time.Minute
)

// Limiter implements fixed-window rate limiting and per-address mail
// cooldowns on top of Redis. Counters expire with the window, so there is
// nothing to clean up.
type Limiter struct {
	client *redis.Client
}

func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{client: client}
}

// CheckIPRateLimitWithPurpose reports whether the IP has exhausted its
// window for one endpoint family. Separate purposes count independently.
func (l *Limiter) CheckIPRateLimitWithPurpose(ctx context.Context, ip, purpose string) (bool, error) {
	key := ipKey(ip, purpose)

	count, err := l.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get rate limit counter: %w", err)
	}

	return count >= ipMaxHits, nil
}

// RecordIPRequestWithPurpose counts a request against the purpose window.
// The expiry is set only when the key is created, which pins the window to
// the first request.
func (l *Limiter) RecordIPRequestWithPurpose(ctx context.Context, ip, purpose string) error {
	key := ipKey(ip, purpose)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("increment rate limit counter: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, ipWindow).Err(); err != nil {
			return fmt.Errorf("set rate limit expiry: %w", err)
		}
	}
	return nil
}

// CheckEmailCooldown reports whether mail was recently sent to the address.
func (l *Limiter) CheckEmailCooldown(ctx context.Context, email string) (bool, error) {
	exists, err := l.client.Exists(ctx, mailKey(email)).Result()
	if err != nil {
		return false, fmt.Errorf("check email cooldown: %w", err)
	}
	return exists > 0, nil
}

// SetEmailCooldown starts the cooldown for the address.
func (l *Limiter) SetEmailCooldown(ctx context.Context, email string) error {
	if err := l.client.Set(ctx, mailKey(email), 1, mailCooldown).Err(); err != nil {
		return fmt.Errorf("set email cooldown: %w", err)
	}
	return nil
}

func ipKey(ip, purpose string) string {
	return fmt.Sprintf("ratelimit:ip:%s:%s", purpose, ip)
}

func mailKey(email string) string {
	return fmt.Sprintf("ratelimit:mail:%s", email)
}
