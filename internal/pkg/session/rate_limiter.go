// internal/pkg/session/rate_limiter.go
package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter counts login attempts per client IP and identifier in fixed windows.
type RateLimiter struct {
	client      *redis.Client
	maxAttempts int64
	window      time.Duration
}

func NewRateLimiter(client *redis.Client, maxAttempts int64, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, maxAttempts: maxAttempts, window: window}
}

func (r *RateLimiter) loginKey(ip, identifier string) string {
	return fmt.Sprintf("ratelimit:login:%s:%s", ip, strings.ToLower(identifier))
}

// CheckLoginAttempt counts an attempt and reports whether it is allowed along with the attempts left.
func (r *RateLimiter) CheckLoginAttempt(ctx context.Context, ip, identifier string) (bool, int64, error) {
	key := r.loginKey(ip, identifier)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to increment login attempt: %w", err)
	}

	// Set expiration on first attempt
	if count == 1 {
		if err := r.client.Expire(ctx, key, r.window).Err(); err != nil {
			return false, 0, fmt.Errorf("failed to set login attempt window: %w", err)
		}
	}

	remaining := r.maxAttempts - count
	if remaining < 0 {
		remaining = 0
	}

	return count <= r.maxAttempts, remaining, nil
}

// GetRemainingAttempts returns remaining login attempts without counting one.
func (r *RateLimiter) GetRemainingAttempts(ctx context.Context, ip, identifier string) (int64, error) {
	count, err := r.client.Get(ctx, r.loginKey(ip, identifier)).Int64()
	if err == redis.Nil {
		return r.maxAttempts, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get login attempts: %w", err)
	}

	remaining := r.maxAttempts - count
	if remaining < 0 {
		remaining = 0
	}

	return remaining, nil
}

// ResetLoginAttempts clears the counter after a successful login.
func (r *RateLimiter) ResetLoginAttempts(ctx context.Context, ip, identifier string) error {
	return r.client.Del(ctx, r.loginKey(ip, identifier)).Err()
}
