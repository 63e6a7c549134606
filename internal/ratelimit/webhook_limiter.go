// Package ratelimit throttles webhook ingestion per account using fixed
// windows counted in Redis, so every server instance shares one budget.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Default limiter configuration values.
const (
	DefaultLimit     = 60
	DefaultWindow    = time.Minute
	DefaultKeyPrefix = "ratelimit:webhook:"
)

// WebhookLimiterConfig holds configuration for the webhook limiter.
type WebhookLimiterConfig struct {
	// Redis is shared by all server instances. Required.
	Redis redis.Cmdable

	// Limit is the number of requests allowed per window. Default: 60.
	Limit int

	// Window is the fixed window length. Default: 1m.
	Window time.Duration

	// KeyPrefix namespaces the counters. Default: "ratelimit:webhook:".
	KeyPrefix string
}

// Validate checks if the configuration is valid.
func (c *WebhookLimiterConfig) Validate() error {
	if c.Redis == nil {
		return errors.New("redis client is required")
	}
	if c.Limit < 0 {
		return errors.New("limit cannot be negative")
	}
	if c.Window < 0 {
		return errors.New("window cannot be negative")
	}
	return nil
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Count      int
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// WebhookLimiter counts requests per key in aligned windows.
type WebhookLimiter struct {
	redis  redis.Cmdable
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

// NewWebhookLimiter creates a limiter with the given configuration.
func NewWebhookLimiter(cfg *WebhookLimiterConfig) (*WebhookLimiter, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	limit := cfg.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	window := cfg.Window
	if window == 0 {
		window = DefaultWindow
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}

	return &WebhookLimiter{
		redis:  cfg.Redis,
		limit:  limit,
		window: window,
		prefix: prefix,
		now:    time.Now,
	}, nil
}

// windowStart aligns now to the window boundary
func (l *WebhookLimiter) windowStart() time.Time {
	return l.now().Truncate(l.window)
}

func (l *WebhookLimiter) key(subject string, start time.Time) string {
	return l.prefix + subject + ":" + strconv.FormatInt(start.UnixMilli(), 10)
}

// Allow counts one request for subject and reports whether it fits in the
// current window. Redis errors are returned with a zero Decision; callers
// decide whether to fail open.
func (l *WebhookLimiter) Allow(ctx context.Context, subject string) (Decision, error) {
	start := l.windowStart()
	key := l.key(subject, start)

	pipe := l.redis.TxPipeline()
	incr := pipe.Incr(ctx, key)
	// Keep the key one extra window so clock skew between instances is harmless.
	pipe.Expire(ctx, key, 2*l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("failed to count webhook request: %w", err)
	}

	count := int(incr.Val())
	d := Decision{
		Allowed:   count <= l.limit,
		Count:     count,
		Limit:     l.limit,
		Remaining: l.limit - count,
	}
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	if !d.Allowed {
		d.RetryAfter = l.retryAfter(start)
	}
	return d, nil
}

// Usage returns the number of requests counted for subject in the current window.
func (l *WebhookLimiter) Usage(ctx context.Context, subject string) (int, error) {
	n, err := l.redis.Get(ctx, l.key(subject, l.windowStart())).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read webhook usage: %w", err)
	}
	return n, nil
}

// Limit returns the configured requests per window.
func (l *WebhookLimiter) Limit() int {
	return l.limit
}

// Window returns the configured window length.
func (l *WebhookLimiter) Window() time.Duration {
	return l.window
}

// retryAfter returns the time until the next window starts.
func (l *WebhookLimiter) retryAfter(start time.Time) time.Duration {
	wait := start.Add(l.window).Sub(l.now())
	if wait < 0 {
		wait = 0
	}
	return wait + time.Millisecond
}
