package github

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// RateLimiter paces GitHub API calls shared by all pipeline workers
type RateLimiter interface {
	// Wait blocks until it's safe to make an API call
	Wait(ctx context.Context) error

	// UpdateLimits records the rate limit state reported by the last response
	UpdateLimits(remaining int, reset time.Time)

	// GetStats returns current rate limiter statistics
	GetStats() RateLimiterStats
}

// RateLimiterStats provides statistics about rate limiter usage
type RateLimiterStats struct {
	RemainingRequests int           `json:"remaining_requests"`
	ResetTime         time.Time     `json:"reset_time"`
	CurrentDelay      time.Duration `json:"current_delay"`
	TotalWaits        int64         `json:"total_waits"`
	TotalDelayTime    time.Duration `json:"total_delay_time"`
}

// RateLimiterConfig configures the rate limiter behavior
type RateLimiterConfig struct {
	// BaseDelay is the minimum delay between requests
	BaseDelay time.Duration

	// MaxDelay is the maximum delay between requests
	MaxDelay time.Duration

	// Jitter adds randomness to delays to avoid thundering herd
	Jitter float64

	// MinRemainingRequests is the threshold below which we start aggressive throttling
	MinRemainingRequests int

	// AggressiveThrottleDelay is the delay when remaining requests are low
	AggressiveThrottleDelay time.Duration
}

// DefaultRateLimiterConfig returns a default rate limiter configuration
func DefaultRateLimiterConfig() *RateLimiterConfig {
	return &RateLimiterConfig{
		BaseDelay:               20 * time.Millisecond,
		MaxDelay:                time.Minute,
		Jitter:                  0.1,
		MinRemainingRequests:    100,
		AggressiveThrottleDelay: 2 * time.Second,
	}
}

type rateLimiter struct {
	config *RateLimiterConfig
	mu     sync.Mutex

	remaining int
	resetTime time.Time
	lastCall  time.Time

	stats RateLimiterStats
	rand  *rand.Rand
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(config *RateLimiterConfig) RateLimiter {
	if config == nil {
		config = DefaultRateLimiterConfig()
	}

	return &rateLimiter{
		config:    config,
		remaining: 5000, // GitHub's default rate limit
		resetTime: time.Now().Add(time.Hour),
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Wait blocks until it's safe to make an API call
func (rl *rateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()
	delay := rl.calculateDelay()
	if delay > 0 {
		rl.stats.TotalWaits++
		rl.stats.TotalDelayTime += delay
	}
	// Reserve the slot before releasing the lock so concurrent callers space out
	rl.lastCall = time.Now().Add(delay)
	rl.mu.Unlock()

	return sleep(ctx, delay)
}

// UpdateLimits updates the rate limiter with current GitHub API rate limit information
func (rl *rateLimiter) UpdateLimits(remaining int, reset time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.remaining = remaining
	rl.resetTime = reset
	rl.stats.RemainingRequests = remaining
	rl.stats.ResetTime = reset
}

// GetStats returns current rate limiter statistics
func (rl *rateLimiter) GetStats() RateLimiterStats {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	stats := rl.stats
	stats.CurrentDelay = rl.calculateDelay()
	return stats
}

// calculateDelay calculates the delay needed before the next API call
func (rl *rateLimiter) calculateDelay() time.Duration {
	now := time.Now()

	var totalDelay time.Duration

	if !rl.lastCall.IsZero() {
		if next := rl.lastCall.Add(rl.config.BaseDelay); next.After(now) {
			totalDelay = next.Sub(now)
		}
	}

	// Throttle harder as the remaining budget shrinks, but only until the window resets
	if now.Before(rl.resetTime) && rl.remaining < rl.config.MinRemainingRequests {
		if aggressive := rl.calculateAggressiveDelay(); aggressive > totalDelay {
			totalDelay = aggressive
		}
	}

	if rl.config.Jitter > 0 && totalDelay > 0 {
		jitterAmount := float64(totalDelay) * rl.config.Jitter
		totalDelay += time.Duration(rl.rand.Float64() * jitterAmount)
	}

	return minDuration(totalDelay, rl.config.MaxDelay)
}

// calculateAggressiveDelay calculates delay when remaining requests are low
func (rl *rateLimiter) calculateAggressiveDelay() time.Duration {
	if rl.remaining <= 0 {
		return time.Until(rl.resetTime)
	}

	remainingRatio := float64(rl.remaining) / float64(rl.config.MinRemainingRequests)
	if remainingRatio >= 1.0 {
		return 0
	}

	// fewer remaining requests means a longer delay
	return time.Duration(float64(rl.config.AggressiveThrottleDelay) * (1.0 - remainingRatio))
}
