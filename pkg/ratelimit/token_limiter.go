package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// TokenLimiter limits the number of LLM tokens consumed per minute. The
// budget refills continuously at maxTokensPerMinute/60 tokens a second and
// never holds more than one minute's worth.
type TokenLimiter struct {
	limiter   *rate.Limiter
	maxPerMin int
}

// NewTokenLimiter creates a limiter allowing maxTokensPerMinute tokens per minute.
// A non-positive limit disables limiting.
func NewTokenLimiter(maxTokensPerMinute int) *TokenLimiter {
	if maxTokensPerMinute <= 0 {
		return &TokenLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	return &TokenLimiter{
		limiter:   rate.NewLimiter(rate.Limit(float64(maxTokensPerMinute)/60), maxTokensPerMinute),
		maxPerMin: maxTokensPerMinute,
	}
}

// Wait blocks until tokens are available or ctx is done. A request larger than
// the whole budget waits for a full bucket and drains it.
func (l *TokenLimiter) Wait(ctx context.Context, tokens int) error {
	if tokens <= 0 {
		return nil
	}
	if l.maxPerMin > 0 && tokens > l.maxPerMin {
		tokens = l.maxPerMin
	}
	return l.limiter.WaitN(ctx, tokens)
}

// GetRemaining returns the tokens currently available.
func (l *TokenLimiter) GetRemaining() int {
	if l.maxPerMin <= 0 {
		return 0
	}
	remaining := int(l.limiter.Tokens())
	if remaining < 0 {
		return 0
	}
	return remaining
}
