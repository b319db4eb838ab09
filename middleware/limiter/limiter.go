package limiter

import (
	"fmt"

	"golang.org/x/time/rate"

	"github.com/sweetpotato0/termchat/middleware"
)

// RateLimiter is a token-bucket middleware limiting agent invocations.
type RateLimiter struct {
	limiter *rate.Limiter
	wait    bool
}

// Option configures a RateLimiter.
type Option func(*RateLimiter)

// WithWait makes the limiter block until a token is available (or the request
// context ends) instead of failing fast.
func WithWait(wait bool) Option {
	return func(m *RateLimiter) {
		m.wait = wait
	}
}

// NewRateLimiter allows perSecond sustained invocations with the given burst.
func NewRateLimiter(perSecond float64, burst int, opts ...Option) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	m := &RateLimiter{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the middleware name
func (m *RateLimiter) Name() string {
	return "RateLimiter"
}

// Execute checks rate limit
func (m *RateLimiter) Execute(ctx *middleware.Context, next middleware.Handler) error {
	if m.wait {
		if err := m.limiter.Wait(ctx.Context()); err != nil {
			return fmt.Errorf("%w: %v", middleware.ErrRateLimitExceeded, err)
		}
		return next(ctx)
	}
	if !m.limiter.Allow() {
		return middleware.ErrRateLimitExceeded
	}
	return next(ctx)
}

// Tokens returns the number of tokens currently available.
func (m *RateLimiter) Tokens() float64 {
	return m.limiter.Tokens()
}
