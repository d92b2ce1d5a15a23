package smartobjects

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/mnubo/Mnubo.SmartObjects.Client-sub001/logging"
)

// RateLimitConfig throttles outgoing requests on the client side.
type RateLimitConfig struct {
	// RequestsPerSecond of zero disables throttling.
	RequestsPerSecond float64 `validate:"gte=0"`
	Burst             int     `validate:"gte=0"`
}

// Enabled reports whether throttling is configured.
func (c RateLimitConfig) Enabled() bool {
	return c.RequestsPerSecond > 0
}

// RateLimiter paces requests issued by a single client. It is shared by all
// calls of that client.
type RateLimiter struct {
	limiter *rate.Limiter
	config  RateLimitConfig
	logger  *logging.Logger
}

// NewRateLimiter creates a limiter, or returns nil when cfg is disabled. A nil
// *RateLimiter never blocks.
func NewRateLimiter(cfg RateLimitConfig, logger *logging.Logger) *RateLimiter {
	if !cfg.Enabled() {
		return nil
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultRateLimitBurst
	}
	if logger == nil {
		logger = logging.Global()
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		config:  cfg,
		logger:  logger,
	}
}

// Wait blocks until a request may be sent or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil {
		return nil
	}

	reservation := rl.limiter.Reserve()
	if !reservation.OK() {
		return fmt.Errorf("rate limit: burst of %d cannot admit a request", rl.config.Burst)
	}

	delay := reservation.Delay()
	if delay == 0 {
		return nil
	}

	rl.logger.Debug("rate limit reached, delaying request",
		"delay", delay,
		"next_call_at", time.Now().Add(delay).Format("15:04:05"),
	)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		// give the token back so later callers are not penalized
		reservation.Cancel()
		return ctx.Err()
	}
}

// CurrentLimit returns the configured rate and burst.
func (rl *RateLimiter) CurrentLimit() (requestsPerSecond float64, burst int, enabled bool) {
	if rl == nil {
		return 0, 0, false
	}
	return rl.config.RequestsPerSecond, rl.config.Burst, true
}
