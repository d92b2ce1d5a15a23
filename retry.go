package smartobjects

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/mnubo/Mnubo.SmartObjects.Client-sub001/logging"
)

// maxJitter bounds the random part added to the initial delay.
const maxJitter = 100 * time.Millisecond

// RetryPredicate decides whether a response should be retried.
type RetryPredicate func(resp *http.Response) bool

// OnRetryFunc is invoked once per retry, before waiting. resp is the response
// that triggered the retry; err is reserved for error driven retries.
type OnRetryFunc func(resp *http.Response, err error, delay time.Duration)

// SendFunc performs one HTTP exchange. It must build a fresh request on each
// call since request bodies cannot be replayed.
type SendFunc func(ctx context.Context) (*http.Response, error)

// RetryConfig configures the retry policy applied to every HTTP call.
type RetryConfig struct {
	// Disabled turns retries off: each call is attempted exactly once.
	Disabled bool
	// NumberOfAttempts is the number of retries after the first call. Zero
	// means the default of 5; use Disabled for a single attempt.
	NumberOfAttempts int `validate:"gte=0"`
	// InitialBackoffDelay is the base of the exponential delay (default: 500ms).
	InitialBackoffDelay time.Duration `validate:"gte=0"`
	// RetryPredicate defaults to retrying 503 Service Unavailable only.
	RetryPredicate RetryPredicate
	// OnRetry defaults to logging the computed delay.
	OnRetry OnRetryFunc
}

// RetryOff returns the configuration of a policy that never retries.
func RetryOff() RetryConfig {
	return RetryConfig{Disabled: true}
}

// DefaultRetryConfig returns the default exponential backoff configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		NumberOfAttempts:    DefaultNumberOfAttempts,
		InitialBackoffDelay: DefaultInitialBackoffDelay,
	}
}

// SetDefaults fills unset options. A zero NumberOfAttempts is unset, so it
// stays zero only when the policy is disabled.
func (c *RetryConfig) SetDefaults() {
	if c.Disabled {
		return
	}
	if c.NumberOfAttempts == 0 {
		c.NumberOfAttempts = DefaultNumberOfAttempts
	}
	if c.InitialBackoffDelay == 0 {
		c.InitialBackoffDelay = DefaultInitialBackoffDelay
	}
}

// RetryOnServiceUnavailable is the default predicate.
func RetryOnServiceUnavailable(resp *http.Response) bool {
	return resp != nil && resp.StatusCode == http.StatusServiceUnavailable
}

// RetryOnStatus builds a predicate matching any of the given status codes.
func RetryOnStatus(codes ...int) RetryPredicate {
	return func(resp *http.Response) bool {
		if resp == nil {
			return false
		}
		for _, code := range codes {
			if resp.StatusCode == code {
				return true
			}
		}
		return false
	}
}

// RetryPolicy retries an HTTP exchange while its response matches the
// predicate, waiting (initial + jitter) * 2^n between attempts. The policy is
// stateless; every Execute call owns its own attempt counter.
type RetryPolicy struct {
	enabled      bool
	attempts     int
	initialDelay time.Duration
	predicate    RetryPredicate
	onRetry      OnRetryFunc

	// jitter returns the random part of the delay; replaced in tests.
	jitter func() time.Duration
}

var errRetryableResponse = errors.New("retryable response")

// NewRetryPolicy builds a policy from cfg, applying defaults. Retries are
// logged through logger when cfg.OnRetry is nil.
func NewRetryPolicy(cfg RetryConfig, logger *logging.Logger) *RetryPolicy {
	cfg.SetDefaults()
	if logger == nil {
		logger = logging.Global()
	}

	p := &RetryPolicy{
		enabled:      !cfg.Disabled,
		attempts:     cfg.NumberOfAttempts,
		initialDelay: cfg.InitialBackoffDelay,
		predicate:    cfg.RetryPredicate,
		onRetry:      cfg.OnRetry,
		jitter:       uniformJitter,
	}
	if p.predicate == nil {
		p.predicate = RetryOnServiceUnavailable
	}
	if p.onRetry == nil {
		p.onRetry = func(resp *http.Response, err error, delay time.Duration) {
			status := 0
			if resp != nil {
				status = resp.StatusCode
			}
			logger.Warn("retrying request", "status", status, "delay", delay, "error", err)
		}
	}
	return p
}

// Enabled reports whether the policy retries at all.
func (p *RetryPolicy) Enabled() bool {
	return p.enabled
}

// Delay returns the wait before retry number n (1-based) for the given jitter.
func (p *RetryPolicy) Delay(n int, jitter time.Duration) time.Duration {
	return (p.initialDelay + jitter) * time.Duration(1<<uint(n))
}

// Execute runs send, retrying while the predicate matches. Errors returned by
// send are passed through unchanged. When the retries are exhausted the last
// response is returned without an error; deciding whether it is a failure is
// left to the caller.
func (p *RetryPolicy) Execute(ctx context.Context, send SendFunc) (*http.Response, error) {
	if !p.enabled {
		return send(ctx)
	}

	var (
		last    *http.Response
		retries int
	)

	backoff := retry.BackoffFunc(func() (time.Duration, bool) {
		if retries >= p.attempts {
			return 0, true
		}
		retries++
		delay := p.Delay(retries, p.jitter())
		p.onRetry(last, nil, delay)
		discard(last)
		last = nil
		return delay, false
	})

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := send(ctx)
		if err != nil {
			return err
		}
		last = resp
		if p.predicate(resp) {
			return retry.RetryableError(errRetryableResponse)
		}
		return nil
	})

	if err == nil || errors.Is(err, errRetryableResponse) {
		return last, nil
	}
	return nil, err
}

func uniformJitter() time.Duration {
	return time.Duration(rand.Int64N(int64(maxJitter)))
}

// discard drains and closes a response that will not be handed to the caller,
// so the underlying connection can be reused.
func discard(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
