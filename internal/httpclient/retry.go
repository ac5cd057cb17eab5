package httpclient

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mandi/internal/common"
	"github.com/ternarybob/mandi/internal/models"
)

// RetryPolicy retries transient failures with a linear backoff of
// (attempt+1) * BaseDelay between attempts.
type RetryPolicy struct {
	MaxAttempts          int
	BaseDelay            time.Duration
	RetryableStatusCodes []int
}

// NewRetryPolicy builds a policy from source retry settings
func NewRetryPolicy(config common.RetryConfig) *RetryPolicy {
	attempts := config.MaxRetries
	if attempts < 1 {
		attempts = 1
	}
	return &RetryPolicy{
		MaxAttempts: attempts,
		BaseDelay:   config.RetryDelay,
		RetryableStatusCodes: []int{
			408, // Request Timeout
			429, // Too Many Requests
			500, // Internal Server Error
			502, // Bad Gateway
			503, // Service Unavailable
			504, // Gateway Timeout
		},
	}
}

// Backoff returns the wait after the given zero-based attempt
func (p *RetryPolicy) Backoff(attempt int) time.Duration {
	return time.Duration(attempt+1) * p.BaseDelay
}

// Execute runs fn until it succeeds, fails permanently or runs out of attempts.
// Permanent failures (4xx, decode errors) come back unchanged. Transient
// failures that exhaust every attempt come back as *models.TransientFetchError.
func (p *RetryPolicy) Execute(ctx context.Context, logger arbor.ILogger, source string, fn func(ctx context.Context) (int, error)) error {
	var lastErr error

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		statusCode, err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !p.isRetryable(statusCode, err) {
			logger.Debug().
				Str("source", source).
				Int("attempt", attempt+1).
				Int("status_code", statusCode).
				Err(err).
				Msg("Non-retryable error, failing immediately")
			return err
		}

		if attempt < p.MaxAttempts-1 {
			backoff := p.Backoff(attempt)
			logger.Debug().
				Str("source", source).
				Int("attempt", attempt+1).
				Int("status_code", statusCode).
				Err(err).
				Dur("backoff", backoff).
				Msg("Retrying after backoff")

			select {
			case <-ctx.Done():
				return &models.TransientFetchError{Source: source, Attempts: attempt + 1, Err: ctx.Err()}
			case <-time.After(backoff):
			}
		}
	}

	logger.Warn().
		Str("source", source).
		Int("max_attempts", p.MaxAttempts).
		Err(lastErr).
		Msg("All retry attempts exhausted")

	return &models.TransientFetchError{Source: source, Attempts: p.MaxAttempts, Err: lastErr}
}

func (p *RetryPolicy) isRetryable(statusCode int, err error) bool {
	if statusCode > 0 {
		for _, code := range p.RetryableStatusCodes {
			if statusCode == code {
				return true
			}
		}
		if statusCode >= 400 {
			return false
		}
	}
	return isRetryableError(err)
}

// isRetryableError reports timeouts and connection failures
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}
