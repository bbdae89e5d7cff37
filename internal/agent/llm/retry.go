package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/chative-salesdesk/server/internal/agent/model"
	logx "github.com/chative-salesdesk/server/pkg/logger"
)

// ErrExhausted is returned once every attempt has failed.
var ErrExhausted = errors.New("generation failed after retries")

type permanentError struct{ err error }

func (p permanentError) Error() string { return p.err.Error() }
func (p permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// retryable reports whether another attempt may succeed. Unknown errors are assumed
// transient; API errors are retried only for rate limits and server-side failures.
func retryable(err error) bool {
	var p permanentError
	if errors.As(err, &p) {
		return false
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return shouldRetry(apiErr.Code)
	}
	return true
}

func shouldRetry(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// backoff is initial * 2^attempt, capped at max.
func backoff(attempt int, cfg model.RetryConfig) time.Duration {
	d := float64(cfg.InitialBackoff) * math.Pow(2, float64(attempt))
	if cfg.MaxBackoff > 0 && d > float64(cfg.MaxBackoff) {
		d = float64(cfg.MaxBackoff)
	}
	return time.Duration(d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// withRetry runs fn up to cfg.MaxAttempts times, each under its own timeout, waiting
// between attempts with exponential backoff. Cancellation of ctx stops immediately.
func withRetry(ctx context.Context, cfg model.RetryConfig, sleep func(context.Context, time.Duration) error, fn func(ctx context.Context) error) error {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if cfg.AttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, cfg.AttemptTimeout)
		}
		err := fn(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !retryable(err) {
			return err
		}
		if attempt == attempts-1 {
			break
		}

		wait := backoff(attempt, cfg)
		logx.Warn().Err(err).Int("attempt", attempt+1).Int("max_attempts", attempts).
			Dur("backoff", wait).Msg("generation failed, retrying")
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w (%d attempts): %w", ErrExhausted, attempts, lastErr)
}
