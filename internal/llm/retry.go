package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	retryMaxAttempts    = 3
	retryInitialInterval = time.Second
	retryMaxInterval    = 30 * time.Second
	retryMaxElapsedTime = 2 * time.Minute
)

// newBackoff is the retry policy for establishing a provider stream:
// exponential with jitter, at most retryMaxAttempts retries, and Stop once
// ctx is done. The Agent Executor's chat loop itself does not retry.
func newBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryInitialInterval
	b.MaxInterval = retryMaxInterval
	b.MaxElapsedTime = retryMaxElapsedTime
	b.RandomizationFactor = 0.5
	b.Multiplier = 2.0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, retryMaxAttempts), ctx)
}

// isRetryable classifies transient provider failures: rate limits, 5xx, and
// network hiccups are retried; auth and malformed-request errors are not.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate_limit"), strings.Contains(msg, "rate limit"), strings.Contains(msg, "429"):
		return true
	case strings.Contains(msg, "500"), strings.Contains(msg, "502"), strings.Contains(msg, "503"), strings.Contains(msg, "504"):
		return true
	case strings.Contains(msg, "internal server error"), strings.Contains(msg, "bad gateway"),
		strings.Contains(msg, "service unavailable"), strings.Contains(msg, "gateway timeout"):
		return true
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return true
	case strings.Contains(msg, "connection reset"), strings.Contains(msg, "connection refused"), strings.Contains(msg, "no such host"):
		return true
	default:
		return false
	}
}
