package feed

import (
	"context"
	"errors"
	"net"
	"time"
)

// RetryPolicy decides whether a failed fetch is retried and how long to wait
// between attempts. Attempts are numbered from 1; Retries is the number of
// additional attempts after the first.
type RetryPolicy struct {
	Retries   int
	BaseDelay time.Duration
}

// NewRetryPolicy builds a policy with the service defaults: two extra
// attempts with a 750ms base delay.
func NewRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		Retries:   2,
		BaseDelay: 750 * time.Millisecond,
	}
}

// ShouldRetry reports whether attempt (1-based) should be followed by another
// try. Permanent adapter errors and context cancellation are never retried;
// network timeouts and transient errors are.
func (p *RetryPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	if attempt > p.Retries {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if IsPermanent(err) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && !netErr.Timeout() {
		return false
	}
	return true
}

// Backoff returns the wait before the attempt numbered next (1-based delay
// scaling: base, 2*base, 3*base, ...).
func (p *RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.BaseDelay * time.Duration(attempt)
}
