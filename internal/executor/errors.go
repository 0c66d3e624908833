package executor

import (
	"context"
	"errors"
	"net"
	"syscall"
)

// RateLimitedError is implemented by errors that signal HTTP 429 semantics.
type RateLimitedError interface {
	error
	RateLimited() bool
}

// IsRateLimited reports whether err carries a rate-limit signal.
func IsRateLimited(err error) bool {
	var rl RateLimitedError
	return errors.As(err, &rl) && rl.RateLimited()
}

// IsConnectionError reports refused connections and timeouts, the failures
// that justify switching to another proxy.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ETIMEDOUT) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && (opErr.Op == "dial" || opErr.Op == "proxyconnect") {
		return true
	}
	return false
}
