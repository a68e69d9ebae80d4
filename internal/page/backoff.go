package page

import (
	"errors"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"syscall"
	"time"
)

// backoffDuration grows base exponentially per attempt with up to 50% jitter.
func backoffDuration(base time.Duration, attempt int) time.Duration {
	d := float64(base) * math.Pow(2, float64(attempt))
	jitter := rand.Float64() * d * 0.5
	return time.Duration(d + jitter)
}

// retryable reports whether a failed fetch is worth another attempt.
func retryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= http.StatusInternalServerError ||
			statusErr.StatusCode == http.StatusTooManyRequests
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET)
}
