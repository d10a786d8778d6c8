package httpx

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HTTPStatusCoder is implemented by errors that carry an HTTP status.
type HTTPStatusCoder interface {
	HTTPStatusCode() int
}

func IsRetryableHTTPStatus(code int) bool {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500 && code <= 599
}

// IsRetryableError reports whether err looks transient: network timeouts,
// broken pipes, retryable HTTP statuses, or the flaky-socket error strings
// the upstream model API is known to emit.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var sc HTTPStatusCoder
	if errors.As(err, &sc) {
		return IsRetryableHTTPStatus(sc.HTTPStatusCode())
	}
	return IsTransientMessage(err.Error())
}

// IsTransientMessage matches error text against transient-failure signatures.
func IsTransientMessage(msg string) bool {
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "broken pipe"),
		strings.Contains(m, "connection reset"),
		strings.Contains(m, "temporarily unavailable"),
		strings.Contains(m, "assign requested address"),
		strings.Contains(m, "503"):
		return true
	}
	return false
}

// IsRateLimitMessage matches error text against rate-limit/quota signatures
// so terminal failures can be reported as "transient, retry later".
func IsRateLimitMessage(msg string) bool {
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "429"),
		strings.Contains(m, "rate limit"),
		strings.Contains(m, "quota"),
		strings.Contains(m, "resource_exhausted"),
		strings.Contains(m, "resource exhausted"):
		return true
	}
	return false
}

// RetryAfterDuration honors a Retry-After header when present, clamped to max.
func RetryAfterDuration(resp *http.Response, fallback, max time.Duration) time.Duration {
	sleepFor := fallback
	if resp != nil {
		if ra := strings.TrimSpace(resp.Header.Get("Retry-After")); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
				sleepFor = time.Duration(secs) * time.Second
			}
		}
	}
	if max > 0 && sleepFor > max {
		sleepFor = max
	}
	return sleepFor
}

// JitterSleep spreads a backoff interval +/-20% to avoid thundering herds.
func JitterSleep(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	delta := base.Seconds() * 0.2
	low := base.Seconds() - delta
	v := low + rand.Float64()*2*delta
	return time.Duration(v * float64(time.Second))
}
