// Package httputil holds helpers shared by the upstream HTTP clients.
package httputil

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/apperrors"
)

// UserAgent mimics a browser; the quote API rejects default Go clients.
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// ParseRetryAfter reads the throttling hint from Retry-After (seconds or HTTP date)
// or X-RateLimit-Reset (unix epoch seconds). Returns 0 when no usable hint exists.
func ParseRetryAfter(h http.Header, now time.Time) time.Duration {
	if v := strings.TrimSpace(h.Get("Retry-After")); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
		if t, err := http.ParseTime(v); err == nil && t.After(now) {
			return t.Sub(now)
		}
	}
	if v := strings.TrimSpace(h.Get("X-RateLimit-Reset")); v != "" {
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil {
			if reset := time.Unix(epoch, 0); reset.After(now) {
				return reset.Sub(now).Round(time.Second)
			}
		}
	}
	return 0
}

// ClassifyStatus maps a non-2xx upstream status to a FetchError.
// A 403 with an exhausted rate limit counts as throttling, not an auth failure.
func ClassifyStatus(source string, resp *http.Response, now time.Time) *apperrors.FetchError {
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NewFetchError(source, apperrors.KindNotFound, "no dataset (HTTP %d)", resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0":
		fe := apperrors.NewFetchError(source, apperrors.KindRateLimited, "rate limited (HTTP %d)", resp.StatusCode)
		fe.RetryAfter = ParseRetryAfter(resp.Header, now)
		return fe
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return apperrors.NewFetchError(source, apperrors.KindUnauthorized, "authentication failed (HTTP %d)", resp.StatusCode)
	default:
		return apperrors.NewFetchError(source, apperrors.KindUnknown, "unexpected status %d", resp.StatusCode)
	}
}

// ClassifyTransportError converts an error from http.Client.Do or a body read
// into a FetchError, distinguishing timeouts from other transport failures.
func ClassifyTransportError(source string, err error) *apperrors.FetchError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &apperrors.FetchError{Source: source, Kind: apperrors.KindTimeout, Message: "request timed out", Err: err}
	}
	return &apperrors.FetchError{Source: source, Kind: apperrors.KindUnknown, Message: "request failed", Err: err}
}
