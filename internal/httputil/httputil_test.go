package httputil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/apperrors"
)

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)

	t.Run("seconds", func(t *testing.T) {
		h := http.Header{}
		h.Set("Retry-After", "30")
		assert.Equal(t, 30*time.Second, ParseRetryAfter(h, now))
	})

	t.Run("http date", func(t *testing.T) {
		h := http.Header{}
		h.Set("Retry-After", now.Add(2*time.Minute).Format(http.TimeFormat))
		assert.Equal(t, 2*time.Minute, ParseRetryAfter(h, now))
	})

	t.Run("rate limit reset epoch", func(t *testing.T) {
		h := http.Header{}
		h.Set("X-RateLimit-Reset", strconv.FormatInt(now.Add(90*time.Second).Unix(), 10))
		assert.Equal(t, 90*time.Second, ParseRetryAfter(h, now))
	})

	t.Run("no hint", func(t *testing.T) {
		assert.Zero(t, ParseRetryAfter(http.Header{}, now))
	})

	t.Run("reset in the past", func(t *testing.T) {
		h := http.Header{}
		h.Set("X-RateLimit-Reset", strconv.FormatInt(now.Add(-time.Minute).Unix(), 10))
		assert.Zero(t, ParseRetryAfter(h, now))
	})
}

func TestClassifyStatus(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		status  int
		headers map[string]string
		want    apperrors.FetchKind
	}{
		{"not found", http.StatusNotFound, nil, apperrors.KindNotFound},
		{"too many requests", http.StatusTooManyRequests, map[string]string{"Retry-After": "5"}, apperrors.KindRateLimited},
		{"forbidden with exhausted quota", http.StatusForbidden, map[string]string{"X-RateLimit-Remaining": "0"}, apperrors.KindRateLimited},
		{"forbidden", http.StatusForbidden, nil, apperrors.KindUnauthorized},
		{"unauthorized", http.StatusUnauthorized, nil, apperrors.KindUnauthorized},
		{"server error", http.StatusBadGateway, nil, apperrors.KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{StatusCode: tt.status, Header: http.Header{}}
			for k, v := range tt.headers {
				resp.Header.Set(k, v)
			}
			fe := ClassifyStatus("primary", resp, now)
			assert.Equal(t, tt.want, fe.Kind)
		})
	}

	t.Run("rate limit carries retry hint", func(t *testing.T) {
		resp := &http.Response{StatusCode: http.StatusTooManyRequests, Header: http.Header{}}
		resp.Header.Set("Retry-After", "12")
		fe := ClassifyStatus("secondary", resp, now)
		assert.Equal(t, 12*time.Second, fe.RetryAfter)
	})
}

func TestClassifyTransportError(t *testing.T) {
	fe := ClassifyTransportError("primary", fmt.Errorf("get: %w", context.DeadlineExceeded))
	assert.Equal(t, apperrors.KindTimeout, fe.Kind)
	assert.True(t, errors.Is(fe, context.DeadlineExceeded))

	fe = ClassifyTransportError("primary", errors.New("connection refused"))
	assert.Equal(t, apperrors.KindUnknown, fe.Kind)
}
