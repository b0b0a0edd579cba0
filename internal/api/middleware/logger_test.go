package middleware_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/api/middleware"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/assets%0D%0A", nil)
	w := httptest.NewRecorder()
	middleware.Logger(logger)(next).ServeHTTP(w, req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected one JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["status"] != float64(http.StatusTeapot) {
		t.Errorf("Expected status 418, got %v", entry["status"])
	}
	if entry["path"] != "/api/assets" {
		t.Errorf("Expected sanitized path, got %v", entry["path"])
	}
}
