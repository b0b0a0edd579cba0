package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/testutil"
)

func setupReindexHandler(t *testing.T) *ReindexHandler {
	t.Helper()

	db := testutil.SetupTestDB(t)
	reg := testutil.NewRegistry(t, "sp500", "gold")
	testutil.NewCacheRecord("sp500").
		WithPrices(testutil.Points(map[string]float64{
			"2024-01-01": 100,
			"2024-01-05": 110,
			"2024-01-10": 90,
		})).
		Build(t, db)

	return NewReindexHandler(testutil.NewTestReindexService(t, db, reg, testutil.NewFakeClock(handlerNow)))
}

func TestReindexHandler_Reindex(t *testing.T) {
	handler := setupReindexHandler(t)

	t.Run("returns the normalized series", func(t *testing.T) {
		req := testutil.NewRequestWithParams(http.MethodGet, "/api/assets/sp500/reindex",
			map[string]string{"asset": "sp500"},
			map[string]string{"date": "2024-01-05", "before": "10", "after": "10"},
		)
		w := httptest.NewRecorder()

		handler.Reindex(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var response ReindexResponse
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}

		if response.Baseline != 110 {
			t.Errorf("Expected baseline 110, got %v", response.Baseline)
		}
		if len(response.Points) != 3 {
			t.Fatalf("Expected 3 points, got %d", len(response.Points))
		}
		if response.Points[1].Date != "2024-01-05" || response.Points[1].Normalized != 100 {
			t.Errorf("Expected the reference point at 100, got %+v", response.Points[1])
		}
		if response.DaysBefore != 10 || response.DaysAfter != 10 {
			t.Errorf("Expected a 10/10 window, got %d/%d", response.DaysBefore, response.DaysAfter)
		}
	})

	t.Run("uses default window sizes", func(t *testing.T) {
		req := testutil.NewRequestWithParams(http.MethodGet, "/api/assets/sp500/reindex",
			map[string]string{"asset": "sp500"},
			map[string]string{"date": "2024-01-05"},
		)
		w := httptest.NewRecorder()

		handler.Reindex(w, req)

		var response ReindexResponse
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&response)

		if response.DaysBefore != 30 || response.DaysAfter != 60 {
			t.Errorf("Expected a 30/60 window, got %d/%d", response.DaysBefore, response.DaysAfter)
		}
	})

	tests := []struct {
		name   string
		asset  string
		query  map[string]string
		status int
	}{
		{"missing date", "sp500", map[string]string{}, http.StatusBadRequest},
		{"malformed date", "sp500", map[string]string{"date": "05-01-2024"}, http.StatusBadRequest},
		{"window too large", "sp500", map[string]string{"date": "2024-01-05", "after": "4000"}, http.StatusBadRequest},
		{"no data near the date", "sp500", map[string]string{"date": "2030-01-01", "before": "5", "after": "5"}, http.StatusNotFound},
		{"never fetched", "gold", map[string]string{"date": "2024-01-05"}, http.StatusNotFound},
		{"unknown asset", "nope", map[string]string{"date": "2024-01-05"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.NewRequestWithParams(http.MethodGet, "/api/assets/"+tt.asset+"/reindex",
				map[string]string{"asset": tt.asset}, tt.query)
			w := httptest.NewRecorder()

			handler.Reindex(w, req)

			if w.Code != tt.status {
				t.Errorf("Expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
		})
	}
}
