package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/model"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/testutil"
)

type staticSyncer struct{}

func (staticSyncer) SyncAsset(_ context.Context, name string) (model.SyncOutcome, error) {
	return model.SyncOutcome{AssetName: name, Status: model.SyncStatusUpdated}, nil
}

func TestSystemHandler_Health(t *testing.T) {
	setupHandler := func(t *testing.T) (*SystemHandler, *sql.DB) {
		t.Helper()
		db := testutil.SetupTestDB(t)
		ss := testutil.NewTestSystemService(t, db)
		bs, _ := testutil.NewTestBatchService(t, staticSyncer{}, testutil.NewRegistry(t, "sp500"))
		return NewSystemHandler(ss, bs), db
	}

	t.Run("returns healthy status when database is connected", func(t *testing.T) {
		handler, _ := setupHandler(t)

		req := httptest.NewRequest(http.MethodGet, "/api/system/health", nil)
		w := httptest.NewRecorder()

		handler.Health(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var response HealthResponse
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&response)

		if response.Status != "healthy" {
			t.Errorf("Expected status 'healthy', got '%s'", response.Status)
		}

		if response.Database != "connected" {
			t.Errorf("Expected database 'connected', got '%s'", response.Database)
		}

		if response.Error != "" {
			t.Errorf("Expected no error, got '%s'", response.Error)
		}
	})

	t.Run("returns 503 when database is disconnected", func(t *testing.T) {
		handler, db := setupHandler(t)

		// Close the database connection to simulate failure
		db.Close()

		req := httptest.NewRequest(http.MethodGet, "/api/system/health", nil)
		w := httptest.NewRecorder()

		handler.Health(w, req)

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected 503, got %d: %s", w.Code, w.Body.String())
		}
	})
}

func TestSystemHandler_Version(t *testing.T) {
	db := testutil.SetupTestDB(t)
	bs, _ := testutil.NewTestBatchService(t, staticSyncer{}, testutil.NewRegistry(t, "sp500"))
	handler := NewSystemHandler(testutil.NewTestSystemService(t, db), bs)

	req := httptest.NewRequest(http.MethodGet, "/api/system/version", nil)
	w := httptest.NewRecorder()

	handler.Version(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var response VersionResponse
	//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
	json.NewDecoder(w.Body).Decode(&response)

	if response.AppVersion == "" {
		t.Error("Expected app_version to be populated")
	}
}

func TestSystemHandler_LastRefresh(t *testing.T) {
	db := testutil.SetupTestDB(t)
	bs, _ := testutil.NewTestBatchService(t, staticSyncer{}, testutil.NewRegistry(t, "sp500"))
	handler := NewSystemHandler(testutil.NewTestSystemService(t, db), bs)

	t.Run("returns 404 before the first run", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.LastRefresh(w, httptest.NewRequest(http.MethodGet, "/api/system/refresh", nil))

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", w.Code)
		}
	})

	t.Run("returns the last report", func(t *testing.T) {
		report, err := bs.RefreshAllStale(context.Background())
		if err != nil {
			t.Fatalf("RefreshAllStale failed: %v", err)
		}

		w := httptest.NewRecorder()
		handler.LastRefresh(w, httptest.NewRequest(http.MethodGet, "/api/system/refresh", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var response model.BatchReport
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&response)

		if response.RunID != report.RunID {
			t.Errorf("Expected run %s, got %s", report.RunID, response.RunID)
		}
	})
}
