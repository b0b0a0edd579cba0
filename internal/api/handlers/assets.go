package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/api/response"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/service"
)

// AssetHandler handles HTTP requests for asset endpoints.
// It serves as the HTTP layer adapter, parsing requests and delegating
// to the asset, sync and batch services.
type AssetHandler struct {
	assetService *service.AssetService
	syncService  service.AssetSyncer
	batchService *service.BatchService
}

// NewAssetHandler creates a new AssetHandler with the provided service dependencies.
func NewAssetHandler(assetService *service.AssetService, syncService service.AssetSyncer, batchService *service.BatchService) *AssetHandler {
	return &AssetHandler{
		assetService: assetService,
		syncService:  syncService,
		batchService: batchService,
	}
}

// Assets handles GET requests to list every registered asset with its cache
// freshness and failure state.
//
// Endpoint: GET /api/assets
// Response: 200 OK with array of AssetSummary
// Error: 500 Internal Server Error if retrieval fails
func (h *AssetHandler) Assets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.assetService.List(r.Context())
	if err != nil {
		respondServiceError(w, err, "failed to retrieve assets")
		return
	}

	response.RespondJSON(w, http.StatusOK, assets)
}

// Asset handles GET requests for the cached series of one asset.
//
// Endpoint: GET /api/assets/{asset}
// Response: 200 OK with AssetCacheRecord
// Error: 404 Not Found if the asset is unknown or has never been fetched
func (h *AssetHandler) Asset(w http.ResponseWriter, r *http.Request) {
	rec, err := h.assetService.Get(r.Context(), chi.URLParam(r, "asset"))
	if err != nil {
		respondServiceError(w, err, "failed to retrieve asset")
		return
	}

	response.RespondJSON(w, http.StatusOK, rec)
}

// RefreshAsset handles POST requests to sync one asset now. A failed fetch is
// reported in the outcome, not as an HTTP error.
//
// Endpoint: POST /api/assets/{asset}/refresh
// Response: 200 OK with SyncOutcome
// Error: 404 Not Found if the asset is unknown
func (h *AssetHandler) RefreshAsset(w http.ResponseWriter, r *http.Request) {
	// The sync keeps running if the client goes away so failure bookkeeping stays consistent.
	ctx := context.WithoutCancel(r.Context())

	outcome, err := h.syncService.SyncAsset(ctx, chi.URLParam(r, "asset"))
	if err != nil {
		respondServiceError(w, err, "failed to refresh asset")
		return
	}

	response.RespondJSON(w, http.StatusOK, outcome)
}

// RefreshAll handles POST requests to refresh every stale asset.
//
// Endpoint: POST /api/assets/refresh
// Response: 200 OK with BatchReport
// Error: 409 Conflict if a refresh run is already in progress
func (h *AssetHandler) RefreshAll(w http.ResponseWriter, r *http.Request) {
	report, err := h.batchService.RefreshAllStale(context.WithoutCancel(r.Context()))
	if err != nil {
		respondServiceError(w, err, "failed to refresh assets")
		return
	}

	response.RespondJSON(w, http.StatusOK, report)
}

// Failures handles GET requests for the retry state of one asset.
//
// Endpoint: GET /api/assets/{asset}/failures
// Response: 200 OK with SourceFailureState
// Error: 404 Not Found if the asset is unknown
func (h *AssetHandler) Failures(w http.ResponseWriter, r *http.Request) {
	state, err := h.assetService.Failures(r.Context(), chi.URLParam(r, "asset"))
	if err != nil {
		respondServiceError(w, err, "failed to retrieve failure state")
		return
	}

	response.RespondJSON(w, http.StatusOK, state)
}

// ClearFailures handles DELETE requests that reset an asset's retry state so
// the next sync tries both sources again.
//
// Endpoint: DELETE /api/assets/{asset}/failures
// Response: 204 No Content
// Error: 404 Not Found if the asset is unknown
func (h *AssetHandler) ClearFailures(w http.ResponseWriter, r *http.Request) {
	if err := h.assetService.ClearFailures(r.Context(), chi.URLParam(r, "asset")); err != nil {
		respondServiceError(w, err, "failed to clear failure state")
		return
	}

	response.RespondJSON(w, http.StatusNoContent, nil)
}
