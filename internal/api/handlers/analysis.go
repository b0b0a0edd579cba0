package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/api/request"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/api/response"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/service"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/validation"
)

// AnalysisHandler serves summary statistics over cached series.
type AnalysisHandler struct {
	analysisService *service.AnalysisService
}

// NewAnalysisHandler creates a new AnalysisHandler.
func NewAnalysisHandler(analysisService *service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{analysisService: analysisService}
}

// Stats handles GET requests for SMA, RSI and, with a benchmark, correlation and beta.
//
// Endpoint: GET /api/analysis/{asset}/stats?benchmark=nasdaq&period=20
// Response: 200 OK with AssetStats
// Error: 400 Bad Request if the query is invalid
// Error: 404 Not Found if either asset is unknown or has no cached series
func (h *AnalysisHandler) Stats(w http.ResponseWriter, r *http.Request) {
	benchmark, period, err := validation.ValidateStatsQuery(request.ParseStatsQuery(r.URL.Query()))
	if err != nil {
		respondServiceError(w, err, "invalid stats query")
		return
	}

	stats, err := h.analysisService.Stats(r.Context(), chi.URLParam(r, "asset"), benchmark, period)
	if err != nil {
		respondServiceError(w, err, "failed to compute stats")
		return
	}

	response.RespondJSON(w, http.StatusOK, stats)
}
