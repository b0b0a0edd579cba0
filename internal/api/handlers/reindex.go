package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/api/request"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/api/response"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/model"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/service"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/validation"
)

// ReindexHandler serves event-relative views of cached series.
type ReindexHandler struct {
	reindexService *service.ReindexService
}

// NewReindexHandler creates a new ReindexHandler.
func NewReindexHandler(reindexService *service.ReindexService) *ReindexHandler {
	return &ReindexHandler{reindexService: reindexService}
}

// ReindexPoint is one row of a reindexed series.
type ReindexPoint struct {
	Date       string  `json:"date"`
	Raw        float64 `json:"raw"`
	Normalized float64 `json:"normalized"`
}

// ReindexResponse is the JSON form of model.ReindexResult.
type ReindexResponse struct {
	Asset         string            `json:"asset"`
	Mode          model.ReindexMode `json:"mode"`
	ReferenceDate string            `json:"referenceDate"`
	DaysBefore    int               `json:"daysBefore"`
	DaysAfter     int               `json:"daysAfter"`
	Baseline      float64           `json:"baseline"`
	Points        []ReindexPoint    `json:"points"`
}

// Reindex handles GET requests for an asset's series normalized to 100 at the
// reference date. Only cached data is used.
//
// Endpoint: GET /api/assets/{asset}/reindex?date=YYYY-MM-DD&before=30&after=60
// Response: 200 OK with ReindexResponse
// Error: 400 Bad Request if the query is invalid
// Error: 404 Not Found if the asset is unknown or there is insufficient data
func (h *ReindexHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	defBefore, defAfter := h.reindexService.Defaults()
	req, err := validation.ValidateReindexQuery(
		chi.URLParam(r, "asset"),
		request.ParseReindexQuery(r.URL.Query()),
		defBefore, defAfter,
	)
	if err != nil {
		respondServiceError(w, err, "invalid reindex query")
		return
	}

	res, err := h.reindexService.ComputeWindow(r.Context(), req)
	if err != nil {
		respondServiceError(w, err, "failed to reindex asset")
		return
	}

	resp := ReindexResponse{
		Asset:         res.AssetName,
		Mode:          res.Mode,
		ReferenceDate: req.ReferenceDate.Format(model.DateLayout),
		DaysBefore:    req.DaysBefore,
		DaysAfter:     req.DaysAfter,
		Baseline:      res.BaselineValue,
		Points:        make([]ReindexPoint, len(res.Dates)),
	}
	for i, d := range res.Dates {
		resp.Points[i] = ReindexPoint{
			Date:       d.Format(model.DateLayout),
			Raw:        res.RawValues[i],
			Normalized: res.NormalizedValues[i],
		}
	}
	response.RespondJSON(w, http.StatusOK, resp)
}
