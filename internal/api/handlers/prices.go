package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/api/request"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/api/response"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/service"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/validation"
)

// PriceHandler serves closing prices for arbitrary date ranges.
type PriceHandler struct {
	priceService *service.PriceService
	now          func() time.Time
}

// NewPriceHandler creates a new PriceHandler.
func NewPriceHandler(priceService *service.PriceService) *PriceHandler {
	return &PriceHandler{priceService: priceService, now: time.Now}
}

// Prices handles GET requests for an asset's closes between two dates.
//
// Endpoint: GET /api/assets/{asset}/prices?start=YYYY-MM-DD&end=YYYY-MM-DD
// Response: 200 OK with PriceWindow
// Error: 400 Bad Request if the range is invalid
// Error: 404 Not Found if the asset is unknown or the source has no data
// Error: 429 Too Many Requests if the source is throttling
// Error: 502 Bad Gateway if the download fails
func (h *PriceHandler) Prices(w http.ResponseWriter, r *http.Request) {
	start, end, err := validation.ValidatePriceQuery(request.ParsePriceQuery(r.URL.Query()), h.now())
	if err != nil {
		respondServiceError(w, err, "invalid price query")
		return
	}

	window, err := h.priceService.Window(r.Context(), chi.URLParam(r, "asset"), start, end)
	if err != nil {
		respondServiceError(w, err, "failed to retrieve prices")
		return
	}

	response.RespondJSON(w, http.StatusOK, window)
}
