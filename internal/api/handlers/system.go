package handlers

import (
	"net/http"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/api/response"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/service"
)

// SystemHandler handles system-related HTTP requests
type SystemHandler struct {
	systemService *service.SystemService
	batchService  *service.BatchService
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(systemService *service.SystemService, batchService *service.BatchService) *SystemHandler {
	return &SystemHandler{
		systemService: systemService,
		batchService:  batchService,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Error    string `json:"error,omitempty"`
}

// Health checks the health of the system and database connectivity
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.systemService.CheckHealth(r.Context()); err != nil {
		response.RespondJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:   "unhealthy",
			Database: "disconnected",
			Error:    err.Error(),
		})
		return
	}

	response.RespondJSON(w, http.StatusOK, HealthResponse{
		Status:   "healthy",
		Database: "connected",
	})
}

// VersionResponse represents the version check response.
type VersionResponse struct {
	AppVersion string `json:"app_version"`
}

// Version handles GET requests for the application version.
//
// Endpoint: GET /api/system/version
// Response: 200 OK with VersionResponse
func (h *SystemHandler) Version(w http.ResponseWriter, _ *http.Request) {
	response.RespondJSON(w, http.StatusOK, VersionResponse{AppVersion: h.systemService.CheckVersion()})
}

// LastRefresh returns the report of the most recent refresh-all run.
//
// Endpoint: GET /api/system/refresh
// Response: 200 OK with BatchReport
// Error: 404 Not Found if no run has completed since startup
func (h *SystemHandler) LastRefresh(w http.ResponseWriter, _ *http.Request) {
	report := h.batchService.LastReport()
	if report == nil {
		response.RespondError(w, http.StatusNotFound, "no refresh run has completed", "")
		return
	}
	response.RespondJSON(w, http.StatusOK, report)
}
