package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/api/request"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/api/response"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/service"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/validation"
)

// DocsHandler serves and archives ticker news and research.
type DocsHandler struct {
	docsService *service.DocsService
}

// NewDocsHandler creates a new DocsHandler.
func NewDocsHandler(docsService *service.DocsService) *DocsHandler {
	return &DocsHandler{docsService: docsService}
}

// Docs handles GET requests for the latest news and research of an asset.
//
// Endpoint: GET /api/assets/{asset}/docs
// Response: 200 OK with AssetDocs
// Error: 404 Not Found if the asset is unknown
// Error: 502 Bad Gateway if both lookups fail
func (h *DocsHandler) Docs(w http.ResponseWriter, r *http.Request) {
	docs, err := h.docsService.Fetch(r.Context(), chi.URLParam(r, "asset"))
	if err != nil {
		respondServiceError(w, err, "failed to retrieve documents")
		return
	}

	response.RespondJSON(w, http.StatusOK, docs)
}

// SaveDocs handles POST requests that archive a news or research snapshot in
// the primary repository.
//
// Endpoint: POST /api/assets/{asset}/docs/{type}
// Request Body: optional SaveDocsRequest
// Response: 201 Created with DocCommit
// Error: 400 Bad Request if the type or body is invalid
// Error: 503 Service Unavailable if no repository token is configured
func (h *DocsHandler) SaveDocs(w http.ResponseWriter, r *http.Request) {
	docType, err := validation.ValidateDocType(chi.URLParam(r, "type"))
	if err != nil {
		respondServiceError(w, err, "invalid document type")
		return
	}

	var req request.SaveDocsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	commit, err := h.docsService.Save(r.Context(), chi.URLParam(r, "asset"), docType, req.Items)
	if err != nil {
		respondServiceError(w, err, "failed to save documents")
		return
	}

	response.RespondJSON(w, http.StatusCreated, commit)
}
