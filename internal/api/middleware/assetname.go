// Package middleware provides HTTP middleware for request validation and processing.
package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/api/response"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/validation"
)

// ValidateAssetNameMiddleware validates the {asset} URL parameter.
// Returns 400 Bad Request if the name is missing or malformed.
//
// Example usage in router:
//
//	r.Route("/{asset}", func(r chi.Router) {
//	    r.Use(middleware.ValidateAssetNameMiddleware)
//	    r.Get("/", handler.Asset)
//	})
func ValidateAssetNameMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "asset")

		if name == "" {
			response.RespondError(w, http.StatusBadRequest, "asset name is required", "")
			return
		}

		if err := validation.ValidateAssetName(name); err != nil {
			response.RespondError(w, http.StatusBadRequest, "invalid asset name", err.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}
