package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/api/response"
)

// APIKey returns a middleware that requires the X-API-Key header to equal key.
// An empty key disables the check.
func APIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get("X-API-Key")
			if provided == "" {
				response.RespondError(w, http.StatusUnauthorized, "unauthorized", "Missing API key")
				return
			}
			if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
				response.RespondError(w, http.StatusUnauthorized, "unauthorized", "Invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
