package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/api/response"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/validation"
)

// respondServiceError maps a service error to a status code. Unknown errors
// become 500 with message as the summary.
func respondServiceError(w http.ResponseWriter, err error, message string) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		response.RespondError(w, http.StatusBadRequest, "validation failed", verr.Fields)
	case errors.Is(err, apperrors.ErrAssetNotFound):
		response.RespondError(w, http.StatusNotFound, apperrors.ErrAssetNotFound.Error(), err.Error())
	case errors.Is(err, apperrors.ErrCacheRecordNotFound):
		response.RespondError(w, http.StatusNotFound, apperrors.ErrCacheRecordNotFound.Error(), err.Error())
	case errors.Is(err, apperrors.ErrInsufficientData):
		response.RespondError(w, http.StatusNotFound, apperrors.ErrInsufficientData.Error(), "")
	case errors.Is(err, apperrors.ErrInvalidWindow),
		errors.Is(err, apperrors.ErrInvalidPeriod),
		errors.Is(err, apperrors.ErrInvalidDate),
		errors.Is(err, apperrors.ErrInvalidDocType),
		errors.Is(err, apperrors.ErrInvalidAssetName):
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
	case errors.Is(err, apperrors.ErrRefreshInProgress):
		response.RespondError(w, http.StatusConflict, apperrors.ErrRefreshInProgress.Error(), "")
	case errors.Is(err, apperrors.ErrPublishingDisabled):
		response.RespondError(w, http.StatusServiceUnavailable, apperrors.ErrPublishingDisabled.Error(), "")
	default:
		if fe, ok := apperrors.AsFetchError(err); ok {
			respondFetchError(w, fe)
			return
		}
		response.RespondError(w, http.StatusInternalServerError, message, err.Error())
	}
}

// respondFetchError reports an upstream failure. Throttling is passed on with
// the provider's hint; other failures are a bad gateway.
func respondFetchError(w http.ResponseWriter, fe *apperrors.FetchError) {
	switch fe.Kind {
	case apperrors.KindNotFound, apperrors.KindNoData:
		response.RespondError(w, http.StatusNotFound, "no upstream data", fe.Error())
	case apperrors.KindRateLimited:
		if fe.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(fe.RetryAfter.Seconds()))))
		}
		response.RespondError(w, http.StatusTooManyRequests, "upstream rate limited", fe.Error())
	default:
		response.RespondError(w, http.StatusBadGateway, "upstream request failed", fe.Error())
	}
}
