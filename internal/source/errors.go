package source

import (
	"context"
	"errors"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/model"
)

// asFetchError re-labels client errors with the logical source name so callers
// see "primary"/"secondary" rather than the provider host. Plain errors become
// Timeout or Unknown.
func asFetchError(src model.Source, err error) error {
	if fe, ok := apperrors.AsFetchError(err); ok {
		out := *fe
		out.Source = string(src)
		return &out
	}
	kind := apperrors.KindUnknown
	if errors.Is(err, context.DeadlineExceeded) {
		kind = apperrors.KindTimeout
	}
	return &apperrors.FetchError{Source: string(src), Kind: kind, Message: "fetch failed", Err: err}
}
