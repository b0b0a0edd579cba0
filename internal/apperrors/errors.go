package apperrors

import (
	"errors"
	"fmt"
	"time"
)

// Domain entity errors represent missing or invalid entities in the system.
var (
	// ErrAssetNotFound indicates that the asset name is not part of the registry.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrCacheRecordNotFound indicates that no cached series exists for the asset.
	ErrCacheRecordNotFound = errors.New("cache record not found")

	// ErrFailureStateNotFound indicates that the asset has no tracked failures.
	ErrFailureStateNotFound = errors.New("failure state not found")

	// ErrDerivedEntryNotFound indicates a miss in the derived results cache.
	ErrDerivedEntryNotFound = errors.New("derived cache entry not found")
)

// Business logic errors represent validation failures or constraint violations.
var (
	ErrInvalidAssetName = errors.New("asset name is required")
	ErrInvalidDate      = errors.New("date must be formatted as YYYY-MM-DD")
	ErrInvalidWindow    = errors.New("window days out of range")
	ErrInvalidPeriod    = errors.New("period must be between 2 and 500")
	ErrInvalidDocType   = errors.New("document type must be news or research")

	// ErrPublishingDisabled indicates that no repository token is configured.
	ErrPublishingDisabled = errors.New("repository publishing is not configured")

	// ErrRefreshInProgress indicates that a refresh-all run is already executing.
	ErrRefreshInProgress = errors.New("refresh already in progress")

	// ErrInsufficientData indicates that a computation had too little history.
	ErrInsufficientData = errors.New("insufficient data")
)

// Configuration errors.
var (
	ErrInvalidAssetsFile = errors.New("invalid assets file")
	ErrDuplicateAsset    = errors.New("duplicate asset name")
	ErrMissingFernetKey  = errors.New("FERNET_KEY is required to decrypt the repository token")
	ErrInvalidToken      = errors.New("repository token could not be decrypted")
)

// FetchKind classifies upstream failures.
type FetchKind string

const (
	KindNotFound     FetchKind = "not_found"
	KindRateLimited  FetchKind = "rate_limited"
	KindMalformed    FetchKind = "malformed"
	KindNoData       FetchKind = "no_data"
	KindTimeout      FetchKind = "timeout"
	KindUnauthorized FetchKind = "unauthorized"
	KindUnknown      FetchKind = "unknown"
)

// FetchError is returned by every source fetcher. RetryAfter carries the
// provider's throttling hint when one was supplied.
type FetchError struct {
	Source     string
	Kind       FetchKind
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", e.Source, e.Kind, e.Message)
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(" (retry after %s)", e.RetryAfter)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError builds a FetchError without an underlying cause.
func NewFetchError(source string, kind FetchKind, format string, args ...any) *FetchError {
	return &FetchError{
		Source:  source,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// AsFetchError extracts a FetchError from err's chain.
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// KindOf returns the FetchKind of err, or KindUnknown for anything else.
func KindOf(err error) FetchKind {
	if fe, ok := AsFetchError(err); ok {
		return fe.Kind
	}
	return KindUnknown
}
