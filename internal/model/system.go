package model

import "time"

// AssetSummary joins an asset with its cache and failure state for listing.
type AssetSummary struct {
	Asset     Asset               `json:"asset"`
	Cached    bool                `json:"cached"`
	Fresh     bool                `json:"fresh"`
	FetchedAt *time.Time          `json:"fetchedAt,omitempty"`
	Rows      int                 `json:"rows"`
	DateRange *DateRange          `json:"dateRange,omitempty"`
	Failures  *SourceFailureState `json:"failures,omitempty"`
	LastError string              `json:"lastError,omitempty"`
	RetryAt   *time.Time          `json:"retryAt,omitempty"`
}
