package model

import "time"

// SyncState names a step of the per-asset refresh state machine.
type SyncState string

const (
	StateCheckFresh    SyncState = "CHECK_FRESH"
	StateCheckCooldown SyncState = "CHECK_COOLDOWN"
	StateTryPrimary    SyncState = "TRY_PRIMARY"
	StateTrySecondary  SyncState = "TRY_SECONDARY"
	StateRecordOutcome SyncState = "RECORD_OUTCOME"
	StateDone          SyncState = "DONE"
)

// SyncStatus is the result of one refresh attempt for one asset.
type SyncStatus string

const (
	// SyncStatusFresh means the cache was fresh and no upstream was called.
	SyncStatusFresh SyncStatus = "fresh"
	// SyncStatusCooldown means both sources were cooling down and the asset was skipped.
	SyncStatusCooldown SyncStatus = "cooldown"
	// SyncStatusUpdated means a source answered and the cache was rewritten.
	SyncStatusUpdated SyncStatus = "updated"
	// SyncStatusFailed means every eligible source failed; the asset stays stale.
	SyncStatusFailed SyncStatus = "failed"
)

// SyncOutcome describes what a single refresh did for one asset.
//
// Fields:
//   - Status: the terminal status of the run
//   - Source: which upstream answered (only when Status is updated)
//   - Attempted: the sources that were called, in call order
//   - Path: the state machine steps visited, for auditing
//   - Error / RetryAt: the most recent recorded failure and when a retry is allowed
//   - Message: human-readable summary for the UI
type SyncOutcome struct {
	AssetName string      `json:"assetName"`
	Status    SyncStatus  `json:"status"`
	Source    Source      `json:"source,omitempty"`
	Attempted []Source    `json:"attempted"`
	Path      []SyncState `json:"path"`
	Rows      int         `json:"rows,omitempty"`
	Error     string      `json:"error,omitempty"`
	RetryAt   *time.Time  `json:"retryAt,omitempty"`
	Message   string      `json:"message"`
}

// BatchReport is the per-asset result of a refresh-all run. Individual failures are
// data, not errors; a report is always produced.
type BatchReport struct {
	RunID      string        `json:"runId"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	Groups     [][]string    `json:"groups"`
	Outcomes   []SyncOutcome `json:"outcomes"`
	Updated    int           `json:"updated"`
	Skipped    int           `json:"skipped"`
	Failed     int           `json:"failed"`
	Message    string        `json:"message"`
}
