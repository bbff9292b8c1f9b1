package domain

import "time"

// SyncStatus is a point-in-time view of the sync queue, recomputed on demand
// so it can never drift from the underlying records.
type SyncStatus struct {
	PendingCount   int        `json:"pending_count"`
	LastSyncedAt   *time.Time `json:"last_synced_at,omitempty"`
	SyncInProgress bool       `json:"sync_in_progress"`
}

// SyncError describes a single failed delivery within a drain.
type SyncError struct {
	UserID    string `json:"user_id"`
	JokeID    int64  `json:"joke_id"`
	Attempts  int    `json:"attempts"`
	Permanent bool   `json:"permanent"` // true once the attempt cap is reached
	Err       string `json:"error"`
}

// SyncResult aggregates one complete drain pass. Per-entry failures are
// collected here rather than raised so one bad entry cannot block the rest.
type SyncResult struct {
	Success bool        `json:"success"`
	Synced  int         `json:"synced"`
	Failed  int         `json:"failed"`
	Errors  []SyncError `json:"errors,omitempty"`
}

// BackgroundSyncStats is the scheduler's aggregate view for diagnostics.
type BackgroundSyncStats struct {
	Pending     int       `json:"pending"`
	LastRun     time.Time `json:"last_run"`
	CacheHealth int       `json:"cache_health"` // jokes available in the local bank
}
