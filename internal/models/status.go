package models

import "time"

// SyncStatus summarizes whether all known local edits have been durably
// written remotely.
type SyncStatus string

const (
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusPending SyncStatus = "pending"
	SyncStatusError   SyncStatus = "error"
)

// SessionState is the full status surface UI consumers are permitted to
// depend on; nothing deeper into the engine's internals is part of the
// contract.
type SessionState struct {
	IsOnline       bool       `json:"is_online"`
	IsSaving       bool       `json:"is_saving"`
	SyncStatus     SyncStatus `json:"sync_status"`
	PendingChanges int        `json:"pending_changes"`
	QueueSize      int        `json:"queue_size"`
	LastSaved      *time.Time `json:"last_saved,omitempty"`
}

// CompletionStats reports how many tracked lessons are completed.
type CompletionStats struct {
	CompletedLessons int `json:"completed_lessons"`
	TotalLessons     int `json:"total_lessons"`
	Percentage       int `json:"percentage"`
}
