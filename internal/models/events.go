package models

import (
	"encoding/json"
	"time"
)

// EventType tags an externally-pushed change notification.
type EventType string

const (
	EventProgressSync      EventType = "progress_sync"
	EventCourseUpdated     EventType = "course_updated"
	EventEnrollmentChanged EventType = "enrollment_changed"
	EventUserStatusChanged EventType = "user_status_changed"
)

// RealtimeEvent is an asynchronously pushed notification of a state change
// originating outside the current session. Transient: events are never
// persisted, only reduced into local state when they win the recency
// comparison.
type RealtimeEvent struct {
	Type      EventType       `json:"type"`
	UserID    string          `json:"user_id"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// ProgressSyncPayload is the payload shape for EventProgressSync events:
// a full lesson progress record as seen by the originating session.
type ProgressSyncPayload struct {
	CourseID string         `json:"course_id"`
	Progress LessonProgress `json:"progress"`
}

// EnrollmentChangedPayload is the payload shape for EventEnrollmentChanged.
type EnrollmentChangedPayload struct {
	Enrollment CourseEnrollment `json:"enrollment"`
}
