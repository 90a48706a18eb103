package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Action identifies the kind of progress-affecting work a queued mutation
// carries.
type Action string

const (
	ActionProgressUpdate Action = "progress-update"
	ActionLessonComplete Action = "lesson-complete"
	ActionQuizSubmit     Action = "quiz-submit"
	ActionReflectionSave Action = "reflection-save"
)

// Priority orders queued mutations. Higher values drain first; ties are
// broken by enqueue time, oldest first.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// ParsePriority converts a config or wire string into a Priority.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(s) {
	case "high":
		return PriorityHigh, nil
	case "medium":
		return PriorityMedium, nil
	case "low":
		return PriorityLow, nil
	default:
		return PriorityLow, fmt.Errorf("unknown priority: %q", s)
	}
}

// MarshalJSON encodes the priority as its name so persisted queues stay
// readable and stable across reorderings of the enum.
func (p Priority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes a priority name.
func (p *Priority) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePriority(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// QueuedMutation is a durable, at-least-once-delivery unit of work held by
// the offline queue until the remote store confirms it or retries are
// exhausted.
type QueuedMutation struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	CourseID   string          `json:"course_id"`
	ModuleID   string          `json:"module_id"`
	LessonID   string          `json:"lesson_id"`
	Action     Action          `json:"action"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	Attempts   int             `json:"attempts"`
	Priority   Priority        `json:"priority"`
}

// DedupKey identifies the at-most-one slot this mutation occupies in the
// queue: a later enqueue with the same key replaces the earlier entry.
func (m QueuedMutation) DedupKey() string {
	return m.UserID + "|" + m.CourseID + "|" + m.LessonID + "|" + string(m.Action)
}

// Validate checks the mutation's identity fields.
func (m QueuedMutation) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("queued mutation missing id")
	}
	if m.UserID == "" || m.CourseID == "" || m.LessonID == "" {
		return fmt.Errorf("queued mutation missing identity fields")
	}
	switch m.Action {
	case ActionProgressUpdate, ActionLessonComplete, ActionQuizSubmit, ActionReflectionSave:
	default:
		return fmt.Errorf("unknown mutation action: %q", m.Action)
	}
	return nil
}
