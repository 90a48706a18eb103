// package models defines the data model for the course progress sync engine
package models

import (
	"fmt"
	"time"
)

// ProgressStatus is derived from the completed flag, never stored.
type ProgressStatus string

const (
	StatusInProgress ProgressStatus = "in-progress"
	StatusCompleted  ProgressStatus = "completed"
)

// LessonProgress tracks one (course, lesson, user) tuple.
//
// Records are created lazily on first progress update and never hard-deleted,
// only superseded by newer writes. Invariant: Completed implies
// ProgressPercentage == 100.
type LessonProgress struct {
	ID                 string     `json:"id"`
	UserID             string     `json:"user_id"`
	CourseID           string     `json:"course_id"`
	ModuleID           string     `json:"module_id"`
	LessonID           string     `json:"lesson_id"`
	TimeSpentSeconds   int        `json:"time_spent_seconds"`
	Completed          bool       `json:"completed"`
	ProgressPercentage int        `json:"progress_percentage"`
	LastAccessedAt     time.Time  `json:"last_accessed_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

// Status derives the display status from the completed flag.
func (p LessonProgress) Status() ProgressStatus {
	if p.Completed {
		return StatusCompleted
	}
	return StatusInProgress
}

// Validate checks the record's invariants.
func (p LessonProgress) Validate() error {
	if p.UserID == "" || p.CourseID == "" || p.LessonID == "" {
		return fmt.Errorf("lesson progress missing identity fields")
	}
	if p.ProgressPercentage < 0 || p.ProgressPercentage > 100 {
		return fmt.Errorf("progress percentage out of range: %d", p.ProgressPercentage)
	}
	if p.Completed && p.ProgressPercentage != 100 {
		return fmt.Errorf("completed lesson must be at 100%%, got %d", p.ProgressPercentage)
	}
	if p.TimeSpentSeconds < 0 {
		return fmt.Errorf("negative time spent: %d", p.TimeSpentSeconds)
	}
	return nil
}

// ProgressFields is a partial update merged onto a LessonProgress record.
// Nil fields are left untouched.
type ProgressFields struct {
	TimeSpentSeconds   *int       `json:"time_spent_seconds,omitempty"`
	Completed          *bool      `json:"completed,omitempty"`
	ProgressPercentage *int       `json:"progress_percentage,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

// Merge overlays other onto f, later writer wins per field. Used by the
// auto-save scheduler to coalesce rapid successive edits to one lesson into
// a single pending save.
func (f ProgressFields) Merge(other ProgressFields) ProgressFields {
	if other.TimeSpentSeconds != nil {
		f.TimeSpentSeconds = other.TimeSpentSeconds
	}
	if other.Completed != nil {
		f.Completed = other.Completed
	}
	if other.ProgressPercentage != nil {
		f.ProgressPercentage = other.ProgressPercentage
	}
	if other.CompletedAt != nil {
		f.CompletedAt = other.CompletedAt
	}
	return f
}

// Int returns a pointer to v, for building ProgressFields literals.
func Int(v int) *int { return &v }

// Bool returns a pointer to v, for building ProgressFields literals.
func Bool(v bool) *bool { return &v }

// Apply merges partial fields onto the record, enforcing invariants:
// the percentage is clamped to 0-100, time spent never decreases, and a
// completed record is forced to 100%. LastAccessedAt is always bumped to now.
func (p *LessonProgress) Apply(f ProgressFields, now time.Time) {
	if f.TimeSpentSeconds != nil && *f.TimeSpentSeconds > p.TimeSpentSeconds {
		p.TimeSpentSeconds = *f.TimeSpentSeconds
	}
	if f.ProgressPercentage != nil {
		p.ProgressPercentage = clampPercent(*f.ProgressPercentage)
	}
	if f.Completed != nil {
		p.Completed = *f.Completed
	}
	if f.CompletedAt != nil {
		p.CompletedAt = f.CompletedAt
	}
	if p.Completed {
		p.ProgressPercentage = 100
		if p.CompletedAt == nil {
			t := now
			p.CompletedAt = &t
		}
	}
	p.LastAccessedAt = now
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// CourseEnrollment tracks one (course, user) tuple.
//
// Created on first load of a course when absent (implicit self-enrollment).
// ProgressPercentage is a derived aggregate, not independently authoritative.
type CourseEnrollment struct {
	ID                 string     `json:"id"`
	UserID             string     `json:"user_id"`
	CourseID           string     `json:"course_id"`
	EnrolledAt         time.Time  `json:"enrolled_at"`
	ProgressPercentage int        `json:"progress_percentage"`
	LastAccessedAt     time.Time  `json:"last_accessed_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

// Validate checks the enrollment's identity fields.
func (e CourseEnrollment) Validate() error {
	if e.UserID == "" || e.CourseID == "" {
		return fmt.Errorf("enrollment missing identity fields")
	}
	return nil
}

// Reflection is a free-form lesson note saved through the low-priority
// queued path; reflections are not frequently-changing telemetry and skip
// the auto-save scheduler.
type Reflection struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CourseID  string    `json:"course_id"`
	LessonID  string    `json:"lesson_id"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the reflection's identity fields.
func (r Reflection) Validate() error {
	if r.UserID == "" || r.CourseID == "" || r.LessonID == "" {
		return fmt.Errorf("reflection missing identity fields")
	}
	return nil
}
