package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/myatdennis/coursesync/internal/models"
)

// FailedMutation records a queued mutation that exhausted its retries.
// Terminal failures are surfaced to the user, never silently dropped; this
// table is what `coursesync queue list --failed` reads.
type FailedMutation struct {
	Mutation models.QueuedMutation
	FailedAt time.Time
}

// FailureRepository persists terminal delivery failures.
type FailureRepository struct {
	db *sql.DB
}

// NewFailureRepository creates a FailureRepository with the given database connection.
func NewFailureRepository(db *sql.DB) *FailureRepository {
	return &FailureRepository{db: db}
}

// Record inserts a terminal failure. Re-recording the same mutation ID
// overwrites the previous row.
func (r *FailureRepository) Record(m models.QueuedMutation) error {
	query := `
		INSERT INTO failed_mutations (id, user_id, course_id, lesson_id, action, payload, attempts, failed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET attempts = excluded.attempts, failed_at = CURRENT_TIMESTAMP
	`
	_, err := r.db.Exec(query, m.ID, m.UserID, m.CourseID, m.LessonID, string(m.Action), string(m.Payload), m.Attempts)
	if err != nil {
		return fmt.Errorf("failed to record mutation failure: %w", err)
	}
	return nil
}

// List returns all recorded failures for a user, newest first.
func (r *FailureRepository) List(userID string) ([]FailedMutation, error) {
	query := `
		SELECT id, user_id, course_id, lesson_id, action, payload, attempts, failed_at
		FROM failed_mutations
		WHERE user_id = ?
		ORDER BY failed_at DESC
	`
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list mutation failures: %w", err)
	}
	defer rows.Close()

	var failures []FailedMutation
	for rows.Next() {
		var f FailedMutation
		var action, payload string
		if err := rows.Scan(&f.Mutation.ID, &f.Mutation.UserID, &f.Mutation.CourseID,
			&f.Mutation.LessonID, &action, &payload, &f.Mutation.Attempts, &f.FailedAt); err != nil {
			return nil, fmt.Errorf("failed to scan mutation failure: %w", err)
		}
		f.Mutation.Action = models.Action(action)
		f.Mutation.Payload = []byte(payload)
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

// Clear removes all recorded failures for a user.
func (r *FailureRepository) Clear(userID string) error {
	_, err := r.db.Exec("DELETE FROM failed_mutations WHERE user_id = ?", userID)
	return err
}
