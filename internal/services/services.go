// package services defines the RemoteStore interface for the hosted
// progress backend and its HTTP implementation
//
// The backend is an opaque collaborator: every call is asynchronous, may
// fail, and failures are funneled into the engine's retry paths rather than
// thrown to callers.
package services

import (
	"context"

	"github.com/myatdennis/coursesync/internal/models"
)

// RemoteStore defines the remote read/write surface the sync engine depends
// on. Upserts are idempotent and keyed by (user, lesson) or (user, course):
// duplicate delivery via both the auto-save scheduler and the offline queue
// is safe, not erroneous.
type RemoteStore interface {
	// FetchEnrollment retrieves the enrollment for a user and course.
	// Returns shared.ErrNotFound (wrapped) when the user is not enrolled.
	FetchEnrollment(ctx context.Context, userID, courseID string) (*models.CourseEnrollment, error)

	// FetchLessonProgress retrieves all lesson progress records for a user
	// and course.
	FetchLessonProgress(ctx context.Context, userID, courseID string) ([]models.LessonProgress, error)

	// FetchReflections retrieves all reflections for a user and course.
	FetchReflections(ctx context.Context, userID, courseID string) ([]models.Reflection, error)

	// UpsertEnrollment creates or replaces an enrollment.
	UpsertEnrollment(ctx context.Context, enrollment models.CourseEnrollment) error

	// UpsertLessonProgress creates or replaces a lesson progress record.
	UpsertLessonProgress(ctx context.Context, progress models.LessonProgress) error

	// UpsertReflection creates or replaces a reflection.
	UpsertReflection(ctx context.Context, reflection models.Reflection) error
}
