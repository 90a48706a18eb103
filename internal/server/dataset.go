package server

import (
	"sync"

	"github.com/myatdennis/coursesync/internal/models"
)

// Dataset is the server's in-memory state. Upserts are keyed the same way
// the hosted backend keys its tables, so duplicate delivery from a client's
// scheduler and queue collapses into one logical row.
type Dataset struct {
	mu          sync.RWMutex
	enrollments map[string]models.CourseEnrollment
	progress    map[string]models.LessonProgress
	reflections map[string]models.Reflection
}

func NewDataset() *Dataset {
	return &Dataset{
		enrollments: make(map[string]models.CourseEnrollment),
		progress:    make(map[string]models.LessonProgress),
		reflections: make(map[string]models.Reflection),
	}
}

func enrollmentKey(userID, courseID string) string { return userID + "|" + courseID }
func progressKey(userID, lessonID string) string   { return userID + "|" + lessonID }

// Enrollment returns the enrollment for a user and course.
func (d *Dataset) Enrollment(userID, courseID string) (models.CourseEnrollment, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.enrollments[enrollmentKey(userID, courseID)]
	return e, ok
}

// PutEnrollment creates or replaces an enrollment.
func (d *Dataset) PutEnrollment(e models.CourseEnrollment) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enrollments[enrollmentKey(e.UserID, e.CourseID)] = e
}

// Progress returns all lesson progress records for a user and course.
func (d *Dataset) Progress(userID, courseID string) []models.LessonProgress {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := []models.LessonProgress{}
	for _, r := range d.progress {
		if r.UserID == userID && r.CourseID == courseID {
			out = append(out, r)
		}
	}
	return out
}

// PutProgress creates or replaces a lesson progress record.
func (d *Dataset) PutProgress(p models.LessonProgress) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.progress[progressKey(p.UserID, p.LessonID)] = p
}

// Reflections returns all reflections for a user and course.
func (d *Dataset) Reflections(userID, courseID string) []models.Reflection {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := []models.Reflection{}
	for _, r := range d.reflections {
		if r.UserID == userID && r.CourseID == courseID {
			out = append(out, r)
		}
	}
	return out
}

// PutReflection creates or replaces a reflection.
func (d *Dataset) PutReflection(r models.Reflection) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reflections[progressKey(r.UserID, r.LessonID)] = r
}
