// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/myatdennis/coursesync/internal/models"
)

// FakeClock is a deterministic shared.Clock for tests controlling which
// write wins a recency comparison.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock starts at a fixed instant.
func NewFakeClock(start time.Time) *FakeClock {
	if start.IsZero() {
		start = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// MockRemote is a test double for [services.RemoteStore] with overridable
// behavior per method. Nil funcs return empty results.
type MockRemote struct {
	FetchEnrollmentFunc     func(ctx context.Context, userID, courseID string) (*models.CourseEnrollment, error)
	FetchLessonProgressFunc func(ctx context.Context, userID, courseID string) ([]models.LessonProgress, error)
	FetchReflectionsFunc    func(ctx context.Context, userID, courseID string) ([]models.Reflection, error)
	UpsertEnrollmentFunc    func(ctx context.Context, e models.CourseEnrollment) error
	UpsertProgressFunc      func(ctx context.Context, p models.LessonProgress) error
	UpsertReflectionFunc    func(ctx context.Context, r models.Reflection) error
}

func (m *MockRemote) FetchEnrollment(ctx context.Context, userID, courseID string) (*models.CourseEnrollment, error) {
	if m.FetchEnrollmentFunc != nil {
		return m.FetchEnrollmentFunc(ctx, userID, courseID)
	}
	return &models.CourseEnrollment{UserID: userID, CourseID: courseID}, nil
}

func (m *MockRemote) FetchLessonProgress(ctx context.Context, userID, courseID string) ([]models.LessonProgress, error) {
	if m.FetchLessonProgressFunc != nil {
		return m.FetchLessonProgressFunc(ctx, userID, courseID)
	}
	return nil, nil
}

func (m *MockRemote) FetchReflections(ctx context.Context, userID, courseID string) ([]models.Reflection, error) {
	if m.FetchReflectionsFunc != nil {
		return m.FetchReflectionsFunc(ctx, userID, courseID)
	}
	return nil, nil
}

func (m *MockRemote) UpsertEnrollment(ctx context.Context, e models.CourseEnrollment) error {
	if m.UpsertEnrollmentFunc != nil {
		return m.UpsertEnrollmentFunc(ctx, e)
	}
	return nil
}

func (m *MockRemote) UpsertLessonProgress(ctx context.Context, p models.LessonProgress) error {
	if m.UpsertProgressFunc != nil {
		return m.UpsertProgressFunc(ctx, p)
	}
	return nil
}

func (m *MockRemote) UpsertReflection(ctx context.Context, r models.Reflection) error {
	if m.UpsertReflectionFunc != nil {
		return m.UpsertReflectionFunc(ctx, r)
	}
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
