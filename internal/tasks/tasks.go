// package tasks implements drift inspection between the local snapshot and
// the remote store.
//
// The core abstraction is VerifyEngine, which compares the locally persisted
// lesson progress for a course against what the remote currently holds.
// Operations emit progress updates via channels for non-blocking status
// reporting to CLI/UI layers.
package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/myatdennis/coursesync/internal/models"
	"github.com/myatdennis/coursesync/internal/services"
	"github.com/myatdennis/coursesync/internal/shared"
	"github.com/myatdennis/coursesync/internal/store"
)

// LessonDrift pairs the two sides of a diverged lesson record.
type LessonDrift struct {
	Local  models.LessonProgress // Locally persisted record
	Remote models.LessonProgress // Record currently on the remote
}

// VerifyResult contains all data from a drift inspection.
type VerifyResult struct {
	UserID      string
	CourseID    string
	InSync      []string                // Lessons identical in recency on both sides
	LocalAhead  []LessonDrift           // Local record is newer than the remote's
	RemoteAhead []LessonDrift           // Remote record is newer than the local one
	LocalOnly   []models.LessonProgress // Recorded locally, unknown to the remote
	RemoteOnly  []models.LessonProgress // Known to the remote, absent locally
	QueueDepth  int                     // Mutations still waiting for delivery
}

// Clean reports whether both sides hold the same view and nothing is queued.
func (r *VerifyResult) Clean() bool {
	return len(r.LocalAhead) == 0 && len(r.RemoteAhead) == 0 &&
		len(r.LocalOnly) == 0 && len(r.RemoteOnly) == 0 && r.QueueDepth == 0
}

// VerifyEngine compares local state against the remote store.
type VerifyEngine struct {
	adapter store.Adapter
	remote  services.RemoteStore
}

// NewVerifyEngine creates a VerifyEngine over the given adapter and remote.
func NewVerifyEngine(adapter store.Adapter, remote services.RemoteStore) *VerifyEngine {
	return &VerifyEngine{adapter: adapter, remote: remote}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *VerifyEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Verify inspects drift between the local snapshot for userID/courseID and
// the remote store. Records diverge on recency alone: whichever side carries
// the later last-accessed instant is considered ahead. A remote that knows
// nothing about the course reads as empty, not as an error.
func (e *VerifyEngine) Verify(ctx context.Context, progress chan<- ProgressUpdate, userID, courseID string) (*VerifyResult, error) {
	if e.remote == nil {
		return nil, fmt.Errorf("%w: remote store not initialized", shared.ErrRemoteUnavailable)
	}

	result := &VerifyResult{UserID: userID, CourseID: courseID}

	e.sendProgress(progress, scanLocalUpdate(1, 2))
	local, _ := store.ReadJSON[[]models.LessonProgress](e.adapter, store.ProgressKey(userID, courseID))
	queued, _ := store.ReadJSON[[]models.QueuedMutation](e.adapter, store.QueueKey(userID))
	result.QueueDepth = len(queued)

	e.sendProgress(progress, fetchRemoteUpdate(2, 2))
	remote, err := e.remote.FetchLessonProgress(ctx, userID, courseID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("failed to fetch remote progress: %w", err)
	}

	e.sendProgress(progress, compareUpdate(1, 1, len(local)+len(remote)))

	remoteByLesson := make(map[string]models.LessonProgress, len(remote))
	for _, record := range remote {
		remoteByLesson[record.LessonID] = record
	}

	seen := make(map[string]bool, len(local))
	for _, record := range local {
		seen[record.LessonID] = true
		counterpart, found := remoteByLesson[record.LessonID]
		switch {
		case !found:
			result.LocalOnly = append(result.LocalOnly, record)
		case record.LastAccessedAt.After(counterpart.LastAccessedAt):
			result.LocalAhead = append(result.LocalAhead, LessonDrift{Local: record, Remote: counterpart})
		case counterpart.LastAccessedAt.After(record.LastAccessedAt):
			result.RemoteAhead = append(result.RemoteAhead, LessonDrift{Local: record, Remote: counterpart})
		default:
			result.InSync = append(result.InSync, record.LessonID)
		}
	}

	for _, record := range remote {
		if !seen[record.LessonID] {
			result.RemoteOnly = append(result.RemoteOnly, record)
		}
	}

	return result, nil
}
