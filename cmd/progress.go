package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/myatdennis/coursesync/internal/models"
	"github.com/myatdennis/coursesync/internal/shared"
	"github.com/urfave/cli/v3"
)

// ProgressUpdate merges a partial update onto a lesson record and flushes it.
func (r *Runner) ProgressUpdate(ctx context.Context, cmd *cli.Command) error {
	lessonID := cmd.String("lesson")
	moduleID := cmd.String("module")

	fields := models.ProgressFields{}
	if cmd.IsSet("pct") {
		fields.ProgressPercentage = models.Int(cmd.Int("pct"))
	}
	if cmd.IsSet("time-spent") {
		fields.TimeSpentSeconds = models.Int(cmd.Int("time-spent"))
	}
	if fields.ProgressPercentage == nil && fields.TimeSpentSeconds == nil {
		return fmt.Errorf("%w: at least one of --pct or --time-spent is required", shared.ErrInvalidInput)
	}

	t, done, err := r.session(ctx, cmd)
	if err != nil {
		return err
	}
	defer done()

	if err := t.UpdateLessonProgress(lessonID, moduleID, fields); err != nil {
		return err
	}

	if !t.ForceSave(ctx) {
		r.logger.Warn("remote save deferred, update is persisted locally")
	}

	record, _ := t.LessonProgress(lessonID)
	r.writePlain("✓ %s at %d%% (%s)\n", record.LessonID, record.ProgressPercentage, t.State().SyncStatus)
	return nil
}

// ProgressComplete marks a lesson completed, optionally recording a quiz score.
func (r *Runner) ProgressComplete(ctx context.Context, cmd *cli.Command) error {
	lessonID := cmd.String("lesson")
	moduleID := cmd.String("module")

	var score *int
	if cmd.IsSet("score") {
		score = models.Int(cmd.Int("score"))
	}

	t, done, err := r.session(ctx, cmd)
	if err != nil {
		return err
	}
	defer done()

	if err := t.MarkLessonComplete(lessonID, moduleID, score); err != nil {
		return err
	}

	if !t.ForceSave(ctx) {
		r.logger.Warn("remote save deferred, completion is persisted locally")
	}

	stats := t.CompletionStats()
	r.writePlain("✓ %s completed", lessonID)
	if score != nil {
		r.writePlain(" (score %d)", *score)
	}
	r.writePlain("\n%d of %d lessons completed\n", stats.CompletedLessons, stats.TotalLessons)
	return nil
}

// Reflect saves a free-form reflection note for a lesson.
func (r *Runner) Reflect(ctx context.Context, cmd *cli.Command) error {
	lessonID := cmd.String("lesson")
	content := strings.TrimSpace(cmd.StringArg("content"))
	if content == "" {
		return fmt.Errorf("%w: reflection content is required", shared.ErrInvalidInput)
	}

	t, done, err := r.session(ctx, cmd)
	if err != nil {
		return err
	}
	defer done()

	if err := t.SaveReflection(lessonID, content); err != nil {
		return err
	}

	if err := t.FlushQueue(ctx); err != nil {
		r.logger.Warn("queue drain deferred, reflection is persisted locally", "err", err)
	}

	r.writePlain("✓ reflection saved for %s\n", lessonID)
	return nil
}
