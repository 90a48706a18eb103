package main

import (
	"context"
	"fmt"

	"github.com/myatdennis/coursesync/internal/formatter"
	"github.com/myatdennis/coursesync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Status prints the session state and course progress.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	t, done, err := r.session(ctx, cmd)
	if err != nil {
		return err
	}
	defer done()

	state := t.State()
	stats := t.CompletionStats()

	if cmd.String("format") == "json" {
		return r.writeJSON(map[string]any{
			"state":           state,
			"course_progress": t.CourseProgress(),
			"stats":           stats,
		}, true)
	}

	connectivity := "online"
	if !state.IsOnline {
		connectivity = "offline"
	}

	r.writePlain("course %s: %d%% complete (%d/%d lessons)\n",
		cmd.String("course"), t.CourseProgress(), stats.CompletedLessons, stats.TotalLessons)
	r.writePlain("%s, %s\n", connectivity, state.SyncStatus)
	r.writePlain("pending: %d  queued: %d\n", state.PendingChanges, state.QueueSize)
	if state.LastSaved != nil {
		r.writePlain("last saved: %s\n", state.LastSaved.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

// Report exports a progress report in the requested format.
func (r *Runner) Report(ctx context.Context, cmd *cli.Command) error {
	format := cmd.String("format")
	outputPath := cmd.String("output")

	t, done, err := r.session(ctx, cmd)
	if err != nil {
		return err
	}
	defer done()

	report := formatter.Report{
		UserID:         cmd.String("user"),
		CourseID:       cmd.String("course"),
		GeneratedAt:    r.clock.Now(),
		CourseProgress: t.CourseProgress(),
		Stats:          t.CompletionStats(),
		Lessons:        t.Lessons(),
		Reflections:    t.Reflections(),
	}

	path, err := formatter.WriteReport(report, format, outputPath)
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	r.writePlain("✓ report written to %s\n", path)
	return nil
}

// Verify compares the local snapshot against the remote store and reports
// drift without modifying either side.
func (r *Runner) Verify(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd.String("config"))
	userID := cmd.String("user")
	courseID := cmd.String("course")

	adapter, _, release, err := r.openStores(config)
	if err != nil {
		return err
	}
	defer release()

	engine := tasks.NewVerifyEngine(adapter, r.newRemote(ctx, config))

	progress := make(chan tasks.ProgressUpdate, 8)
	go func() {
		for update := range progress {
			r.logger.Debug(update.Message, "phase", update.Phase.String(), "step", update.Step, "total", update.Total)
		}
	}()

	result, err := engine.Verify(ctx, progress, userID, courseID)
	close(progress)
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}

	if result.Clean() {
		r.writePlain("✓ local snapshot matches the remote (%d lessons in sync)\n", len(result.InSync))
		return nil
	}

	r.writePlain("in sync: %d\n", len(result.InSync))
	for _, drift := range result.LocalAhead {
		r.writePlain("local ahead:  %s (local %d%% @ %s, remote %d%%)\n",
			drift.Local.LessonID, drift.Local.ProgressPercentage,
			drift.Local.LastAccessedAt.Format("2006-01-02 15:04:05"),
			drift.Remote.ProgressPercentage)
	}
	for _, drift := range result.RemoteAhead {
		r.writePlain("remote ahead: %s (remote %d%% @ %s, local %d%%)\n",
			drift.Remote.LessonID, drift.Remote.ProgressPercentage,
			drift.Remote.LastAccessedAt.Format("2006-01-02 15:04:05"),
			drift.Local.ProgressPercentage)
	}
	for _, record := range result.LocalOnly {
		r.writePlain("local only:   %s (%d%%)\n", record.LessonID, record.ProgressPercentage)
	}
	for _, record := range result.RemoteOnly {
		r.writePlain("remote only:  %s (%d%%)\n", record.LessonID, record.ProgressPercentage)
	}
	if result.QueueDepth > 0 {
		r.writePlain("%d mutations still queued for delivery\n", result.QueueDepth)
	}

	if result.QueueDepth > 0 || len(result.LocalAhead) > 0 {
		r.writePlainln("Run 'coursesync queue flush' to push local changes.")
	}
	return nil
}
