package main

import (
	"context"
	"fmt"

	"github.com/myatdennis/coursesync/internal/models"
	"github.com/myatdennis/coursesync/internal/shared"
	"github.com/myatdennis/coursesync/internal/store"
	"github.com/urfave/cli/v3"
)

// QueueList prints the offline mutation queue straight from local storage,
// without opening a session or touching the remote. With --failed it lists
// the terminal-failure log instead.
func (r *Runner) QueueList(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd.String("config"))
	userID := cmd.String("user")

	adapter, failures, release, err := r.openStores(config)
	if err != nil {
		return err
	}
	defer release()

	if cmd.Bool("failed") {
		if failures == nil {
			return fmt.Errorf("%w: the failure log requires the sqlite storage backend", shared.ErrInvalidInput)
		}
		failed, err := failures.List(userID)
		if err != nil {
			return fmt.Errorf("failed to list failure log: %w", err)
		}
		if cmd.Bool("json") {
			return r.writeJSON(failed, true)
		}
		if len(failed) == 0 {
			r.writePlain("no permanently failed mutations\n")
			return nil
		}
		for _, f := range failed {
			r.writePlain("%s  %s  %s/%s  %d attempts  failed %s\n",
				f.Mutation.ID, f.Mutation.Action, f.Mutation.CourseID, f.Mutation.LessonID,
				f.Mutation.Attempts, f.FailedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	}

	entries, _ := store.ReadJSON[[]models.QueuedMutation](adapter, store.QueueKey(userID))
	if cmd.Bool("json") {
		return r.writeJSON(entries, true)
	}
	if len(entries) == 0 {
		r.writePlain("queue is empty\n")
		return nil
	}
	for _, m := range entries {
		r.writePlain("%s  %-6s  %s  %s/%s  enqueued %s  attempts %d\n",
			m.ID, m.Priority, m.Action, m.CourseID, m.LessonID,
			m.EnqueuedAt.Format("2006-01-02 15:04:05"), m.Attempts)
	}
	return nil
}

// QueueFlush opens a session, force-saves pending edits, and drains the
// queue immediately rather than waiting for the scheduler or settle delay.
func (r *Runner) QueueFlush(ctx context.Context, cmd *cli.Command) error {
	t, done, err := r.session(ctx, cmd)
	if err != nil {
		return err
	}
	defer done()

	before := len(t.QueueSnapshot())

	if !t.ForceSave(ctx) {
		r.logger.Warn("force save did not complete cleanly")
	}
	if err := t.FlushQueue(ctx); err != nil {
		return fmt.Errorf("failed to drain queue: %w", err)
	}

	remaining := len(t.QueueSnapshot())
	r.writePlain("✓ drained %d of %d queued mutations (%d remaining)\n", before-remaining, before, remaining)
	return nil
}
