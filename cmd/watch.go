package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/myatdennis/coursesync/internal/ui"
	"github.com/urfave/cli/v3"
)

// Watch launches the live sync status TUI over a loaded session.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	t, done, err := r.session(ctx, cmd)
	if err != nil {
		return err
	}
	defer done()

	model := ui.NewModel(ctx, t, cmd.String("course"))

	p := tea.NewProgram(model)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}

	return nil
}
