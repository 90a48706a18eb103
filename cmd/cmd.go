// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// sessionFlags returns the flags every session-scoped command shares, plus
// any command-specific extras.
func sessionFlags(extra ...cli.Flag) []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		},
		&cli.StringFlag{
			Name:     "user",
			Aliases:  []string{"u"},
			Usage:    "User ID the session belongs to",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "course",
			Usage:    "Course ID to track",
			Required: true,
		},
		&cli.BoolFlag{
			Name:  "offline",
			Usage: "Work against the local snapshot without contacting the remote",
		},
	}
	return append(flags, extra...)
}

// setupCommand initializes configuration and the storage backend.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create configuration and initialize local storage",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// progressCommand records lesson progress.
func progressCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "progress",
		Usage: "Record lesson progress",
		Commands: []*cli.Command{
			{
				Name:  "update",
				Usage: "Merge a partial progress update onto a lesson",
				Flags: sessionFlags(
					&cli.StringFlag{
						Name:     "lesson",
						Usage:    "Lesson ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "module",
						Usage: "Module ID the lesson belongs to",
					},
					&cli.IntFlag{
						Name:  "pct",
						Usage: "Progress percentage (0-100)",
					},
					&cli.IntFlag{
						Name:  "time-spent",
						Usage: "Cumulative seconds spent in the lesson",
					},
				),
				Action: r.ProgressUpdate,
			},
			{
				Name:  "complete",
				Usage: "Mark a lesson completed, optionally with a quiz score",
				Flags: sessionFlags(
					&cli.StringFlag{
						Name:     "lesson",
						Usage:    "Lesson ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "module",
						Usage: "Module ID the lesson belongs to",
					},
					&cli.IntFlag{
						Name:  "score",
						Usage: "Quiz score to record alongside completion",
					},
				),
				Action: r.ProgressComplete,
			},
		},
	}
}

// reflectCommand saves a free-form lesson reflection.
func reflectCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "reflect",
		Usage: "Save a reflection note for a lesson",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "content",
			},
		},
		Flags: sessionFlags(
			&cli.StringFlag{
				Name:     "lesson",
				Usage:    "Lesson ID",
				Required: true,
			},
		),
		Action: r.Reflect,
	}
}

// statusCommand shows the current session state.
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show sync status and course progress",
		Flags: sessionFlags(
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format (plain or json)",
				Value:   "plain",
			},
		),
		Action: r.Status,
	}
}

// reportCommand exports a progress report.
func reportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Export a progress report",
		Flags: sessionFlags(
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Report format (json, csv, or markdown)",
				Value:   "markdown",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path",
			},
		),
		Action: r.Report,
	}
}

// queueCommand inspects and drains the offline mutation queue.
func queueCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "queue",
		Usage: "Inspect and drain the offline mutation queue",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List queued mutations, newest first within priority",
				Flags: sessionFlags(
					&cli.BoolFlag{
						Name:  "failed",
						Usage: "List permanently failed mutations instead",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				),
				Action: r.QueueList,
			},
			{
				Name:   "flush",
				Usage:  "Force-save pending edits and drain the queue now",
				Flags:  sessionFlags(),
				Action: r.QueueFlush,
			},
		},
	}
}

// verifyCommand compares the local snapshot against the remote store.
func verifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Check the local snapshot against the remote store for drift",
		Flags: sessionFlags(
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		),
		Action: r.Verify,
	}
}

// watchCommand launches the live status TUI.
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "watch",
		Aliases: []string{"ui"},
		Usage:   "Launch the live sync status TUI",
		Flags:   sessionFlags(),
		Action:  r.Watch,
	}
}

// serveCommand runs the development sync server.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the development sync server (HTTP API + websocket hub)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Serve,
	}
}
