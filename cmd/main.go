package main

import (
	"context"
	"errors"
	"os"

	"github.com/myatdennis/coursesync/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	runner := NewRunner(RunnerOpts{
		Logger: logger,
	})

	app := &cli.Command{
		Name:     "coursesync",
		Usage:    "Track course progress locally and sync it to the LMS",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrOffline) {
			logger.Warn("offline, changes are persisted locally")
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}
