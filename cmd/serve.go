package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/myatdennis/coursesync/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the development sync server until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd.String("config"))

	srv := server.NewSyncServer(config.Server, r.logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	r.writePlain("sync server listening on %s (ctrl+c to stop)\n", srv.Addr())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
