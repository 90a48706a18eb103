package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/myatdennis/coursesync/internal/realtime"
	"github.com/myatdennis/coursesync/internal/repositories"
	"github.com/myatdennis/coursesync/internal/services"
	"github.com/myatdennis/coursesync/internal/shared"
	"github.com/myatdennis/coursesync/internal/store"
	"github.com/myatdennis/coursesync/internal/tracker"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	clock      shared.Clock
	remote     services.RemoteStore
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Config and Remote are test injection points; when nil the runner loads
// configuration from the --config flag and dials the configured remote.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Clock      shared.Clock
	Remote     services.RemoteStore
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Clock == nil {
		opts.Clock = shared.SystemClock()
	}

	return &Runner{
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		clock:      opts.Clock,
		remote:     opts.Remote,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, progressCommand, reflectCommand, statusCommand, reportCommand,
		queueCommand, verifyCommand, watchCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig resolves the effective configuration: an injected config wins,
// then the file at path, then the embedded defaults.
func (r *Runner) loadConfig(path string) *shared.Config {
	if r.config != nil {
		return r.config
	}
	if _, err := os.Stat(path); err == nil {
		if config, err := shared.LoadConfig(path); err == nil {
			return config
		}
		r.logger.Warn("failed to load config, using defaults", "path", path)
	}
	return shared.DefaultConfig()
}

// openStores opens the configured persistence backend. The sqlite backend
// additionally provides the terminal-failure log; the file backend has no
// database to keep one in.
func (r *Runner) openStores(config *shared.Config) (store.Adapter, *repositories.FailureRepository, func(), error) {
	switch config.Storage.Backend {
	case "sqlite":
		db, err := shared.NewDatabase(config.Storage.Path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		shared.ConfigureDatabase(db, config.Storage.MaxOpenConns, config.Storage.MaxIdleConns)
		if err := shared.RunMigrations(db); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		adapter := repositories.NewKVRepository(db, r.logger)
		return adapter, repositories.NewFailureRepository(db), func() { db.Close() }, nil
	default:
		adapter, err := store.NewFileAdapter(config.Storage.Dir, r.logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to open storage directory: %w", err)
		}
		return adapter, nil, func() {}, nil
	}
}

// newRemote builds the remote progress store client. Client-credential
// settings turn on token-refreshing transport; otherwise a plain client with
// the configured timeout is used.
func (r *Runner) newRemote(ctx context.Context, config *shared.Config) services.RemoteStore {
	if r.remote != nil {
		return r.remote
	}
	client := r.httpClient
	if config.Remote.ClientID != "" && config.Remote.ClientSecret != "" {
		client = services.NewTokenClient(ctx, config.Remote.TokenURL, config.Remote.ClientID, config.Remote.ClientSecret)
	} else if config.Remote.TimeoutSeconds > 0 {
		client = &http.Client{Timeout: time.Duration(config.Remote.TimeoutSeconds) * time.Second}
	}
	return services.NewHTTPRemote(config.Remote.BaseURL, client)
}

// session builds and loads a tracker for the user/course named on the
// command line. The returned teardown flushes pending saves and releases the
// storage backend.
func (r *Runner) session(ctx context.Context, cmd *cli.Command) (*tracker.Tracker, func(), error) {
	config := r.loadConfig(cmd.String("config"))
	userID := cmd.String("user")
	courseID := cmd.String("course")
	offline := cmd.Bool("offline")

	adapter, failures, release, err := r.openStores(config)
	if err != nil {
		return nil, nil, err
	}

	var channel tracker.EventChannel
	var rt *realtime.Channel
	if !offline && config.Realtime.URL != "" {
		rt = realtime.New(realtime.Options{
			UserID: userID,
			Dial:   realtime.WebsocketDialer(config.Realtime.URL, userID),
			Logger: r.logger,
		})
		if err := rt.Connect(ctx); err != nil {
			r.logger.Warn("realtime channel unavailable, continuing without live events", "err", err)
			rt = nil
		} else {
			channel = rt
		}
	}

	var sink tracker.FailureSink
	if failures != nil {
		sink = failures
	}

	t, err := tracker.New(tracker.Options{
		UserID:   userID,
		CourseID: courseID,
		Adapter:  adapter,
		Remote:   r.newRemote(ctx, config),
		Channel:  channel,
		Failures: sink,
		Clock:    r.clock,
		Logger:   r.logger,
		Sync:     config.Sync,
	})
	if err != nil {
		release()
		return nil, nil, err
	}

	if offline {
		t.SetOnline(false)
	}

	if err := t.Load(ctx); err != nil {
		t.Close()
		if rt != nil {
			rt.Close()
		}
		release()
		return nil, nil, fmt.Errorf("failed to load session: %w", err)
	}

	teardown := func() {
		t.Close()
		if rt != nil {
			rt.Close()
		}
		release()
	}
	return t, teardown, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
