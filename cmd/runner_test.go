package main

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/myatdennis/coursesync/internal/shared"
	tu "github.com/myatdennis/coursesync/internal/testing"
	"github.com/urfave/cli/v3"
)

// testConfig returns a config rooted in a temp directory with timers far
// enough out that nothing fires during a test.
func testConfig(t *testing.T) *shared.Config {
	t.Helper()
	config := shared.DefaultConfig()
	config.Storage.Backend = "file"
	config.Storage.Dir = filepath.Join(t.TempDir(), "state")
	config.Realtime.URL = ""
	config.Sync.AutoSaveIntervalSeconds = 3600
	config.Sync.RetryDelaySeconds = 3600
	config.Sync.SettleDelaySeconds = 3600
	config.Sync.DrainRateLimit = 10000
	return config
}

// run executes a CLI invocation against a fresh app built from the runner.
func run(t *testing.T, runner *Runner, args ...string) error {
	t.Helper()
	app := &cli.Command{
		Name:     "coursesync",
		Commands: runner.register(),
	}
	return app.Run(context.Background(), append([]string{"coursesync"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			remote := &tu.MockRemote{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Remote:     remote,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.remote != remote {
				t.Error("expected remote to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})

		t.Run("with nil clock uses system clock", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.clock == nil {
				t.Error("expected default clock to be set")
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		if len(commands) != 9 {
			t.Errorf("expected 9 top-level commands, got %d", len(commands))
		}

		names := make(map[string]bool)
		for _, cmd := range commands {
			names[cmd.Name] = true
		}
		for _, want := range []string{"setup", "progress", "reflect", "status", "report", "queue", "verify", "watch", "serve"} {
			if !names[want] {
				t.Errorf("expected command %q to be registered", want)
			}
		}
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := runner.writePlain("hello %s", "world"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if output.String() != "hello world" {
			t.Errorf("expected 'hello world', got %q", output.String())
		}
	})
}

func TestSetupCommand(t *testing.T) {
	tempDir := t.TempDir()
	originalDir := tu.MustGetwd(t)
	tu.MustChdir(t, tempDir)
	defer tu.MustChdir(t, originalDir)

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{Output: output})

	configPath := filepath.Join(tempDir, "config.toml")
	if err := run(t, runner, "setup", "--config", configPath); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	tu.AssertFileExists(t, configPath)
	if _, err := os.Stat(".coursesync"); err != nil {
		t.Errorf("expected storage directory to be created: %v", err)
	}
	if !strings.Contains(output.String(), "coursesync is ready") {
		t.Errorf("expected success message, got %q", output.String())
	}
}

func TestProgressCommands(t *testing.T) {
	t.Run("update records and reports the new percentage", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{
			Config: testConfig(t),
			Output: output,
			Remote: &tu.MockRemote{},
		})

		err := run(t, runner, "progress", "update",
			"--user", "user-1", "--course", "course-1", "--lesson", "lesson-1", "--pct", "40")
		if err != nil {
			t.Fatalf("progress update failed: %v", err)
		}
		if !strings.Contains(output.String(), "lesson-1 at 40%") {
			t.Errorf("expected progress confirmation, got %q", output.String())
		}
	})

	t.Run("update without fields is rejected", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{
			Config: testConfig(t),
			Output: &bytes.Buffer{},
			Remote: &tu.MockRemote{},
		})

		err := run(t, runner, "progress", "update",
			"--user", "user-1", "--course", "course-1", "--lesson", "lesson-1")
		if err == nil {
			t.Fatal("expected error for empty update")
		}
	})

	t.Run("complete marks the lesson and reports stats", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{
			Config: testConfig(t),
			Output: output,
			Remote: &tu.MockRemote{},
		})

		err := run(t, runner, "progress", "complete",
			"--user", "user-1", "--course", "course-1", "--lesson", "lesson-1", "--score", "92")
		if err != nil {
			t.Fatalf("progress complete failed: %v", err)
		}
		if !strings.Contains(output.String(), "lesson-1 completed (score 92)") {
			t.Errorf("expected completion confirmation, got %q", output.String())
		}
		if !strings.Contains(output.String(), "1 of 1 lessons completed") {
			t.Errorf("expected stats line, got %q", output.String())
		}
	})

	t.Run("offline update persists locally", func(t *testing.T) {
		config := testConfig(t)
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{
			Config: config,
			Output: output,
			Remote: &tu.MockRemote{},
		})

		err := run(t, runner, "progress", "update", "--offline",
			"--user", "user-1", "--course", "course-1", "--lesson", "lesson-1", "--pct", "25")
		if err != nil {
			t.Fatalf("offline update failed: %v", err)
		}
		if !strings.Contains(output.String(), "lesson-1 at 25%") {
			t.Errorf("expected progress confirmation, got %q", output.String())
		}

		// The snapshot and the queued mutation survive in local storage.
		queueOut := &bytes.Buffer{}
		lister := NewRunner(RunnerOpts{Config: config, Output: queueOut, Remote: &tu.MockRemote{}})
		if err := run(t, lister, "queue", "list", "--user", "user-1", "--course", "course-1"); err != nil {
			t.Fatalf("queue list failed: %v", err)
		}
		if !strings.Contains(queueOut.String(), "progress-update") {
			t.Errorf("expected queued mutation, got %q", queueOut.String())
		}
	})
}

func TestReflectCommand(t *testing.T) {
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config: testConfig(t),
		Output: output,
		Remote: &tu.MockRemote{},
	})

	err := run(t, runner, "reflect",
		"--user", "user-1", "--course", "course-1", "--lesson", "lesson-1",
		"This module changed how I run retros.")
	if err != nil {
		t.Fatalf("reflect failed: %v", err)
	}
	if !strings.Contains(output.String(), "reflection saved for lesson-1") {
		t.Errorf("expected reflection confirmation, got %q", output.String())
	}
}

func TestStatusCommand(t *testing.T) {
	config := testConfig(t)
	remote := &tu.MockRemote{}

	writer := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}, Remote: remote})
	err := run(t, writer, "progress", "update", "--offline",
		"--user", "user-1", "--course", "course-1", "--lesson", "lesson-1", "--pct", "60")
	if err != nil {
		t.Fatalf("progress update failed: %v", err)
	}

	t.Run("plain", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: config, Output: output, Remote: remote})

		err := run(t, runner, "status", "--offline", "--user", "user-1", "--course", "course-1")
		if err != nil {
			t.Fatalf("status failed: %v", err)
		}
		if !strings.Contains(output.String(), "course course-1: 60% complete") {
			t.Errorf("expected progress summary, got %q", output.String())
		}
		if !strings.Contains(output.String(), "offline") {
			t.Errorf("expected offline marker, got %q", output.String())
		}
	})

	t.Run("json", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: config, Output: output, Remote: remote})

		err := run(t, runner, "status", "--offline", "--format", "json",
			"--user", "user-1", "--course", "course-1")
		if err != nil {
			t.Fatalf("status failed: %v", err)
		}
		if !strings.Contains(output.String(), `"course_progress": 60`) {
			t.Errorf("expected JSON progress, got %q", output.String())
		}
		if !strings.Contains(output.String(), `"sync_status"`) {
			t.Errorf("expected JSON state, got %q", output.String())
		}
	})
}

func TestReportCommand(t *testing.T) {
	tempDir := t.TempDir()
	originalDir := tu.MustGetwd(t)
	tu.MustChdir(t, tempDir)
	defer tu.MustChdir(t, originalDir)

	config := testConfig(t)
	remote := &tu.MockRemote{}

	writer := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}, Remote: remote})
	err := run(t, writer, "progress", "complete", "--offline",
		"--user", "user-1", "--course", "course-1", "--lesson", "lesson-1")
	if err != nil {
		t.Fatalf("progress complete failed: %v", err)
	}

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{Config: config, Output: output, Remote: remote})
	err = run(t, runner, "report", "--offline", "--format", "markdown",
		"--user", "user-1", "--course", "course-1")
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}

	tu.AssertFileExists(t, "course-1_progress.md")
	content := tu.MustReadFile(t, "course-1_progress.md")
	if !strings.Contains(content, "# Course Progress: course-1") {
		t.Errorf("report missing title, got %q", content)
	}
	if !strings.Contains(content, "lesson-1") {
		t.Errorf("report missing lesson row, got %q", content)
	}
}

func TestQueueCommands(t *testing.T) {
	t.Run("list reports an empty queue", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{
			Config: testConfig(t),
			Output: output,
			Remote: &tu.MockRemote{},
		})

		if err := run(t, runner, "queue", "list", "--user", "user-1", "--course", "course-1"); err != nil {
			t.Fatalf("queue list failed: %v", err)
		}
		if !strings.Contains(output.String(), "queue is empty") {
			t.Errorf("expected empty queue message, got %q", output.String())
		}
	})

	t.Run("failed listing requires sqlite backend", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{
			Config: testConfig(t),
			Output: &bytes.Buffer{},
			Remote: &tu.MockRemote{},
		})

		err := run(t, runner, "queue", "list", "--failed", "--user", "user-1", "--course", "course-1")
		if err == nil {
			t.Fatal("expected error for failure log on file backend")
		}
	})

	t.Run("flush drains offline work", func(t *testing.T) {
		config := testConfig(t)
		remote := &tu.MockRemote{}

		writer := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}, Remote: remote})
		err := run(t, writer, "progress", "update", "--offline",
			"--user", "user-1", "--course", "course-1", "--lesson", "lesson-1", "--pct", "80")
		if err != nil {
			t.Fatalf("offline update failed: %v", err)
		}

		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: config, Output: output, Remote: remote})
		if err := run(t, runner, "queue", "flush", "--user", "user-1", "--course", "course-1"); err != nil {
			t.Fatalf("queue flush failed: %v", err)
		}
		if !strings.Contains(output.String(), "(0 remaining)") {
			t.Errorf("expected queue to drain, got %q", output.String())
		}
	})
}

func TestVerifyCommand(t *testing.T) {
	t.Run("clean when both sides are empty", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{
			Config: testConfig(t),
			Output: output,
			Remote: &tu.MockRemote{},
		})

		if err := run(t, runner, "verify", "--user", "user-1", "--course", "course-1"); err != nil {
			t.Fatalf("verify failed: %v", err)
		}
		if !strings.Contains(output.String(), "matches the remote") {
			t.Errorf("expected clean verification, got %q", output.String())
		}
	})

	t.Run("reports local-only records after offline work", func(t *testing.T) {
		config := testConfig(t)
		remote := &tu.MockRemote{}

		writer := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}, Remote: remote})
		err := run(t, writer, "progress", "update", "--offline",
			"--user", "user-1", "--course", "course-1", "--lesson", "lesson-1", "--pct", "30")
		if err != nil {
			t.Fatalf("offline update failed: %v", err)
		}

		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: config, Output: output, Remote: remote})
		if err := run(t, runner, "verify", "--user", "user-1", "--course", "course-1"); err != nil {
			t.Fatalf("verify failed: %v", err)
		}
		if !strings.Contains(output.String(), "local only:   lesson-1") {
			t.Errorf("expected local-only drift, got %q", output.String())
		}
		if !strings.Contains(output.String(), "still queued for delivery") {
			t.Errorf("expected queue depth note, got %q", output.String())
		}
	})
}
