package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"glossa/internal/config"
	"glossa/internal/daemon"
	"glossa/internal/ipc"
	"glossa/internal/jobs"
	"glossa/internal/logging"
	"glossa/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	daemon     *daemon.Daemon
	server     *ipc.Server
	socketPath string
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	d, err := daemon.New(cfg, logging.NewNop(), logging.NewStreamHub(256))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}

	socketPath := filepath.Join(base, "cli.sock")
	srv, err := ipc.NewServer(ctx, socketPath, d, logging.NewNop())
	if err != nil {
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	env := &cliTestEnv{
		cfg:        cfg,
		daemon:     d,
		server:     srv,
		socketPath: socketPath,
		configPath: configPath,
		baseDir:    base,
	}

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Stop()
		_ = d.Close()
	})

	return env
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\nlog_dir = %q\noutput_dir = %q\napi_bind = \"\"\n",
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.Paths.OutputDir,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func seedJob(t *testing.T, env *cliTestEnv, id string, status jobs.Status) {
	t.Helper()
	store, err := jobs.Open(env.cfg)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	defer store.Close()
	testsupport.SeedJob(t, store, id, status)
}

func TestJobsListEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"jobs", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("jobs list: %v", err)
	}
	if !strings.Contains(out, "No jobs recorded") {
		t.Fatalf("unexpected list output: %q", out)
	}
}

func TestJobsListAndShow(t *testing.T) {
	env := setupCLITestEnv(t)
	seedJob(t, env, "job-cli-1", jobs.StatusSubmitted)

	out, _, err := runCLI(t, []string{"jobs", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("jobs list: %v", err)
	}
	if !strings.Contains(out, "job-cli-1") || !strings.Contains(out, "job-cli-1.pdf") {
		t.Fatalf("jobs list missing seeded job: %q", out)
	}

	out, _, err = runCLI(t, []string{"jobs", "show", "job-cli-1"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("jobs show: %v", err)
	}
	for _, want := range []string{"job-cli-1", "job-cli-1.pdf", "google", "submitted"} {
		if !strings.Contains(out, want) {
			t.Fatalf("jobs show output missing %q: %q", want, out)
		}
	}

	out, _, err = runCLI(t, []string{"jobs", "show", "job-cli-1", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("jobs show --json: %v", err)
	}
	if !strings.Contains(out, `"id": "job-cli-1"`) {
		t.Fatalf("unexpected JSON output: %q", out)
	}

	_, _, err = runCLI(t, []string{"jobs", "show", "missing"}, env.socketPath, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestJobsListStatusFilter(t *testing.T) {
	env := setupCLITestEnv(t)
	seedJob(t, env, "job-active", jobs.StatusSubmitted)
	seedJob(t, env, "job-finished", jobs.StatusCompleted)

	out, _, err := runCLI(t, []string{"jobs", "list", "--status", "completed"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("jobs list --status: %v", err)
	}
	if !strings.Contains(out, "job-finished") || strings.Contains(out, "job-active") {
		t.Fatalf("filter not applied: %q", out)
	}

	out, _, err = runCLI(t, []string{"jobs", "list", "--status", "FAILED"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("jobs list --status FAILED: %v", err)
	}
	if !strings.Contains(out, "No jobs recorded") {
		t.Fatalf("expected empty filtered list: %q", out)
	}

	_, _, err = runCLI(t, []string{"jobs", "list", "--status", "paused"}, env.socketPath, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "unknown status") {
		t.Fatalf("expected unknown status error, got %v", err)
	}
}

func TestJobsClear(t *testing.T) {
	env := setupCLITestEnv(t)
	seedJob(t, env, "job-done", jobs.StatusCompleted)

	out, _, err := runCLI(t, []string{"jobs", "clear"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("jobs clear: %v", err)
	}
	if !strings.Contains(out, "Cleared 1 finished jobs") {
		t.Fatalf("unexpected clear output: %q", out)
	}
}

func TestTranslateRejectsMissingFile(t *testing.T) {
	env := setupCLITestEnv(t)

	missing := filepath.Join(env.baseDir, "missing.pdf")
	_, _, err := runCLI(t, []string{"translate", missing}, env.socketPath, env.configPath)
	if err == nil {
		t.Fatal("expected error for missing source file")
	}
	if !strings.Contains(err.Error(), "source") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStatusReportsRunningDaemon(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "Running") {
		t.Fatalf("status output missing daemon line: %q", out)
	}
	if !strings.Contains(out, "Engine") || !strings.Contains(out, "Checks") {
		t.Fatalf("status output missing sections: %q", out)
	}
}

func TestLogsEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"logs", "--lines", "10"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.TrimSpace(out) != "" {
		t.Fatalf("expected no buffered events, got %q", out)
	}
}

func TestLogsFallsBackToLogFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	logPath := filepath.Join(cfg.Paths.LogDir, "glossa.log")
	if err := os.WriteFile(logPath, []byte("first line\nsecond line\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	socket := filepath.Join(base, "absent.sock")
	out, stderr, err := runCLI(t, []string{"logs", "--lines", "1"}, socket, configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if !strings.Contains(stderr, "Daemon not running") {
		t.Fatalf("missing fallback notice: %q", stderr)
	}
	if strings.Contains(out, "first line") || !strings.Contains(out, "second line") {
		t.Fatalf("unexpected tail output: %q", out)
	}
}

func TestConfigShowPrintsEffectiveConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	out, _, err := runCLI(t, []string{"config", "show"}, filepath.Join(base, "unused.sock"), configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "[paths]") || !strings.Contains(out, cfg.Paths.DataDir) {
		t.Fatalf("unexpected config output: %q", out)
	}
}

func TestConfigInit(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "config.toml")

	cmd := newRootCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config not written: %v", err)
	}

	cmd = newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected overwrite refusal, got %v", err)
	}
}
