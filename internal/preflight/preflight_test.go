package preflight

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"glossa/internal/config"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()

	result := CheckDirectoryAccess("Output directory", dir)
	if !result.Passed {
		t.Fatalf("expected pass for %s: %s", dir, result.Detail)
	}

	result = CheckDirectoryAccess("Output directory", filepath.Join(dir, "missing"))
	if result.Passed || !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected result for missing dir: %+v", result)
	}

	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	result = CheckDirectoryAccess("Output directory", file)
	if result.Passed || !strings.Contains(result.Detail, "not a directory") {
		t.Fatalf("unexpected result for file path: %+v", result)
	}
}

func TestCheckDiskSpace(t *testing.T) {
	result := CheckDiskSpace("Output disk space", t.TempDir())
	if result.Detail == "" || !strings.Contains(result.Detail, "free") {
		t.Fatalf("unexpected detail: %+v", result)
	}

	result = CheckDiskSpace("Output disk space", filepath.Join(t.TempDir(), "missing"))
	if result.Passed {
		t.Fatalf("expected failure for missing path: %+v", result)
	}
}

func TestCheckEngineReportsMissingCandidates(t *testing.T) {
	missing := t.TempDir()
	cfg := config.Default()
	cfg.Engine.Binary = filepath.Join(missing, "engine")
	cfg.Engine.VenvDir = filepath.Join(missing, "venv")
	cfg.Engine.Python = filepath.Join(missing, "python3")

	result := CheckEngine(&cfg)
	if result.Passed {
		t.Fatalf("expected failure: %+v", result)
	}
}

func TestCheckEngineFindsStub(t *testing.T) {
	stub := filepath.Join(t.TempDir(), "engine")
	script := "#!/bin/sh\nexit 0\n"
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	cfg := config.Default()
	cfg.Engine.Binary = stub

	result := CheckEngine(&cfg)
	if !result.Passed || !strings.Contains(result.Detail, stub) {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestRunAllCoversDirectoriesAndEngine(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	results := RunAll(&cfg)
	if len(results) != 5 {
		t.Fatalf("len(results) = %d, want 5", len(results))
	}
	names := make(map[string]bool, len(results))
	for _, r := range results {
		names[r.Name] = true
	}
	for _, want := range []string{"Data directory", "Log directory", "Output directory", "Output disk space", "Translation engine"} {
		if !names[want] {
			t.Fatalf("missing check %q in %+v", want, results)
		}
	}
}

func TestEngineCandidatesListsAll(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.Binary = "/nonexistent/engine"
	cfg.Engine.VenvDir = "/nonexistent/venv"

	candidates := EngineCandidates(&cfg)
	if len(candidates) != 3 {
		t.Fatalf("len = %d, want 3", len(candidates))
	}
	if candidates[0].Name != "packaged binary" || candidates[0].Passed {
		t.Fatalf("unexpected first candidate: %+v", candidates[0])
	}
}
