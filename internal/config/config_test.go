package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, _, exists, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file to be reported as absent")
	}
	if cfg.Engine.DefaultService != "google" {
		t.Fatalf("expected default service google, got %q", cfg.Engine.DefaultService)
	}
	if cfg.Engine.ReadyTimeoutSeconds != 30 {
		t.Fatalf("expected 30s ready timeout, got %d", cfg.Engine.ReadyTimeoutSeconds)
	}
	if cfg.Result.Attempts != 10 || cfg.Result.DelayMS != 500 {
		t.Fatalf("unexpected result polling defaults: %+v", cfg.Result)
	}
	if !filepath.IsAbs(cfg.Paths.DataDir) {
		t.Fatalf("expected expanded data dir, got %q", cfg.Paths.DataDir)
	}
}

func TestLoadAppliesFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "glossa.toml")
	content := strings.Join([]string{
		"[engine]",
		`default_service = "bing"`,
		"threads = 8",
		`lang_out = "JA"`,
		"",
		"[result]",
		"attempts = 3",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected resolved path %q, got %q (exists=%v)", path, resolved, exists)
	}
	if cfg.Engine.DefaultService != "bing" {
		t.Fatalf("expected bing, got %q", cfg.Engine.DefaultService)
	}
	if cfg.Engine.Threads != 8 {
		t.Fatalf("expected 8 threads, got %d", cfg.Engine.Threads)
	}
	if cfg.Engine.LangOut != "ja" {
		t.Fatalf("expected canonical language tag ja, got %q", cfg.Engine.LangOut)
	}
	if cfg.Result.Attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", cfg.Result.Attempts)
	}
}

func TestLoadRejectsUnsupportedService(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "glossa.toml")
	if err := os.WriteFile(path, []byte("[engine]\ndefault_service = \"french\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := Load(path); err == nil {
		t.Fatal("expected error for unsupported default service")
	}
}

func TestLoadRejectsBadLanguageTag(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "glossa.toml")
	if err := os.WriteFile(path, []byte("[engine]\nlang_in = \"not a tag\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed language tag")
	}
}

func TestServiceSupported(t *testing.T) {
	cases := []struct {
		service string
		want    bool
	}{
		{"google", true},
		{"bing", true},
		{"french", false},
		{"", false},
		{"Google", false},
	}
	for _, tc := range cases {
		if got := ServiceSupported(tc.service); got != tc.want {
			t.Errorf("ServiceSupported(%q) = %v, want %v", tc.service, got, tc.want)
		}
	}
}

func TestExpandPathHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	got, err := ExpandPath("~/glossa-test")
	if err != nil {
		t.Fatalf("ExpandPath returned error: %v", err)
	}
	if got != filepath.Join(home, "glossa-test") {
		t.Fatalf("expected home expansion, got %q", got)
	}
}
