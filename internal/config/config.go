package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	LogDir    string `toml:"log_dir"`
	OutputDir string `toml:"output_dir"`
	APIBind   string `toml:"api_bind"`
}

// Engine contains configuration for the translation worker process.
type Engine struct {
	// Binary is an explicit path to a packaged engine executable. When set
	// it is the first launch candidate.
	Binary string `toml:"binary"`
	// VenvDir points at a Python virtual environment whose interpreter can
	// run the engine module.
	VenvDir string `toml:"venv_dir"`
	// Python overrides the system interpreter used as the last candidate.
	Python string `toml:"python"`
	// Module is the engine module name passed to the interpreter.
	Module string `toml:"module"`

	ReadyTimeoutSeconds  int `toml:"ready_timeout_seconds"`
	RestartWindowSeconds int `toml:"restart_window_seconds"`
	RestartWindowMax     int `toml:"restart_window_max"`

	DefaultService string `toml:"default_service"`
	Threads        int    `toml:"threads"`
	LangIn         string `toml:"lang_in"`
	LangOut        string `toml:"lang_out"`
}

// Result contains configuration for result polling after job completion.
type Result struct {
	Attempts int `toml:"attempts"`
	DelayMS  int `toml:"delay_ms"`
}

// Notifications contains configuration for completion notifications.
type Notifications struct {
	// NtfyTopic is a full ntfy topic URL. Notifications are disabled when
	// it is empty.
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for glossa.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Engine        Engine        `toml:"engine"`
	Result        Result        `toml:"result"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/glossa/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/glossa/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("glossa.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
