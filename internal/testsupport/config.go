package testsupport

import (
	"path/filepath"
	"testing"

	"glossa/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The HTTP mirror is disabled so tests never bind ports they do not need.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.OutputDir = filepath.Join(base, "out")
	cfgVal.Paths.APIBind = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithAPIBind enables the HTTP mirror on the given address.
func WithAPIBind(addr string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIBind = addr
	}
}

// WithEngineBinary points the engine launcher at the given executable.
func WithEngineBinary(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Engine.Binary = path
		b.cfg.Engine.VenvDir = ""
	}
}

// WithNtfyTopic enables notifications against the given topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
