package config

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeEngine(); err != nil {
		return err
	}
	c.normalizeResult()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeoutSeconds
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeEngine() error {
	var err error
	if binary := strings.TrimSpace(c.Engine.Binary); binary != "" {
		if c.Engine.Binary, err = expandPath(binary); err != nil {
			return fmt.Errorf("engine.binary: %w", err)
		}
	} else {
		c.Engine.Binary = ""
	}
	if venv := strings.TrimSpace(c.Engine.VenvDir); venv != "" {
		if c.Engine.VenvDir, err = expandPath(venv); err != nil {
			return fmt.Errorf("engine.venv_dir: %w", err)
		}
	} else {
		c.Engine.VenvDir = ""
	}
	c.Engine.Python = strings.TrimSpace(c.Engine.Python)
	c.Engine.Module = strings.TrimSpace(c.Engine.Module)
	if c.Engine.Module == "" {
		c.Engine.Module = defaultEngineModule
	}
	if c.Engine.ReadyTimeoutSeconds <= 0 {
		c.Engine.ReadyTimeoutSeconds = defaultReadyTimeoutSeconds
	}
	if c.Engine.RestartWindowSeconds <= 0 {
		c.Engine.RestartWindowSeconds = defaultRestartWindowSeconds
	}
	if c.Engine.RestartWindowMax <= 0 {
		c.Engine.RestartWindowMax = defaultRestartWindowMax
	}
	c.Engine.DefaultService = strings.ToLower(strings.TrimSpace(c.Engine.DefaultService))
	if c.Engine.DefaultService == "" {
		c.Engine.DefaultService = defaultService
	}
	if c.Engine.Threads <= 0 {
		c.Engine.Threads = defaultThreads
	}
	if c.Engine.LangIn, err = normalizeLanguageTag(c.Engine.LangIn, defaultLangIn); err != nil {
		return fmt.Errorf("engine.lang_in: %w", err)
	}
	if c.Engine.LangOut, err = normalizeLanguageTag(c.Engine.LangOut, defaultLangOut); err != nil {
		return fmt.Errorf("engine.lang_out: %w", err)
	}
	return nil
}

// normalizeLanguageTag canonicalizes a BCP-47 tag the engine understands.
func normalizeLanguageTag(value, fallback string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		trimmed = fallback
	}
	tag, err := language.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("unrecognized language tag %q: %w", trimmed, err)
	}
	return tag.String(), nil
}

func (c *Config) normalizeResult() {
	if c.Result.Attempts <= 0 {
		c.Result.Attempts = defaultResultAttempts
	}
	if c.Result.DelayMS <= 0 {
		c.Result.DelayMS = defaultResultDelayMS
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays <= 0 {
		c.Logging.RetentionDays = defaultRetentionDays
	}
}
