package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateResult(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateEngine() error {
	if !ServiceSupported(c.Engine.DefaultService) {
		return fmt.Errorf("engine.default_service: unsupported service %q (supported: %v)", c.Engine.DefaultService, Services)
	}
	if c.Engine.ReadyTimeoutSeconds > 600 {
		return errors.New("engine.ready_timeout_seconds must be 600 or less")
	}
	return nil
}

func (c *Config) validateResult() error {
	if c.Result.Attempts > 100 {
		return errors.New("result.attempts must be 100 or less")
	}
	if c.Result.DelayMS > 60_000 {
		return errors.New("result.delay_ms must be 60000 or less")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
