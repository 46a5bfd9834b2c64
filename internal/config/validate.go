package config

import (
	"errors"
	"fmt"

	"trebuchet/internal/wire"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWorker(); err != nil {
		return err
	}
	if err := c.validateLimits(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if err := wire.ValidateSocketPath(c.Paths.Socket); err != nil {
		return fmt.Errorf("paths.socket: %w", err)
	}
	// The control socket shares the directory and adds a suffix, so it can
	// overflow the sockaddr limit even when the launch socket fits.
	if err := wire.ValidateSocketPath(ControlSocketPath(c.Paths.Socket)); err != nil {
		return fmt.Errorf("paths.socket (control endpoint): %w", err)
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateWorker() error {
	if c.Worker.Command == "" {
		return errors.New("worker.command must be set")
	}
	if c.Worker.Count <= 0 {
		return errors.New("worker.count must be positive")
	}
	if c.Worker.RunTimeout < 0 {
		return errors.New("worker.run_timeout must be zero or positive (seconds)")
	}
	return nil
}

func (c *Config) validateLimits() error {
	if c.Limits.MaxRequestBytes <= 0 {
		return errors.New("limits.max_request_bytes must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be zero or positive")
	}
	return nil
}
