package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"trebuchet/internal/wire"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWorker()
	c.normalizeLimits()
	c.normalizeLogging()
	c.normalizeHistory()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	c.Paths.Socket = strings.TrimSpace(c.Paths.Socket)
	if c.Paths.Socket == "" {
		if value, ok := os.LookupEnv("TREBUCHET_SOCKET"); ok && strings.TrimSpace(value) != "" {
			c.Paths.Socket = strings.TrimSpace(value)
		} else {
			c.Paths.Socket = defaultSocket
		}
	}
	if c.Paths.Socket, err = expandPath(c.Paths.Socket); err != nil {
		return fmt.Errorf("paths.socket: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeWorker() {
	c.Worker.Command = strings.TrimSpace(c.Worker.Command)
	if c.Worker.Command == "" {
		c.Worker.Command = defaultWorkerCommand
	}
	args := c.Worker.ExtraArgs[:0]
	for _, arg := range c.Worker.ExtraArgs {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			args = append(args, trimmed)
		}
	}
	c.Worker.ExtraArgs = args
	if c.Worker.Count <= 0 {
		c.Worker.Count = runtime.NumCPU()
	}
}

func (c *Config) normalizeLimits() {
	if c.Limits.MaxRequestBytes <= 0 {
		c.Limits.MaxRequestBytes = wire.DefaultMaxRequest
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
}

func (c *Config) normalizeHistory() {
	if c.History.Keep < 0 {
		c.History.Keep = 0
	}
}
