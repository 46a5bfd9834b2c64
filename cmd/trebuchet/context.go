package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"trebuchet/internal/config"
	"trebuchet/internal/history"
	"trebuchet/internal/ipc"
)

type commandContext struct {
	socketFlag *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(socketFlag, configFlag *string) *commandContext {
	return &commandContext{
		socketFlag: socketFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.socketFlag != nil {
			if socket := strings.TrimSpace(*c.socketFlag); socket != "" {
				expanded, expandErr := config.ExpandPath(socket)
				if expandErr != nil {
					c.configErr = expandErr
					return
				}
				cfg.Paths.Socket = expanded
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// socketPath resolves the launch socket. The --socket flag is folded into the
// loaded config, so the config value is authoritative once loading succeeds.
func (c *commandContext) socketPath() string {
	if cfg, err := c.ensureConfig(); err == nil {
		return cfg.Paths.Socket
	}
	if c.socketFlag != nil {
		if socket := strings.TrimSpace(*c.socketFlag); socket != "" {
			return socket
		}
	}
	return defaultSocketPath()
}

func (c *commandContext) controlPath() string {
	return config.ControlSocketPath(c.socketPath())
}

// withHistory runs fn against the daemon control client when one is
// reachable, and otherwise against a direct handle on the history database.
// Exactly one of the two arguments is non-nil.
func (c *commandContext) withHistory(fn func(client *ipc.Client, store *history.Store) error) error {
	client, err := ipc.Dial(c.controlPath())
	if err == nil {
		defer client.Close()
		return fn(client, nil)
	}
	if !isDaemonUnreachable(err) {
		return wrapDialError(err, c.controlPath())
	}

	cfg, cfgErr := c.ensureConfig()
	if cfgErr != nil {
		return cfgErr
	}
	if !cfg.History.Enabled {
		return errors.New("daemon is not running and run history is disabled in the configuration")
	}
	store, openErr := history.Open(cfg)
	if openErr != nil {
		return fmt.Errorf("open history database: %w", openErr)
	}
	defer store.Close()
	return fn(nil, store)
}

func wrapDialError(err error, socket string) error {
	switch {
	case errors.Is(err, syscall.ENOENT) || os.IsNotExist(err):
		return fmt.Errorf("connect to daemon: socket %s not found; start the daemon with `trebuchet start`", socket)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to daemon: socket %s refused the connection; verify the daemon is running", socket)
	default:
		return fmt.Errorf("connect to daemon: %w", err)
	}
}

func isDaemonUnreachable(err error) bool {
	return os.IsNotExist(err) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}

func defaultSocketPath() string {
	socket, err := config.ExpandPath("~/.local/share/trebuchet/launch.sock")
	if err != nil {
		return filepath.Join(os.TempDir(), "trebuchet.sock")
	}
	return socket
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
