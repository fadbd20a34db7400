package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"moviepilot/internal/config"
	"moviepilot/internal/ipc"
)

// commandContext carries the global flags and lazily loads the config once
// per invocation.
type commandContext struct {
	configFlag   string
	logLevelFlag string

	loadConfig func() (*config.Config, error)
}

func newCommandContext() *commandContext {
	c := &commandContext{}
	c.loadConfig = sync.OnceValues(func() (*config.Config, error) {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			return nil, err
		}
		if err := cfg.EnsureDirectories(); err != nil {
			return nil, err
		}
		return cfg, nil
	})
	return c
}

// bindFlags registers the global flags on root.
func (c *commandContext) bindFlags(root *cobra.Command) {
	flags := root.PersistentFlags()
	flags.StringVarP(&c.configFlag, "config", "c", "", "Configuration file path")
	flags.StringVar(&c.logLevelFlag, "log-level", "", "Override the configured log level")
}

func (c *commandContext) configPath() string { return strings.TrimSpace(c.configFlag) }
func (c *commandContext) logLevel() string   { return strings.TrimSpace(c.logLevelFlag) }

func (c *commandContext) ensureConfig() (*config.Config, error) { return c.loadConfig() }

// withClient dials the daemon socket and hands the client to fn.
func (c *commandContext) withClient(fn func(*ipc.Client) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	socket := cfg.SocketPath()
	client, err := ipc.Dial(socket)
	if err != nil {
		return wrapDialError(err, socket)
	}
	defer client.Close()
	return fn(client)
}

func wrapDialError(err error, socket string) error {
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENOENT):
		return fmt.Errorf("daemon not running (no socket at %s); start it with `moviepilot start`", socket)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("daemon socket %s refused the connection; a stale socket may be left behind, try `moviepilot start`", socket)
	}
	return fmt.Errorf("connect to daemon: %w", err)
}

// shouldSkipConfig reports whether cmd or a parent opted out of config loading.
func shouldSkipConfig(cmd *cobra.Command) bool {
	for ; cmd != nil; cmd = cmd.Parent() {
		if cmd.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
