package doctor

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rileyhilliard/nekowatch/internal/config"
	"github.com/rileyhilliard/nekowatch/internal/errors"
)

// ConfigCheck loads and validates the config. Cfg is set when it passes.
type ConfigCheck struct {
	Path string // Explicit path, or empty to search
	Cfg  *config.Config
}

func (c *ConfigCheck) Name() string     { return "config" }
func (c *ConfigCheck) Category() string { return CategoryConfig }

func (c *ConfigCheck) Run(_ context.Context) CheckResult {
	path, err := config.Find(c.Path)
	if err != nil {
		return fail(errors.Brief(err), "Check the --config path")
	}

	cfg, err := config.LoadOrDefault(c.Path)
	if err != nil {
		return fail(errors.Brief(err), "Fix the YAML in "+config.ConfigFileName)
	}
	if err := config.Validate(cfg); err != nil {
		return fail(errors.Brief(err), "Fix the reported fields in "+config.ConfigFileName)
	}
	c.Cfg = cfg

	if path == "" {
		return warn("No config file, using defaults and NEKOWATCH_* environment",
			"Create "+config.ConfigFileName+" to pin settings")
	}
	return pass("Config file: " + filepath.Base(path))
}

// TimezoneCheck verifies the configured timezone resolves.
type TimezoneCheck struct {
	Cfg *config.Config
}

func (c *TimezoneCheck) Name() string     { return "timezone" }
func (c *TimezoneCheck) Category() string { return CategoryConfig }

func (c *TimezoneCheck) Run(_ context.Context) CheckResult {
	loc, err := c.Cfg.Location()
	if err != nil {
		return fail(fmt.Sprintf("Unknown timezone %q", c.Cfg.Timezone),
			"Use an IANA name like Asia/Shanghai or UTC")
	}
	return pass("Timezone: " + loc.String())
}

// AgentURLCheck warns when install and update have nowhere to download from.
type AgentURLCheck struct {
	Cfg *config.Config
}

func (c *AgentURLCheck) Name() string     { return "agent_download_url" }
func (c *AgentURLCheck) Category() string { return CategoryConfig }

func (c *AgentURLCheck) Run(_ context.Context) CheckResult {
	if c.Cfg.Agent.DownloadURL == "" {
		return warn("agent.download_url is not set",
			"Set it, or pass --url to install and update")
	}
	return pass("Agent download URL: " + c.Cfg.Agent.DownloadURL)
}

// StoreCheck reports which store is in use and whether it answers. A nil
// Ping means the in-memory store.
type StoreCheck struct {
	Ping func(ctx context.Context) error
}

func (c *StoreCheck) Name() string     { return "store" }
func (c *StoreCheck) Category() string { return CategoryStore }

func (c *StoreCheck) Run(ctx context.Context) CheckResult {
	if c.Ping == nil {
		return warn("In-memory store, history is lost on restart",
			"Set database.dsn to keep history in PostgreSQL")
	}
	if err := c.Ping(ctx); err != nil {
		return fail("Database unreachable: "+errors.Brief(err),
			"Check database.dsn and that PostgreSQL is running")
	}
	return pass("PostgreSQL reachable")
}
