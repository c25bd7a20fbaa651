package doctor

import (
	"context"
	"fmt"
	"time"

	"github.com/rileyhilliard/nekowatch/internal/errors"
	"github.com/rileyhilliard/nekowatch/internal/host"
	"github.com/rileyhilliard/nekowatch/internal/monitor"
	"github.com/rileyhilliard/nekowatch/internal/util"
)

// RegistryCheck verifies the host registry loads and has something to poll.
type RegistryCheck struct {
	Registry host.Registry
}

func (c *RegistryCheck) Name() string     { return "registry" }
func (c *RegistryCheck) Category() string { return CategoryHosts }

func (c *RegistryCheck) Run(ctx context.Context) CheckResult {
	hosts, err := c.Registry.List(ctx)
	if err != nil {
		return fail("Host registry unreadable: "+errors.Brief(err), "Check hosts_file or database.dsn")
	}

	var active, hidden int
	var idle []string
	for _, h := range hosts {
		switch h.Status {
		case host.StatusActive:
			active++
		case host.StatusHidden:
			hidden++
		default:
			idle = append(idle, h.Name)
		}
	}
	if active+hidden == 0 {
		return warn(fmt.Sprintf("%d host%s registered, none polled", len(hosts), pluralize(len(hosts))),
			"Set status: 1 on the hosts to monitor\nNot polled: "+util.JoinOrNone(idle))
	}
	return pass(fmt.Sprintf("%d host%s registered (%d active, %d hidden)",
		len(hosts), pluralize(len(hosts)), active, hidden))
}

// AgentCheck fetches one host's stats the way the collector does.
type AgentCheck struct {
	Host    host.Host
	Fetcher monitor.Fetcher
	Timeout time.Duration
}

func (c *AgentCheck) Name() string     { return "agent_" + c.Host.ID }
func (c *AgentCheck) Category() string { return CategoryAgents }

func (c *AgentCheck) Run(ctx context.Context) CheckResult {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	start := time.Now()
	p, err := c.Fetcher.Fetch(ctx, c.Host)
	if err != nil {
		return fail(fmt.Sprintf("%s: %s", c.Host.Name, errors.Brief(err)),
			fmt.Sprintf("Check the agent is running, or reinstall with: nekowatch install %s", c.Host.ID))
	}
	return pass(fmt.Sprintf("%s: agent answered in %s (cpu %.0f%%)",
		c.Host.Name, time.Since(start).Round(time.Millisecond), p.CPU.Multi*100))
}

// NewAgentChecks creates an agent check for every polled host.
func NewAgentChecks(hosts []host.Host, f monitor.Fetcher, timeout time.Duration) []Check {
	var checks []Check
	for _, h := range hosts {
		if h.Status.Polled() {
			checks = append(checks, &AgentCheck{Host: h, Fetcher: f, Timeout: timeout})
		}
	}
	return checks
}
