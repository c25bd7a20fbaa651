package doctor

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/rileyhilliard/nekowatch/internal/host"
	"github.com/rileyhilliard/nekowatch/pkg/sshutil"
	"golang.org/x/crypto/ssh/agent"
)

// SSHAgentCheck reports whether an SSH agent with keys is available for
// hosts that authenticate without a password or inline key.
type SSHAgentCheck struct {
	// Socket overrides SSH_AUTH_SOCK.
	Socket string
}

func (c *SSHAgentCheck) Name() string     { return "ssh_agent" }
func (c *SSHAgentCheck) Category() string { return CategorySSH }

func (c *SSHAgentCheck) Run(_ context.Context) CheckResult {
	socket := c.Socket
	if socket == "" {
		socket = os.Getenv("SSH_AUTH_SOCK")
	}
	if socket == "" {
		return warn("SSH agent not running",
			"Only hosts with a password or private_key can be reached: eval $(ssh-agent) && ssh-add")
	}

	conn, err := net.Dial("unix", socket)
	if err != nil {
		return warn("SSH agent socket not accessible", "Fix: eval $(ssh-agent) && ssh-add")
	}
	defer conn.Close()

	keys, err := agent.NewClient(conn).List()
	if err != nil {
		return warn("Cannot query SSH agent", "Check SSH agent: ssh-add -l")
	}
	if len(keys) == 0 {
		return warn("SSH agent running but no keys loaded", "Add a key with: ssh-add")
	}
	return pass(fmt.Sprintf("SSH agent running with %d key%s loaded", len(keys), pluralize(len(keys))))
}

// Executor runs a command over SSH. *sshutil.Pool satisfies it.
type Executor interface {
	Exec(ctx context.Context, cred sshutil.Credential, cmd string) sshutil.Result
}

// HostSSHCheck verifies a host accepts its SSH credential.
type HostSSHCheck struct {
	Host host.Host
	Exec Executor
}

func (c *HostSSHCheck) Name() string     { return "ssh_" + c.Host.ID }
func (c *HostSSHCheck) Category() string { return CategorySSH }

func (c *HostSSHCheck) Run(ctx context.Context) CheckResult {
	res := c.Exec.Exec(ctx, c.Host.SSH, "true")
	if !res.Success {
		return fail(fmt.Sprintf("%s: %s", c.Host.Name, res.Data),
			"Check the host's ssh credential in the registry")
	}
	if res.ExitCode != 0 {
		return warn(fmt.Sprintf("%s: connected, but a trivial command exited %d", c.Host.Name, res.ExitCode),
			"Check the login shell of "+c.Host.SSH.Username)
	}
	return pass(c.Host.Name + ": SSH OK")
}

// NewSSHChecks creates an SSH check for every host.
func NewSSHChecks(hosts []host.Host, exec Executor) []Check {
	checks := make([]Check, 0, len(hosts))
	for _, h := range hosts {
		checks = append(checks, &HostSSHCheck{Host: h, Exec: exec})
	}
	return checks
}
