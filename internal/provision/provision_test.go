package provision

import (
	"context"
	"strings"
	"testing"

	"github.com/rileyhilliard/nekowatch/internal/errors"
	"github.com/rileyhilliard/nekowatch/internal/host"
	hosttest "github.com/rileyhilliard/nekowatch/internal/host/testing"
	"github.com/rileyhilliard/nekowatch/internal/logger"
	"github.com/rileyhilliard/nekowatch/pkg/sshutil"
	sshtest "github.com/rileyhilliard/nekowatch/pkg/sshutil/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const agentURL = "https://example.com/neko-status"

func newPool(d *sshtest.Dialer) *sshutil.Pool {
	return sshutil.NewPool(d.Dial, logger.Noop())
}

func TestInstallScript(t *testing.T) {
	script, err := InstallScript(agentURL, "s3cr'et", 10086)
	require.NoError(t, err)

	assert.Contains(t, script, "yum install wget -y || apt-get install wget -y")
	assert.Contains(t, script, "wget -q 'https://example.com/neko-status' -O /usr/bin/neko-status")
	assert.Contains(t, script, "> /etc/neko-status/config.yaml")
	assert.Contains(t, script, "Restart=always")
	assert.Contains(t, script, "RestartSec=5")
	assert.Contains(t, script, "ExecStart=/usr/bin/neko-status -c /etc/neko-status/config.yaml")
	assert.Contains(t, script, `s3cr'\''et`, "key is shell-quoted")

	lines := strings.Split(script, "\n")
	assert.Equal(t, "systemctl enable nekonekostatus", lines[len(lines)-1])
}

func TestRenderConfig(t *testing.T) {
	out, err := renderConfig("k: ey", 9999)
	require.NoError(t, err)

	var cfg agentConfig
	require.NoError(t, yaml.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, agentConfig{Key: "k: ey", Port: 9999, Debug: false}, cfg)
	assert.Contains(t, out, "debug: false")
}

func TestUpdateScript(t *testing.T) {
	script := UpdateScript(agentURL)
	assert.Equal(t, strings.Join([]string{
		"rm -f /usr/bin/neko-status",
		"wget -q 'https://example.com/neko-status' -O /usr/bin/neko-status",
		"chmod +x /usr/bin/neko-status",
		"systemctl restart nekonekostatus",
	}, "\n"), script)
}

func TestOrchestrator_InvalidInput(t *testing.T) {
	valid := hosttest.Host("a", "alpha", "10.0.0.1", 10086)

	tests := []struct {
		name   string
		mutate func(h *host.Host)
		url    string
	}{
		{"missing url", func(h *host.Host) {}, ""},
		{"bad url", func(h *host.Host) {}, "not a url"},
		{"missing ssh host", func(h *host.Host) { h.SSH.Host = "" }, agentURL},
		{"missing api key", func(h *host.Host) { h.API.Key = "" }, agentURL},
		{"missing api port", func(h *host.Host) { h.API.Port = 0 }, agentURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &sshtest.Dialer{}
			o := New(newPool(d), nil)
			h := valid
			tt.mutate(&h)

			assert.Equal(t, Outcome{Message: "invalid input data"}, o.Install(context.Background(), h, tt.url))
			assert.Equal(t, Outcome{Message: "invalid input data"}, o.Update(context.Background(), h, tt.url))
			assert.Equal(t, 0, d.Dials(), "no network attempt")
		})
	}
}

func TestOrchestrator_Install(t *testing.T) {
	d := &sshtest.Dialer{}
	o := New(newPool(d), logger.NewBufferLogger())
	h := hosttest.Host("a", "alpha", "10.0.0.1", 10086)

	out := o.Install(context.Background(), h, agentURL)
	assert.Equal(t, Outcome{OK: true, Message: "install succeeded"}, out)

	require.Len(t, d.Clients(), 1)
	cmds := d.Clients()[0].Commands()
	require.Len(t, cmds, 1)
	assert.Contains(t, cmds[0], "systemctl enable nekonekostatus")
}

func TestOrchestrator_ReusesPooledSession(t *testing.T) {
	d := &sshtest.Dialer{}
	o := New(newPool(d), nil)
	h := hosttest.Host("a", "alpha", "10.0.0.1", 10086)

	require.True(t, o.Install(context.Background(), h, agentURL).OK)
	require.True(t, o.Update(context.Background(), h, agentURL).OK)
	assert.Equal(t, 1, d.Dials())
}

func TestOrchestrator_ConnectionFailure(t *testing.T) {
	d := &sshtest.Dialer{Err: errors.New(errors.ErrSSH, "connection refused", "")}
	o := New(newPool(d), nil)
	h := hosttest.Host("a", "alpha", "10.0.0.1", 10086)

	assert.Equal(t, Outcome{Message: "install failed: SSH connection failed"}, o.Install(context.Background(), h, agentURL))
	assert.Equal(t, Outcome{Message: "update failed: SSH connection failed"}, o.Update(context.Background(), h, agentURL))
}

func TestOrchestrator_ScriptExitCode(t *testing.T) {
	d := &sshtest.Dialer{Setup: func(c *sshtest.MockClient) {
		c.SetCommandResponse("systemctl restart", sshtest.CommandResponse{ExitCode: 5})
	}}
	o := New(newPool(d), nil)
	h := hosttest.Host("a", "alpha", "10.0.0.1", 10086)

	out := o.Update(context.Background(), h, agentURL)
	assert.False(t, out.OK)
	assert.Equal(t, "update failed: script exited with code 5", out.Message)
}
