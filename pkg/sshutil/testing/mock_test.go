package testing

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rileyhilliard/nekowatch/pkg/sshutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockClient_CustomResponse(t *testing.T) {
	client := NewMockClient("web-1")
	client.SetCommandResponse("uname -m", CommandResponse{Stdout: []byte("x86_64\n")})
	client.SetCommandResponse("^systemctl .*", CommandResponse{ExitCode: 3, Stderr: []byte("inactive")})

	stdout, _, code, err := client.Exec("uname -m")
	require.NoError(t, err)
	assert.Equal(t, "x86_64\n", string(stdout))
	assert.Equal(t, 0, code)

	_, stderr, code, err := client.Exec("systemctl is-active nekonekostatus")
	require.NoError(t, err)
	assert.Equal(t, 3, code)
	assert.Equal(t, "inactive", string(stderr))

	stdout, _, code, err = client.Exec("true")
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Equal(t, 0, code)

	assert.Equal(t, []string{"uname -m", "systemctl is-active nekonekostatus", "true"}, client.Commands())
}

func TestMockClient_ErrorResponse(t *testing.T) {
	client := NewMockClient("web-1")
	client.SetCommandResponse("boom", CommandResponse{Error: errors.New("channel closed")})

	_, _, _, err := client.Exec("boom")
	assert.EqualError(t, err, "channel closed")
}

func TestMockClient_Close(t *testing.T) {
	client := NewMockClient("web-1")
	assert.True(t, client.IsConnected())

	require.NoError(t, client.Close())
	assert.True(t, client.Closed())
	assert.False(t, client.IsConnected())

	_, _, code, err := client.Exec("echo hi")
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, -1, code)
}

func TestMockClient_SetConnected(t *testing.T) {
	client := NewMockClient("web-1")
	client.SetConnected(false)
	assert.False(t, client.IsConnected())
	assert.False(t, client.Closed())
}

func TestMockClient_ExecStream(t *testing.T) {
	client := NewMockClient("web-1")
	client.SetCommandResponse("cat log", CommandResponse{Stdout: []byte("line\n"), Stderr: []byte("warn\n")})

	var stdout, stderr bytes.Buffer
	code, err := client.ExecStream("cat log", &stdout, &stderr)
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, "line\n", stdout.String())
	assert.Equal(t, "warn\n", stderr.String())
}

func TestMockClient_GetHostAndAddress(t *testing.T) {
	client := NewMockClient("db-1")
	assert.Equal(t, "db-1", client.GetHost())
	assert.Equal(t, "db-1:22", client.GetAddress())
}

func TestMockShell(t *testing.T) {
	client := NewMockClient("web-1")
	sess, err := client.StartShell(sshutil.WindowSize{Rows: 40, Cols: 120})
	require.NoError(t, err)

	shell := client.Shells()[0]
	assert.Equal(t, sshutil.WindowSize{Rows: 40, Cols: 120}, shell.InitialSize())

	_, err = sess.Write([]byte("ls\n"))
	require.NoError(t, err)
	assert.Equal(t, "ls\n", shell.Input())

	require.NoError(t, sess.Resize(sshutil.WindowSize{Rows: 50, Cols: 132}))
	assert.Equal(t, []sshutil.WindowSize{{Rows: 50, Cols: 132}}, shell.Sizes())

	go func() {
		shell.Emit("total 0\r\n")
		shell.Exit()
	}()
	out, err := io.ReadAll(sess.Output())
	require.NoError(t, err)
	assert.Equal(t, "total 0\r\n", string(out))
	assert.NoError(t, sess.Wait())

	require.NoError(t, sess.Close())
	assert.True(t, shell.IsClosed())
	_, err = sess.Write([]byte("x"))
	assert.Error(t, err)
}

func TestMockClient_ShellError(t *testing.T) {
	client := NewMockClient("web-1")
	client.SetShellError(errors.New("no pty"))
	_, err := client.StartShell(sshutil.DefaultWindowSize)
	assert.EqualError(t, err, "no pty")
}

func TestDialer(t *testing.T) {
	d := &Dialer{Setup: func(c *MockClient) {
		c.SetCommandResponse("hostname", CommandResponse{Stdout: []byte("web-1")})
	}}

	client, err := d.Dial(context.Background(), sshutil.Credential{Host: "10.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", client.GetHost())

	out, _, _, err := client.Exec("hostname")
	require.NoError(t, err)
	assert.Equal(t, "web-1", string(out))
	assert.Equal(t, 1, d.Dials())
	assert.Len(t, d.Clients(), 1)

	d.Err = errors.New("refused")
	_, err = d.Dial(context.Background(), sshutil.Credential{Host: "10.0.0.1"})
	assert.EqualError(t, err, "refused")
	assert.Equal(t, 2, d.Dials())
}

func TestDialer_GateHonorsContext(t *testing.T) {
	d := &Dialer{Gate: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Dial(ctx, sshutil.Credential{Host: "h"})
	assert.ErrorIs(t, err, context.Canceled)
}

// Compile-time interface checks.
var (
	_ sshutil.SSHClient    = (*MockClient)(nil)
	_ sshutil.ShellSession = (*MockShell)(nil)
	_ sshutil.Dialer       = (&Dialer{}).Dial
)
