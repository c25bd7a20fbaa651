package sshutil_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rileyhilliard/nekowatch/internal/logger"
	"github.com/rileyhilliard/nekowatch/pkg/sshutil"
	sshtest "github.com/rileyhilliard/nekowatch/pkg/sshutil/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var webCred = sshutil.Credential{Host: "10.0.0.5", Port: 22, Username: "root", Password: "hunter2"}

func TestFingerprint(t *testing.T) {
	a := sshutil.Fingerprint(webCred)
	assert.Len(t, a, 64)
	assert.Equal(t, a, sshutil.Fingerprint(webCred), "fingerprint must be stable")

	other := webCred
	other.Password = "different"
	assert.NotEqual(t, a, sshutil.Fingerprint(other))
}

func TestPool_ExecReusesSession(t *testing.T) {
	d := &sshtest.Dialer{Setup: func(c *sshtest.MockClient) {
		c.SetCommandResponse("uptime", sshtest.CommandResponse{Stdout: []byte("up 3 days")})
	}}
	pool := sshutil.NewPool(d.Dial, logger.Noop())
	defer pool.Close()

	for i := 0; i < 3; i++ {
		res := pool.Exec(context.Background(), webCred, "uptime")
		assert.True(t, res.Success)
		assert.Equal(t, "up 3 days", res.Data)
	}

	assert.Equal(t, 1, d.Dials())
	assert.Equal(t, 1, pool.Size())
}

func TestPool_NonZeroExitIsDelivered(t *testing.T) {
	d := &sshtest.Dialer{Setup: func(c *sshtest.MockClient) {
		c.SetCommandResponse("false", sshtest.CommandResponse{Stdout: []byte("out"), ExitCode: 1})
	}}
	pool := sshutil.NewPool(d.Dial, nil)

	res := pool.Exec(context.Background(), webCred, "false")
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.ExitCode)
	assert.Equal(t, "out", res.Data)
}

func TestPool_ConcurrentExecDialsOnce(t *testing.T) {
	d := &sshtest.Dialer{Gate: make(chan struct{})}
	pool := sshutil.NewPool(d.Dial, logger.Noop())
	defer pool.Close()

	const callers = 8
	var wg sync.WaitGroup
	results := make([]sshutil.Result, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = pool.Exec(context.Background(), webCred, "echo hi")
		}(i)
	}

	// Let every caller reach the shared dial before releasing it.
	require.Eventually(t, func() bool { return d.Dials() >= 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(d.Gate)
	wg.Wait()

	for _, res := range results {
		assert.True(t, res.Success)
	}
	assert.Equal(t, 1, d.Dials())
	assert.Equal(t, 1, pool.Size())
}

func TestPool_StaleSessionIsReplaced(t *testing.T) {
	d := &sshtest.Dialer{}
	pool := sshutil.NewPool(d.Dial, logger.Noop())
	defer pool.Close()

	require.True(t, pool.Exec(context.Background(), webCred, "true").Success)
	first := d.Clients()[0]
	first.SetConnected(false)

	require.True(t, pool.Exec(context.Background(), webCred, "true").Success)
	assert.Equal(t, 2, d.Dials())
	assert.True(t, first.Closed(), "stale session is closed on replacement")
	assert.Equal(t, 1, pool.Size())
}

func TestPool_TransportFailureDropsSession(t *testing.T) {
	d := &sshtest.Dialer{Setup: func(c *sshtest.MockClient) {
		c.SetCommandResponse("reboot", sshtest.CommandResponse{Error: errors.New("EOF")})
	}}
	log := logger.NewBufferLogger()
	pool := sshutil.NewPool(d.Dial, log)

	res := pool.Exec(context.Background(), webCred, "reboot")
	assert.False(t, res.Success)
	assert.Equal(t, "EOF", res.Data)
	assert.Equal(t, -1, res.ExitCode)
	assert.Equal(t, 0, pool.Size())
	assert.True(t, log.HasLevel("warn"))

	require.True(t, pool.Exec(context.Background(), webCred, "true").Success)
	assert.Equal(t, 2, d.Dials())
}

func TestPool_DialFailure(t *testing.T) {
	d := &sshtest.Dialer{Err: errors.New("connection refused")}
	pool := sshutil.NewPool(d.Dial, logger.Noop())

	res := pool.Exec(context.Background(), webCred, "true")
	assert.False(t, res.Success)
	assert.Contains(t, res.Data, "Failed to establish SSH connection")
	assert.Contains(t, res.Data, "connection refused")
	assert.Equal(t, 0, pool.Size())
}

func TestPool_SeparateFingerprints(t *testing.T) {
	d := &sshtest.Dialer{}
	pool := sshutil.NewPool(d.Dial, logger.Noop())

	other := webCred
	other.Host = "10.0.0.6"
	pool.Exec(context.Background(), webCred, "true")
	pool.Exec(context.Background(), other, "true")

	assert.Equal(t, 2, pool.Size())
	require.NoError(t, pool.Close())
	assert.Equal(t, 0, pool.Size())
	for _, c := range d.Clients() {
		assert.True(t, c.Closed())
	}
}

func TestPool_ExecOnceUsesDedicatedSession(t *testing.T) {
	d := &sshtest.Dialer{Setup: func(c *sshtest.MockClient) {
		c.SetCommandResponse("hostname", sshtest.CommandResponse{Stdout: []byte("web-1")})
	}}
	pool := sshutil.NewPool(d.Dial, logger.Noop())

	res := pool.ExecOnce(context.Background(), webCred, "hostname")
	assert.True(t, res.Success)
	assert.Equal(t, "web-1", res.Data)
	assert.Equal(t, 0, pool.Size())
	assert.True(t, d.Clients()[0].Closed())
}

func TestPool_SpawnStreams(t *testing.T) {
	d := &sshtest.Dialer{Setup: func(c *sshtest.MockClient) {
		c.SetCommandResponse("tail", sshtest.CommandResponse{Stdout: []byte("a\nb\n")})
	}}
	pool := sshutil.NewPool(d.Dial, logger.Noop())

	var streamed bytes.Buffer
	res := pool.Spawn(context.Background(), webCred, "tail", &streamed)
	assert.True(t, res.Success)
	assert.Equal(t, "a\nb\n", res.Data)
	assert.Equal(t, "a\nb\n", streamed.String())
}

func TestPool_ShellOwnsConnection(t *testing.T) {
	d := &sshtest.Dialer{}
	pool := sshutil.NewPool(d.Dial, logger.Noop())

	shell, err := pool.Shell(context.Background(), webCred, sshutil.DefaultWindowSize)
	require.NoError(t, err)
	client := d.Clients()[0]
	assert.False(t, client.Closed())

	require.NoError(t, shell.Close())
	assert.True(t, client.Closed())
	assert.True(t, client.Shells()[0].IsClosed())
}

func TestPool_ShellStartFailureClosesConnection(t *testing.T) {
	d := &sshtest.Dialer{Setup: func(c *sshtest.MockClient) {
		c.SetShellError(errors.New("pty denied"))
	}}
	pool := sshutil.NewPool(d.Dial, logger.Noop())

	_, err := pool.Shell(context.Background(), webCred, sshutil.DefaultWindowSize)
	require.EqualError(t, err, "pty denied")
	assert.True(t, d.Clients()[0].Closed())
}

func TestPool_GetHonorsContext(t *testing.T) {
	d := &sshtest.Dialer{Gate: make(chan struct{})}
	defer close(d.Gate)
	pool := sshutil.NewPool(d.Dial, logger.Noop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := pool.Get(ctx, webCred)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPool_CloseDuringDialDisposesSession(t *testing.T) {
	d := &sshtest.Dialer{Gate: make(chan struct{})}
	pool := sshutil.NewPool(d.Dial, logger.Noop())

	done := make(chan sshutil.Result, 1)
	go func() { done <- pool.Exec(context.Background(), webCred, "uptime") }()

	require.Eventually(t, func() bool { return d.Dials() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, pool.Close())
	close(d.Gate)

	res := <-done
	assert.False(t, res.Success)
	assert.Contains(t, res.Data, "SSH pool is closed")
	assert.Equal(t, 0, pool.Size())
	require.Len(t, d.Clients(), 1)
	assert.True(t, d.Clients()[0].Closed())
}
