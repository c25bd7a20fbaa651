package sshutil

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"sync"

	"github.com/rileyhilliard/nekowatch/internal/errors"
	"github.com/rileyhilliard/nekowatch/internal/logger"
	"golang.org/x/sync/singleflight"
)

// Result is the outcome of a remote command. Success means the command was
// delivered and ran; a non-zero ExitCode still counts as delivered. On
// failure Data carries the error text instead of stdout.
type Result struct {
	Success  bool   `json:"success"`
	Data     string `json:"data"`
	ExitCode int    `json:"exitCode"`
}

var errPoolClosed = errors.New(errors.ErrSSH, "SSH pool is closed", "")

// Dialer opens a new session for a credential.
type Dialer func(ctx context.Context, cred Credential) (SSHClient, error)

// NewDialer returns a Dialer that connects with Dial and the given options.
func NewDialer(opts Options) Dialer {
	return func(ctx context.Context, cred Credential) (SSHClient, error) {
		client, err := Dial(ctx, cred, opts)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// Fingerprint identifies a credential: hex(sha256(JSON(credential))). Two
// credentials that differ in any field get separate sessions.
func Fingerprint(cred Credential) string {
	raw, _ := json.Marshal(cred)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Pool keeps one live SSH session per credential fingerprint for reuse by
// provisioning and ad-hoc commands.
type Pool struct {
	dial  Dialer
	log   logger.Logger
	group singleflight.Group

	mu          sync.Mutex
	connections map[string]SSHClient
	closed      bool
}

// NewPool creates a new SSH session pool.
func NewPool(dial Dialer, log logger.Logger) *Pool {
	if log == nil {
		log = logger.Noop()
	}
	return &Pool{
		dial:        dial,
		log:         log,
		connections: make(map[string]SSHClient),
	}
}

// Get returns the pooled session for cred, dialing when there is none or the
// pooled one no longer answers. Concurrent callers for the same fingerprint
// share a single dial.
func (p *Pool) Get(ctx context.Context, cred Credential) (SSHClient, error) {
	fp := Fingerprint(cred)

	p.mu.Lock()
	client, exists := p.connections[fp]
	p.mu.Unlock()

	if exists && client.IsConnected() {
		return client, nil
	}

	ch := p.group.DoChan(fp, func() (interface{}, error) {
		p.mu.Lock()
		current, ok := p.connections[fp]
		p.mu.Unlock()

		// Another caller may have replaced a stale entry while we waited.
		if ok && current != client && current.IsConnected() {
			return current, nil
		}
		if ok {
			p.log.Debug("session for %s is stale, reconnecting", cred.Host)
			p.remove(fp, current)
		}

		// The dial is shared, so one caller giving up must not abort it for
		// the others. The connect timeout still bounds it.
		fresh, err := p.dial(context.WithoutCancel(ctx), cred)
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			_ = fresh.Close()
			return nil, errPoolClosed
		}
		p.connections[fp] = fresh
		p.mu.Unlock()
		p.log.Debug("opened session to %s", cred.Host)
		return fresh, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(SSHClient), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Exec runs cmd over the pooled session for cred. A transport-level failure
// drops the session so the next call redials.
func (p *Pool) Exec(ctx context.Context, cred Credential, cmd string) Result {
	client, err := p.Get(ctx, cred)
	if err != nil {
		p.log.Warn("SSH connection to %s failed: %s", cred.Host, errors.Brief(err))
		return connectFailed(err)
	}

	stdout, _, code, err := client.Exec(cmd)
	if err != nil {
		p.log.Warn("command on %s failed: %s", cred.Host, errors.Brief(err))
		p.remove(Fingerprint(cred), client)
		return Result{Success: false, Data: errors.Brief(err), ExitCode: -1}
	}

	return Result{Success: true, Data: string(stdout), ExitCode: code}
}

// ExecOnce runs cmd over a dedicated session that is closed afterwards.
func (p *Pool) ExecOnce(ctx context.Context, cred Credential, cmd string) Result {
	return p.Spawn(ctx, cred, cmd, nil)
}

// Spawn runs cmd over a dedicated session, copying stdout to w as it arrives
// (when w is non-nil). The full stdout is also returned in the Result.
func (p *Pool) Spawn(ctx context.Context, cred Credential, cmd string, w io.Writer) Result {
	client, err := p.dial(ctx, cred)
	if err != nil {
		p.log.Warn("SSH connection to %s failed: %s", cred.Host, errors.Brief(err))
		return connectFailed(err)
	}
	defer client.Close()

	var stdout lockedBuffer
	var out io.Writer = &stdout
	if w != nil {
		out = io.MultiWriter(&stdout, w)
	}

	code, err := client.ExecStream(cmd, out, io.Discard)
	if err != nil {
		return Result{Success: false, Data: errors.Brief(err), ExitCode: -1}
	}
	return Result{Success: true, Data: stdout.String(), ExitCode: code}
}

// Shell opens an interactive shell over a dedicated session. Closing the
// returned ShellSession also closes its connection.
func (p *Pool) Shell(ctx context.Context, cred Credential, size WindowSize) (ShellSession, error) {
	client, err := p.dial(ctx, cred)
	if err != nil {
		return nil, err
	}

	shell, err := client.StartShell(size)
	if err != nil {
		client.Close()
		return nil, err
	}
	return &ownedShell{ShellSession: shell, client: client}, nil
}

// Close closes all sessions in the pool and clears it. A dial still in
// flight is closed when it completes.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true

	for fp, client := range p.connections {
		_ = client.Close()
		delete(p.connections, fp)
	}
	return nil
}

// Size returns the number of sessions in the pool.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.connections)
}

// remove closes and removes the entry for fp if it still holds client.
func (p *Pool) remove(fp string, client SSHClient) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if current, ok := p.connections[fp]; ok && current == client {
		_ = current.Close()
		delete(p.connections, fp)
	}
}

func connectFailed(err error) Result {
	return Result{
		Success:  false,
		Data:     "Failed to establish SSH connection: " + errors.Brief(err),
		ExitCode: -1,
	}
}

// ownedShell closes the connection it was opened on.
type ownedShell struct {
	ShellSession
	client SSHClient
}

func (s *ownedShell) Close() error {
	err := s.ShellSession.Close()
	_ = s.client.Close()
	return err
}

// lockedBuffer collects stdout written by the session copier goroutine.
type lockedBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
