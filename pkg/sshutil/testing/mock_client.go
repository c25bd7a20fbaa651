package testing

import (
	"errors"
	"io"
	"regexp"
	"sync"

	"github.com/rileyhilliard/nekowatch/pkg/sshutil"
)

// ErrClosed is returned by a MockClient after Close.
var ErrClosed = errors.New("connection closed")

// CommandResponse defines a canned response for a specific command pattern.
type CommandResponse struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Error    error
}

// MockClient simulates an SSH connection for testing. Commands are answered
// from registered responses and recorded for later inspection.
type MockClient struct {
	mu        sync.Mutex
	host      string
	address   string
	closed    bool
	connected bool
	commands  map[string]CommandResponse // pattern -> response
	order     []string
	executed  []string
	shells    []*MockShell
	shellErr  error
}

// NewMockClient creates a connected mock client with no canned responses.
// Unknown commands succeed with empty output.
func NewMockClient(host string) *MockClient {
	return &MockClient{
		host:      host,
		address:   host + ":22",
		connected: true,
		commands:  make(map[string]CommandResponse),
	}
}

// SetCommandResponse registers a canned response for a command pattern.
// The pattern can be an exact string or a regex pattern; patterns are tried
// in registration order after exact matches.
func (m *MockClient) SetCommandResponse(pattern string, resp CommandResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.commands[pattern]; !ok {
		m.order = append(m.order, pattern)
	}
	m.commands[pattern] = resp
}

// SetConnected flips what IsConnected reports without closing the client.
func (m *MockClient) SetConnected(connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = connected
}

// SetShellError makes StartShell fail with err.
func (m *MockClient) SetShellError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shellErr = err
}

// Exec answers cmd from the registered responses.
func (m *MockClient) Exec(cmd string) (stdout, stderr []byte, exitCode int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, nil, -1, ErrClosed
	}
	m.executed = append(m.executed, cmd)

	if resp, ok := m.commands[cmd]; ok {
		return resp.Stdout, resp.Stderr, resp.ExitCode, resp.Error
	}

	for _, pattern := range m.order {
		if matched, _ := regexp.MatchString(pattern, cmd); matched {
			resp := m.commands[pattern]
			return resp.Stdout, resp.Stderr, resp.ExitCode, resp.Error
		}
	}

	return nil, nil, 0, nil
}

// ExecStream runs a command and writes output to the provided writers.
func (m *MockClient) ExecStream(cmd string, stdout, stderr io.Writer) (exitCode int, err error) {
	out, errOut, code, execErr := m.Exec(cmd)
	if execErr != nil {
		return -1, execErr
	}

	if stdout != nil && len(out) > 0 {
		_, _ = stdout.Write(out)
	}
	if stderr != nil && len(errOut) > 0 {
		_, _ = stderr.Write(errOut)
	}

	return code, nil
}

// StartShell returns a new MockShell.
func (m *MockClient) StartShell(size sshutil.WindowSize) (sshutil.ShellSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if m.shellErr != nil {
		return nil, m.shellErr
	}
	shell := NewMockShell(size)
	m.shells = append(m.shells, shell)
	return shell, nil
}

// IsConnected reports the connected flag; always false after Close.
func (m *MockClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected && !m.closed
}

// Close marks the connection as closed.
func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockClient) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Commands returns the commands executed so far.
func (m *MockClient) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.executed))
	copy(out, m.executed)
	return out
}

// Shells returns the shells started on this client.
func (m *MockClient) Shells() []*MockShell {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*MockShell, len(m.shells))
	copy(out, m.shells)
	return out
}

// GetHost returns the host name.
func (m *MockClient) GetHost() string {
	return m.host
}

// GetAddress returns the host:port address.
func (m *MockClient) GetAddress() string {
	return m.address
}

// MockShell is an in-memory ShellSession. Tests feed terminal output with
// Emit and end the session with Exit.
type MockShell struct {
	mu      sync.Mutex
	input   []byte
	sizes   []sshutil.WindowSize
	outR    *io.PipeReader
	outW    *io.PipeWriter
	done    chan struct{}
	once    sync.Once
	closed  bool
	initial sshutil.WindowSize
}

// NewMockShell creates a shell started with the given size.
func NewMockShell(size sshutil.WindowSize) *MockShell {
	r, w := io.Pipe()
	return &MockShell{outR: r, outW: w, done: make(chan struct{}), initial: size}
}

func (s *MockShell) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, io.ErrClosedPipe
	}
	s.input = append(s.input, p...)
	return len(p), nil
}

func (s *MockShell) Output() io.Reader { return s.outR }

func (s *MockShell) Resize(size sshutil.WindowSize) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sizes = append(s.sizes, size)
	return nil
}

func (s *MockShell) Wait() error {
	<-s.done
	return nil
}

func (s *MockShell) Close() error {
	s.Exit()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Emit writes terminal output. It blocks until the output is read.
func (s *MockShell) Emit(data string) {
	_, _ = s.outW.Write([]byte(data))
}

// Exit ends the shell as if the remote side logged out.
func (s *MockShell) Exit() {
	s.once.Do(func() {
		_ = s.outW.Close()
		close(s.done)
	})
}

// Input returns everything written to the shell.
func (s *MockShell) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.input)
}

// Sizes returns the sizes passed to Resize.
func (s *MockShell) Sizes() []sshutil.WindowSize {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sshutil.WindowSize, len(s.sizes))
	copy(out, s.sizes)
	return out
}

// InitialSize returns the size the shell was started with.
func (s *MockShell) InitialSize() sshutil.WindowSize { return s.initial }

// IsClosed reports whether Close was called.
func (s *MockShell) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
