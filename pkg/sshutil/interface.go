package sshutil

import "io"

// SSHClient defines the interface for SSH command execution.
// Both the real Client and mock implementations satisfy this interface.
type SSHClient interface {
	// Exec runs a command and returns stdout, stderr, and exit code.
	// Exit code is -1 if the command couldn't be executed at all.
	// A non-zero exit code with nil error means the command ran but failed.
	Exec(cmd string) (stdout, stderr []byte, exitCode int, err error)

	// ExecStream runs a command and streams output to the provided writers.
	// Returns the exit code and any error.
	ExecStream(cmd string, stdout, stderr io.Writer) (exitCode int, err error)

	// StartShell opens an interactive login shell on a pseudo-terminal.
	StartShell(size WindowSize) (ShellSession, error)

	// IsConnected reports whether the transport still answers.
	IsConnected() bool

	// Close closes the SSH connection.
	Close() error

	// GetHost returns the original host/alias used to connect.
	GetHost() string

	// GetAddress returns the resolved host:port address.
	GetAddress() string
}

// WindowSize is a terminal size in character cells.
type WindowSize struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// DefaultWindowSize is used when the caller does not know its terminal size.
var DefaultWindowSize = WindowSize{Rows: 24, Cols: 80}

// ShellSession is a running interactive shell. Writes go to the remote
// stdin; Output yields the combined terminal output.
type ShellSession interface {
	io.Writer

	// Output returns the terminal output stream. It reaches EOF when the
	// remote shell exits.
	Output() io.Reader

	// Resize changes the remote pseudo-terminal size.
	Resize(size WindowSize) error

	// Wait blocks until the shell exits.
	Wait() error

	// Close terminates the shell.
	Close() error
}
