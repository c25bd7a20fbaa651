package sshutil

import (
	"bytes"
	"fmt"
	"io"

	"github.com/rileyhilliard/nekowatch/internal/errors"
	"golang.org/x/crypto/ssh"
)

// Exec runs a command on the remote host and returns the output.
// Returns stdout, stderr, exit code, and any error.
// Exit code is -1 if the command couldn't be executed at all.
func (c *Client) Exec(cmd string) (stdout, stderr []byte, exitCode int, err error) {
	var stdoutBuf, stderrBuf bytes.Buffer
	exitCode, err = c.ExecStream(cmd, &stdoutBuf, &stderrBuf)
	if err != nil {
		return nil, nil, -1, err
	}
	return stdoutBuf.Bytes(), stderrBuf.Bytes(), exitCode, nil
}

// ExecStream runs a command and streams output to the provided writers.
// Returns the exit code and any error.
// Exit code is -1 if the command couldn't be executed at all.
func (c *Client) ExecStream(cmd string, stdout, stderr io.Writer) (exitCode int, err error) {
	session, err := c.Client.NewSession()
	if err != nil {
		return -1, errors.WrapWithCode(err, errors.ErrSSH,
			"Failed to create SSH session",
			"Connection may have been closed. Try reconnecting.")
	}
	defer session.Close()

	session.Stdout = stdout
	session.Stderr = stderr

	err = session.Run(cmd)
	if err != nil {
		if exitErr, ok := err.(*ssh.ExitError); ok {
			// Command ran, just had non-zero exit
			return exitErr.ExitStatus(), nil
		}
		return -1, errors.WrapWithCode(err, errors.ErrExec,
			fmt.Sprintf("Failed to execute command: %s", cmd),
			"Check if the command exists on the remote host.")
	}

	return 0, nil
}

// StartShell requests a pseudo-terminal and starts a login shell on it.
func (c *Client) StartShell(size WindowSize) (ShellSession, error) {
	if size.Rows <= 0 || size.Cols <= 0 {
		size = DefaultWindowSize
	}

	session, err := c.Client.NewSession()
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			"Failed to create SSH session",
			"Connection may have been closed. Try reconnecting.")
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}

	if err := session.RequestPty("xterm-256color", size.Rows, size.Cols, modes); err != nil {
		session.Close()
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			"Failed to allocate PTY for shell",
			"The remote host may not support pseudo-terminals.")
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		return nil, errors.WrapWithCode(err, errors.ErrSSH, "Failed to attach shell stdin", "")
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		return nil, errors.WrapWithCode(err, errors.ErrSSH, "Failed to attach shell stdout", "")
	}

	if err := session.Shell(); err != nil {
		session.Close()
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			"Failed to start shell",
			"Check if the user has shell access on the remote host.")
	}

	return &shellSession{session: session, stdin: stdin, stdout: stdout}, nil
}

type shellSession struct {
	session *ssh.Session
	stdin   io.WriteCloser
	stdout  io.Reader
}

func (s *shellSession) Write(p []byte) (int, error) { return s.stdin.Write(p) }
func (s *shellSession) Output() io.Reader          { return s.stdout }

func (s *shellSession) Resize(size WindowSize) error {
	return s.session.WindowChange(size.Rows, size.Cols)
}

func (s *shellSession) Wait() error {
	err := s.session.Wait()
	if _, ok := err.(*ssh.ExitError); ok {
		return nil
	}
	return err
}

func (s *shellSession) Close() error {
	_ = s.stdin.Close()
	return s.session.Close()
}
