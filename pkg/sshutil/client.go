package sshutil

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"time"

	"github.com/rileyhilliard/nekowatch/internal/errors"
	"golang.org/x/crypto/ssh"
)

// Credential describes how to reach and authenticate to a host. Its JSON
// encoding is the identity of a pooled session (see Fingerprint).
type Credential struct {
	Host       string `json:"host" yaml:"host" validate:"required"`
	Port       int    `json:"port,omitempty" yaml:"port,omitempty" validate:"gte=0,lte=65535"`
	Username   string `json:"username,omitempty" yaml:"username,omitempty"`
	Password   string `json:"password,omitempty" yaml:"password,omitempty"`
	PrivateKey string `json:"privateKey,omitempty" yaml:"private_key,omitempty"`
	Passphrase string `json:"passphrase,omitempty" yaml:"passphrase,omitempty"`
}

// Options controls how connections are established.
type Options struct {
	// ConnectTimeout bounds the TCP dial plus the SSH handshake.
	ConnectTimeout time.Duration

	// StrictHostKeyChecking verifies host keys against KnownHosts.
	// Off by default since agents are usually installed on freshly built hosts.
	StrictHostKeyChecking bool

	// KnownHosts overrides ~/.ssh/known_hosts.
	KnownHosts string
}

// DefaultConnectTimeout applies when Options.ConnectTimeout is zero.
const DefaultConnectTimeout = 10 * time.Second

// Client is a live SSH connection plus the names it was reached by.
type Client struct {
	*ssh.Client
	Host    string // host or ssh_config alias from the credential
	Address string // resolved host:port
}

// Dial connects and authenticates with cred. The credential host may be an
// ~/.ssh/config alias; anything set on the credential beats the alias.
func Dial(ctx context.Context, cred Credential, opts Options) (*Client, error) {
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	target := resolveTarget(cred)
	config, err := clientConfig(cred, target, opts, timeout)
	if err != nil {
		return nil, err
	}

	address := target.address()
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Can't reach '%s' at %s", cred.Host, address),
			dialHint(err, "Make sure the host is reachable: ping "+target.hostname))
	}

	// ssh.NewClientConn has no deadline of its own.
	_ = conn.SetDeadline(time.Now().Add(timeout))
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	if err != nil {
		conn.Close()
		var mismatch *hostKeyMismatch
		if stderrors.As(err, &mismatch) {
			return nil, errors.New(errors.ErrSSH, mismatch.Error(), mismatch.suggestion())
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("SSH handshake with '%s' failed", cred.Host),
			handshakeHint(err, target.encryptedKeys))
	}
	_ = conn.SetDeadline(time.Time{})

	return &Client{
		Client:  ssh.NewClient(sshConn, chans, reqs),
		Host:    cred.Host,
		Address: address,
	}, nil
}

func (c *Client) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

func (c *Client) GetHost() string    { return c.Host }
func (c *Client) GetAddress() string { return c.Address }

// keepaliveTimeout bounds the IsConnected round trip.
const keepaliveTimeout = 5 * time.Second

// IsConnected sends an OpenSSH keepalive, which costs one round trip and no
// session. No reply within keepaliveTimeout counts as disconnected.
func (c *Client) IsConnected() bool {
	if c.Client == nil {
		return false
	}
	return answersWithin(keepaliveTimeout, func() error {
		_, _, err := c.Client.SendRequest("keepalive@openssh.com", true, nil)
		return err
	})
}

// answersWithin reports whether send returns nil within d. A send that
// outlives d is left to finish on its own.
func answersWithin(d time.Duration, send func() error) bool {
	done := make(chan error, 1)
	go func() { done <- send() }()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case err := <-done:
		return err == nil
	case <-timer.C:
		return false
	}
}
