// Package bridge connects a duplex byte channel (a WebSocket or the local
// terminal) to an interactive shell on a remote host.
package bridge

import (
	"context"
	"fmt"
	"io"
	"sync"
	"unicode/utf8"

	"github.com/rileyhilliard/nekowatch/internal/errors"
	"github.com/rileyhilliard/nekowatch/internal/logger"
	"github.com/rileyhilliard/nekowatch/pkg/sshutil"
)

// Status banners written to the channel.
const (
	BannerEstablished = "\r\n*** SSH CONNECTION ESTABLISHED ***\r\n"
	bannerError       = "\r\n*** SSH CONNECTION ERROR: %s ***\r\n"
)

// ErrorBanner formats a connection error for the channel.
func ErrorBanner(msg string) string {
	return fmt.Sprintf(bannerError, msg)
}

// Frame is one inbound message: keystrokes, or a resize when Resize is set.
type Frame struct {
	Data   []byte
	Resize *sshutil.WindowSize
}

// Channel is the caller's side of the bridge. Recv returns io.EOF once the
// caller has gone away. Send must not retain p. Close must unblock a pending
// Recv where the transport allows it.
type Channel interface {
	Recv(ctx context.Context) (Frame, error)
	Send(p []byte) error
	Close() error
}

// Opener starts a shell on a dedicated session. *sshutil.Pool satisfies it.
type Opener interface {
	Shell(ctx context.Context, cred sshutil.Credential, size sshutil.WindowSize) (sshutil.ShellSession, error)
}

// Options tunes a bridged session.
type Options struct {
	// Size is the initial terminal size; zero means 80x24.
	Size sshutil.WindowSize
	// Command, if set, is typed into the shell right after it starts.
	Command string
}

type Bridge struct {
	open Opener
	log  logger.Logger
}

func New(open Opener, log logger.Logger) *Bridge {
	if log == nil {
		log = logger.Noop()
	}
	return &Bridge{open: open, log: log}
}

// Run bridges ch to a new shell on cred's host until either side ends or
// ctx is canceled. Both ends are closed when it returns. Connection errors
// are reported on the channel before it is closed.
func (b *Bridge) Run(ctx context.Context, cred sshutil.Credential, ch Channel, opts Options) error {
	defer ch.Close()

	size := opts.Size
	if size.Rows <= 0 || size.Cols <= 0 {
		size = sshutil.DefaultWindowSize
	}

	shell, err := b.open.Shell(ctx, cred, size)
	if err != nil {
		b.log.Warn("shell on %s failed: %s", cred.Host, errors.Brief(err))
		_ = ch.Send([]byte(ErrorBanner(errors.Brief(err))))
		return err
	}
	defer shell.Close()

	if err := ch.Send([]byte(BannerEstablished)); err != nil {
		return err
	}
	b.log.Debug("bridged shell to %s (%dx%d)", cred.Host, size.Cols, size.Rows)

	if opts.Command != "" {
		if _, err := io.WriteString(shell, opts.Command); err != nil {
			_ = ch.Send([]byte(ErrorBanner(err.Error())))
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	outDone := make(chan error, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		outDone <- pump(shell.Output(), ch)
	}()

	inDone := make(chan error, 1)
	go func() { inDone <- b.feed(ctx, ch, shell) }()

	var runErr error
	select {
	case runErr = <-outDone:
		if runErr != nil {
			b.log.Warn("shell on %s failed: %s", cred.Host, errors.Brief(runErr))
			_ = ch.Send([]byte(ErrorBanner(errors.Brief(runErr))))
		} else {
			b.log.Debug("shell on %s ended", cred.Host)
		}
	case err := <-inDone:
		if err != io.EOF {
			runErr = err
		}
		b.log.Debug("channel for %s closed", cred.Host)
	case <-ctx.Done():
	}

	cancel()
	_ = shell.Close()
	_ = ch.Close()
	wg.Wait()
	return runErr
}

// pump copies shell output to the channel until the shell ends. A multi-byte
// rune split across reads is held back so every chunk sent is whole.
func pump(r io.Reader, ch Channel) error {
	buf := make([]byte, 32*1024)
	carry := 0
	for {
		n, err := r.Read(buf[carry:])
		n += carry
		carry = partialRune(buf[:n])
		if out := n - carry; out > 0 {
			if sendErr := ch.Send(buf[:out]); sendErr != nil {
				return nil
			}
			copy(buf, buf[out:n])
		}
		if err != nil {
			if carry > 0 {
				_ = ch.Send(buf[:carry])
			}
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

// partialRune returns the length of an incomplete UTF-8 sequence at the end
// of p, or 0.
func partialRune(p []byte) int {
	for i := 1; i < utf8.UTFMax && i <= len(p); i++ {
		tail := p[len(p)-i:]
		if !utf8.RuneStart(tail[0]) {
			continue
		}
		if utf8.FullRune(tail) {
			return 0
		}
		return i
	}
	return 0
}

// feed applies inbound frames to the shell until the channel closes.
func (b *Bridge) feed(ctx context.Context, ch Channel, shell sshutil.ShellSession) error {
	for {
		f, err := ch.Recv(ctx)
		if err != nil {
			return err
		}
		if f.Resize != nil {
			if f.Resize.Rows > 0 && f.Resize.Cols > 0 {
				if err := shell.Resize(*f.Resize); err != nil {
					b.log.Debug("resize failed: %v", err)
				}
			}
			continue
		}
		if len(f.Data) == 0 {
			continue
		}
		if _, err := shell.Write(f.Data); err != nil {
			return err
		}
	}
}
