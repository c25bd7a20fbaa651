package bridge

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/rileyhilliard/nekowatch/pkg/sshutil"
	"golang.org/x/term"
)

// TerminalChannel bridges the local terminal. When in is a terminal it is
// put in raw mode until Close, and window size changes become resize frames.
type TerminalChannel struct {
	in  *os.File
	out io.Writer

	state   *term.State
	data    chan []byte
	resizes chan sshutil.WindowSize
	done    chan struct{}

	closeOnce sync.Once
	stopWatch func()
}

// NewTerminalChannel starts reading in. The read loop cannot be interrupted
// once blocked on the file, so it lives until in is closed or the process
// exits.
func NewTerminalChannel(in *os.File, out io.Writer) (*TerminalChannel, error) {
	t := &TerminalChannel{
		in:        in,
		out:       out,
		data:      make(chan []byte, 16),
		resizes:   make(chan sshutil.WindowSize, 1),
		done:      make(chan struct{}),
		stopWatch: func() {},
	}

	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)
		if err != nil {
			return nil, err
		}
		t.state = state
		t.stopWatch = watchResize(func() {
			select {
			case t.resizes <- t.Size():
			default:
			}
		})
	}

	go t.readLoop()
	return t, nil
}

// Size is the current terminal size, or 80x24 when in is not a terminal.
func (t *TerminalChannel) Size() sshutil.WindowSize {
	w, h, err := term.GetSize(int(t.in.Fd()))
	if err != nil || w <= 0 || h <= 0 {
		return sshutil.DefaultWindowSize
	}
	return sshutil.WindowSize{Rows: h, Cols: w}
}

func (t *TerminalChannel) readLoop() {
	defer close(t.data)
	buf := make([]byte, 4096)
	for {
		n, err := t.in.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			select {
			case t.data <- chunk:
			case <-t.done:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func (t *TerminalChannel) Recv(ctx context.Context) (Frame, error) {
	select {
	case p, ok := <-t.data:
		if !ok {
			return Frame{}, io.EOF
		}
		return Frame{Data: p}, nil
	case size := <-t.resizes:
		return Frame{Resize: &size}, nil
	case <-t.done:
		return Frame{}, io.EOF
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

func (t *TerminalChannel) Send(p []byte) error {
	_, err := t.out.Write(p)
	return err
}

// Close restores the terminal mode.
func (t *TerminalChannel) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		t.stopWatch()
		if t.state != nil {
			err = term.Restore(int(t.in.Fd()), t.state)
		}
	})
	return err
}
