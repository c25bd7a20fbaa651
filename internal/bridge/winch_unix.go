//go:build !windows

package bridge

import (
	"os"
	"os/signal"
	"syscall"
)

// watchResize calls fn on every SIGWINCH until the returned stop is called.
func watchResize(fn func()) (stop func()) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGWINCH)
	quit := make(chan struct{})
	go func() {
		for {
			select {
			case <-sig:
				fn()
			case <-quit:
				return
			}
		}
	}()
	return func() {
		signal.Stop(sig)
		close(quit)
	}
}
