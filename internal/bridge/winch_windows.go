//go:build windows

package bridge

// watchResize is a no-op: Windows consoles have no SIGWINCH.
func watchResize(fn func()) (stop func()) {
	return func() {}
}
