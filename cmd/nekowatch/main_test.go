package main

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStamp(t *testing.T) {
	installed := &debug.BuildInfo{
		Main: debug.Module{Path: "github.com/rileyhilliard/nekowatch", Version: "v0.4.1"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "3f9c2b1d0e8a7c6b5a4f3e2d1c0b9a8f7e6d5c4b"},
			{Key: "vcs.time", Value: "2026-09-30T12:00:00Z"},
		},
	}

	t.Run("fills unstamped build", func(t *testing.T) {
		v, c, d := stamp(installed, "dev", "none", "unknown")
		assert.Equal(t, "v0.4.1", v)
		assert.Equal(t, "3f9c2b1", c)
		assert.Equal(t, "2026-09-30T12:00:00Z", d)
	})

	t.Run("ldflags win", func(t *testing.T) {
		v, c, d := stamp(installed, "0.5.0", "abc1234", "2026-10-01")
		assert.Equal(t, "0.5.0", v)
		assert.Equal(t, "abc1234", c)
		assert.Equal(t, "2026-10-01", d)
	})

	t.Run("devel build stays dev", func(t *testing.T) {
		v, _, _ := stamp(&debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, "dev", "none", "unknown")
		assert.Equal(t, "dev", v)
	})

	t.Run("no build info", func(t *testing.T) {
		v, c, d := stamp(nil, "dev", "none", "unknown")
		assert.Equal(t, []string{"dev", "none", "unknown"}, []string{v, c, d})
	})
}
