package cli

import (
	"bytes"
	"encoding/json"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withVersion(t *testing.T, v, c, d string) {
	t.Helper()
	oldV, oldC, oldD := version, commit, date
	t.Cleanup(func() { version, commit, date = oldV, oldC, oldD })
	SetVersionInfo(v, c, d)
}

func runVersion(t *testing.T, short bool) string {
	t.Helper()
	old := versionShort
	t.Cleanup(func() { versionShort = old })
	versionShort = short

	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	t.Cleanup(func() { versionCmd.SetOut(nil) })
	require.NoError(t, versionCmd.RunE(versionCmd, nil))
	return buf.String()
}

func TestVersionOutput(t *testing.T) {
	withVersion(t, "1.2.3", "abc1234", "2025-01-08T12:00:00Z")

	output := runVersion(t, false)
	assert.Contains(t, output, "nekowatch v1.2.3")
	assert.Contains(t, output, "commit: abc1234")
	assert.Contains(t, output, "built: 2025-01-08T12:00:00Z")
	assert.Contains(t, output, "go: "+runtime.Version())
	assert.Contains(t, output, "os/arch: "+runtime.GOOS+"/"+runtime.GOARCH)
}

func TestVersionOutputShort(t *testing.T) {
	withVersion(t, "1.2.3", "abc1234", "today")
	assert.Equal(t, "1.2.3", strings.TrimSpace(runVersion(t, true)))
}

func TestFormatVersion(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"dev", "dev"},
		{"1.0.0", "v1.0.0"},
		{"v2.1.0", "v2.1.0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatVersion(tt.in), tt.in)
	}
}

func TestGetVersion(t *testing.T) {
	withVersion(t, "9.9.9", "x", "y")
	require.Equal(t, "9.9.9", GetVersion())
}

func TestVersionJSON(t *testing.T) {
	withVersion(t, "1.2.3", "abc1234", "today")
	old := machineMode
	machineMode = true
	t.Cleanup(func() { machineMode = old })

	var env struct {
		Success bool      `json:"success"`
		Data    buildInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(runVersion(t, false)), &env))
	assert.True(t, env.Success)
	assert.Equal(t, "v1.2.3", env.Data.Version)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, env.Data.OSArch)
}
