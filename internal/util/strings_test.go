package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinOrNone(t *testing.T) {
	tests := []struct {
		name  string
		items []string
		want  string
	}{
		{"nil slice", nil, "(none)"},
		{"empty slice", []string{}, "(none)"},
		{"single item", []string{"alpha"}, "alpha"},
		{"several items", []string{"alpha", "beta"}, "alpha, beta"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, JoinOrNone(tt.items))
		})
	}
}

func TestPluralize(t *testing.T) {
	assert.Equal(t, "host", Pluralize(1, "host", "hosts"))
	assert.Equal(t, "hosts", Pluralize(0, "host", "hosts"))
	assert.Equal(t, "hosts", Pluralize(2, "host", "hosts"))
}

func TestBytes(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536 * 1024 * 1024, "1.5 GiB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Bytes(tt.in))
	}
}

func TestRate(t *testing.T) {
	assert.Equal(t, "2.0 KiB/s", Rate(2048))
	assert.Equal(t, "0 B/s", Rate(-5))
}
