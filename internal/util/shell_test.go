package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShellQuote(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", "'simple'"},
		{"with space", "'with space'"},
		{"with'quote", "'with'\\''quote'"},
		{"", "''"},
		{"https://example.com/a?b=c&d", "'https://example.com/a?b=c&d'"},
		{"$variable", "'$variable'"},
		{"$(command)", "'$(command)'"},
		{"`backtick`", "'`backtick`'"},
		{"line\nbreak", "'line\nbreak'"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ShellQuote(tt.input))
		})
	}
}
