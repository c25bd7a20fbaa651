package ui

import "github.com/charmbracelet/lipgloss"

// Unicode symbols for status indicators.
const (
	SymbolSuccess = "✓"
	SymbolFail    = "✗"
	SymbolPending = "○"
	SymbolHidden  = "◌"
)

// HostState is the display state of a monitored host.
type HostState int

const (
	StatePending HostState = iota
	StateUp
	StateDown
)

// Symbol returns the colored indicator for a state.
func (s HostState) Symbol() string {
	switch s {
	case StateUp:
		return lipgloss.NewStyle().Foreground(ColorSuccess).Render(SymbolSuccess)
	case StateDown:
		return lipgloss.NewStyle().Foreground(ColorError).Render(SymbolFail)
	default:
		return lipgloss.NewStyle().Foreground(ColorMuted).Render(SymbolPending)
	}
}

func (s HostState) String() string {
	switch s {
	case StateUp:
		return "up"
	case StateDown:
		return "down"
	default:
		return "pending"
	}
}
