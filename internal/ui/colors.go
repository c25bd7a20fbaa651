package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Semantic colors for status indication
const (
	ColorSuccess lipgloss.Color = "2" // Green
	ColorError   lipgloss.Color = "1" // Red
	ColorWarning lipgloss.Color = "3" // Yellow
	ColorInfo    lipgloss.Color = "6" // Cyan
)

// Text colors for content hierarchy
const (
	ColorPrimary   lipgloss.Color = "7" // White/default
	ColorSecondary lipgloss.Color = "4" // Blue
	ColorMuted     lipgloss.Color = "8" // Gray (bright black)
)

// DisableColors renders every style as plain text.
func DisableColors() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// ConfigureColors disables colors when noColor is set, NO_COLOR is present,
// or w is not a terminal.
func ConfigureColors(w io.Writer, noColor bool) {
	if noColor || os.Getenv("NO_COLOR") != "" {
		DisableColors()
		return
	}
	if termenv.NewOutput(w).Profile == termenv.Ascii {
		DisableColors()
	}
}

// thresholdColor maps a percentage to green below 60, yellow below 80 and
// red above.
func thresholdColor(percent float64) lipgloss.Color {
	switch {
	case percent >= 80:
		return ColorError
	case percent >= 60:
		return ColorWarning
	default:
		return ColorSuccess
	}
}
