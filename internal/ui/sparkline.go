package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Eight vertical levels, lowest to highest.
var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// RenderSparkline draws the last width values of data on a fixed 0-1 scale.
// Negative values mark missing samples and render as a gap. The color
// follows the most recent present value.
func RenderSparkline(data []float64, width int) string {
	if len(data) == 0 || width <= 0 {
		return ""
	}
	if len(data) > width {
		data = data[len(data)-width:]
	}

	var sb strings.Builder
	last := -1.0
	for _, v := range data {
		if v < 0 {
			sb.WriteRune(' ')
			continue
		}
		last = v
		sb.WriteRune(sparkBlocks[level(v)])
	}

	if last < 0 {
		return sb.String()
	}
	return lipgloss.NewStyle().Foreground(thresholdColor(last * 100)).Render(sb.String())
}

func level(v float64) int {
	n := len(sparkBlocks)
	l := int(v * float64(n-1))
	if l < 0 {
		return 0
	}
	if l >= n {
		return n - 1
	}
	return l
}
