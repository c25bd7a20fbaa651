package ui

import (
	"fmt"

	"github.com/rileyhilliard/nekowatch/internal/util"
)

// HostRow is one line of the host status table. Percentages are 0-100;
// In and Out are bytes per second.
type HostRow struct {
	ID     string
	Name   string
	State  HostState
	Hidden bool
	CPU    float64
	Mem    float64
	Swap   float64
	In     float64
	Out    float64
}

const gaugeWidth = 10

// RenderHosts draws the status table. Load columns are blank for hosts that
// are not up.
func RenderHosts(rows []HostRow) string {
	cells := make([][]string, 0, len(rows))
	for _, r := range rows {
		name := r.Name
		if r.Hidden {
			name += " " + SymbolHidden
		}
		line := []string{r.State.Symbol(), r.ID, name, "", "", "", ""}
		if r.State == StateUp {
			line[3] = RenderBar(r.CPU, gaugeWidth)
			line[4] = RenderBar(r.Mem, gaugeWidth)
			line[5] = RenderBar(r.Swap, gaugeWidth)
			line[6] = fmt.Sprintf("↓%s ↑%s", util.Rate(r.In), util.Rate(r.Out))
		}
		cells = append(cells, line)
	}
	return RenderTable([]string{"", "ID", "NAME", "CPU", "MEM", "SWAP", "NET"}, cells)
}
