package cli

import (
	"fmt"
	"io"

	"github.com/rileyhilliard/nekowatch/internal/store"
	"github.com/rileyhilliard/nekowatch/internal/ui"
	"github.com/rileyhilliard/nekowatch/internal/util"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history <host>",
	Short: "Show a host's stored load and traffic history",
	Long: `Print the last hour of per-minute load, the last day of hourly load,
and the traffic rollups kept in the database.

Examples:
  nekowatch history web-1
  nekowatch history 3f2a... --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := openApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		db, err := a.requireDB("history")
		if err != nil {
			return err
		}
		h, err := resolveHost(cmd.Context(), a.registry, args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		minutes, err := db.Minutes(ctx, h.ID)
		if err != nil {
			return err
		}
		hours, err := db.Hours(ctx, h.ID)
		if err != nil {
			return err
		}
		traffic, err := db.Traffic(ctx, h.ID)
		if err != nil {
			return err
		}

		if machineMode {
			return WriteJSONSuccess(cmd.OutOrStdout(), map[string]interface{}{
				"load_m": minutes, "load_h": hours, "traffic": traffic,
			})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n\n", h.Name, h.ID)
		renderHistory(cmd.OutOrStdout(), minutes, hours, traffic)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func renderHistory(w io.Writer, minutes, hours []store.LoadSample, traffic store.Traffic) {
	fmt.Fprintf(w, "  cpu  60m  %s\n", ui.RenderSparkline(loadSeries(minutes, cpuOf), store.MinuteRing))
	fmt.Fprintf(w, "  mem  60m  %s\n", ui.RenderSparkline(loadSeries(minutes, memOf), store.MinuteRing))
	fmt.Fprintf(w, "  cpu  24h  %s\n", ui.RenderSparkline(loadSeries(hours, cpuOf), store.HourRing))
	fmt.Fprintf(w, "  mem  24h  %s\n", ui.RenderSparkline(loadSeries(hours, memOf), store.HourRing))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  traffic  this hour   ↓%s ↑%s\n", util.Bytes(lastIn(traffic.Hours)), util.Bytes(lastOut(traffic.Hours)))
	fmt.Fprintf(w, "  traffic  today       ↓%s ↑%s\n", util.Bytes(lastIn(traffic.Days)), util.Bytes(lastOut(traffic.Days)))
	fmt.Fprintf(w, "  traffic  this month  ↓%s ↑%s\n", util.Bytes(lastIn(traffic.Months)), util.Bytes(lastOut(traffic.Months)))
}

func cpuOf(s store.LoadSample) float64 { return s.CPU }
func memOf(s store.LoadSample) float64 { return s.Mem }

// loadSeries scales one field to 0-1 for the sparkline. Missing samples
// stay negative so they render as gaps.
func loadSeries(samples []store.LoadSample, field func(store.LoadSample) float64) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		if !s.Valid() {
			out[i] = -1
			continue
		}
		out[i] = field(s) / 100
	}
	return out
}

func lastIn(ds []store.Delta) uint64 {
	if len(ds) == 0 {
		return 0
	}
	return ds[len(ds)-1].In
}

func lastOut(ds []store.Delta) uint64 {
	if len(ds) == 0 {
		return 0
	}
	return ds[len(ds)-1].Out
}
