package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/rileyhilliard/nekowatch/internal/host"
	"github.com/rileyhilliard/nekowatch/internal/logger"
	"github.com/rileyhilliard/nekowatch/internal/monitor"
	"github.com/rileyhilliard/nekowatch/internal/notify"
	"github.com/rileyhilliard/nekowatch/internal/ui"
	"github.com/rileyhilliard/nekowatch/internal/util"
	"github.com/spf13/cobra"
)

var statusHidden bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Poll every host once and print its stats",
	Long: `Fetch stats from every active host's agent once and print a table.

Examples:
  nekowatch status
  nekowatch status --hidden
  nekowatch status --json`,
	Args: cobra.NoArgs,
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

		svc := monitor.NewService(monitor.Options{
			Registry:    a.registry,
			Store:       a.store,
			Notifier:    notify.NewLog(logger.Noop()),
			PollTimeout: cfg.Poll.Timeout,
		})
		return statusCommand(cmd, a, svc)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusHidden, "hidden", false, "include hidden hosts")
}

func statusCommand(cmd *cobra.Command, a *app, svc *monitor.Service) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Poll.Timeout+5*time.Second)
	defer cancel()

	if err := svc.Collector.PollOnce(ctx); err != nil {
		return err
	}

	if machineMode {
		stats, err := svc.Stats(ctx, statusHidden)
		if err != nil {
			return err
		}
		return WriteJSONSuccess(cmd.OutOrStdout(), stats)
	}

	hosts, err := a.registry.List(ctx)
	if err != nil {
		return err
	}
	rows := hostRows(hosts, svc.Table, statusHidden)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ui.RenderHosts(rows))

	up := 0
	for _, r := range rows {
		if r.State == ui.StateUp {
			up++
		}
	}
	fmt.Fprintf(out, "%d/%d %s up\n", up, len(rows), util.Pluralize(len(rows), "host", "hosts"))
	return nil
}

// hostRows turns polled hosts into table rows. Hidden hosts are included
// only when hidden is set.
func hostRows(hosts []host.Host, table *monitor.StateTable, hidden bool) []ui.HostRow {
	rows := make([]ui.HostRow, 0, len(hosts))
	for _, h := range hosts {
		if !h.Status.Polled() || (h.Status == host.StatusHidden && !hidden) {
			continue
		}
		row := ui.HostRow{ID: h.ID, Name: h.Name, Hidden: h.Status == host.StatusHidden}

		snap, ok := table.Snapshot(h.ID)
		switch {
		case ok && !snap.Offline():
			s := snap.Stat
			row.State = ui.StateUp
			row.CPU = s.CPU.Multi * 100
			row.Mem = s.Mem.Virtual.UsedPercent
			row.Swap = s.Mem.Swap.UsedPercent
			row.In = float64(s.Net.Delta.In)
			row.Out = float64(s.Net.Delta.Out)
		case ok || table.Fails(h.ID) > 0:
			row.State = ui.StateDown
		default:
			row.State = ui.StatePending
		}
		rows = append(rows, row)
	}
	return rows
}
