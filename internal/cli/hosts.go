package cli

import (
	"fmt"
	"net"
	"strconv"

	"github.com/rileyhilliard/nekowatch/internal/host"
	"github.com/rileyhilliard/nekowatch/internal/ui"
	"github.com/rileyhilliard/nekowatch/internal/util"
	"github.com/spf13/cobra"
)

var hostsCmd = &cobra.Command{
	Use:   "hosts",
	Short: "List the host registry",
	Long: `List every registered host with its status and agent endpoint.
Credentials are never printed.

Examples:
  nekowatch hosts
  nekowatch hosts --json
  nekowatch hosts import hosts.yaml
  nekowatch hosts remove web-1`,
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

		hosts, err := a.registry.List(cmd.Context())
		if err != nil {
			return err
		}
		return listHosts(cmd, hosts)
	},
}

var hostsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load a hosts YAML file into the database",
	Long: `Insert or replace every host of a hosts file in the database registry.
Hosts without an id get one derived from their name.`,
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

		db, err := a.requireDB("hosts import")
		if err != nil {
			return err
		}
		hosts, err := host.ParseHosts(args[0])
		if err != nil {
			return err
		}

		reg := db.Registry()
		for _, h := range hosts {
			if _, err := reg.Upsert(cmd.Context(), h); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s imported %d %s\n",
			ui.SymbolSuccess, len(hosts), util.Pluralize(len(hosts), "host", "hosts"))
		return nil
	},
}

var hostsRemoveCmd = &cobra.Command{
	Use:   "remove <host>",
	Short: "Delete a host from the database registry",
	Args:  cobra.ExactArgs(1),
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

		db, err := a.requireDB("hosts remove")
		if err != nil {
			return err
		}
		h, err := resolveHost(cmd.Context(), a.registry, args[0])
		if err != nil {
			return err
		}
		if err := db.Registry().Delete(cmd.Context(), h.ID); err != nil {
			return err
		}
		if err := db.Forget(cmd.Context(), h.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s removed %s (%s)\n", ui.SymbolSuccess, h.Name, h.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hostsCmd)
	hostsCmd.AddCommand(hostsImportCmd)
	hostsCmd.AddCommand(hostsRemoveCmd)
}

// hostSummary is the credential-free view of a host.
type hostSummary struct {
	ID       string `json:"sid"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	Top      int    `json:"top"`
	SSH      string `json:"ssh"`
	AgentURL string `json:"agentUrl"`
}

func summarize(h host.Host) hostSummary {
	return hostSummary{
		ID:       h.ID,
		Name:     h.Name,
		Status:   h.Status.String(),
		Top:      h.Top,
		SSH:      sshTarget(h),
		AgentURL: h.AgentURL(),
	}
}

// sshTarget renders user@host[:port], leaving out parts that are unset.
func sshTarget(h host.Host) string {
	target := h.SSH.Host
	if h.SSH.Port != 0 {
		target = net.JoinHostPort(target, strconv.Itoa(h.SSH.Port))
	}
	if h.SSH.Username != "" {
		target = h.SSH.Username + "@" + target
	}
	return target
}

func listHosts(cmd *cobra.Command, hosts []host.Host) error {
	summaries := make([]hostSummary, len(hosts))
	for i, h := range hosts {
		summaries[i] = summarize(h)
	}

	if machineMode {
		return WriteJSONSuccess(cmd.OutOrStdout(), summaries)
	}
	if len(hosts) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No hosts registered.")
		return nil
	}

	rows := make([][]string, len(summaries))
	for i, s := range summaries {
		rows[i] = []string{s.ID, s.Name, s.Status, strconv.Itoa(s.Top), s.SSH, s.AgentURL}
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.RenderTable([]string{"ID", "NAME", "STATUS", "TOP", "SSH", "AGENT"}, rows))
	return nil
}
