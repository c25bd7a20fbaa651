package cli

import (
	"fmt"

	"github.com/rileyhilliard/nekowatch/internal/errors"
	"github.com/rileyhilliard/nekowatch/internal/host"
	"github.com/rileyhilliard/nekowatch/internal/logger"
	"github.com/rileyhilliard/nekowatch/internal/provision"
	"github.com/rileyhilliard/nekowatch/internal/ui"
	"github.com/spf13/cobra"
)

var (
	agentYes bool
	agentURL string
)

var installCmd = &cobra.Command{
	Use:   "install <host>",
	Short: "Install the monitoring agent over SSH",
	Long: `Download the agent binary on the host, write its config with the host's
API key and port, and enable it as a systemd service.

Examples:
  nekowatch install web-1
  nekowatch install web-1 --yes --url https://example.com/neko-status`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return agentCommand(cmd, args[0], false)
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <host>",
	Short: "Replace the agent binary and restart it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return agentCommand(cmd, args[0], true)
	},
}

func init() {
	for _, c := range []*cobra.Command{installCmd, updateCmd} {
		c.Flags().BoolVarP(&agentYes, "yes", "y", false, "skip the confirmation prompt")
		c.Flags().StringVar(&agentURL, "url", "", "agent download URL (overrides agent.download_url)")
		rootCmd.AddCommand(c)
	}
}

func agentCommand(cmd *cobra.Command, ref string, update bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	url := cfg.Agent.DownloadURL
	if agentURL != "" {
		url = agentURL
	}

	a, err := openApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	h, err := resolveHost(cmd.Context(), a.registry, ref)
	if err != nil {
		return err
	}

	action := "install"
	if update {
		action = "update"
	}

	if !agentYes && !machineMode {
		ok, err := ui.Confirm(
			fmt.Sprintf("%s the agent on %s?", capitalize(action), h.Name),
			fmt.Sprintf("Runs as %s over SSH and restarts the %s service.", sshTarget(h), provision.ServiceName))
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}

	o := provision.New(a.pool, logger.NewEnvLogger("[provision]"))
	out := runAgentAction(cmd, o, h, url, update)

	if machineMode {
		return WriteJSONSuccess(cmd.OutOrStdout(), out)
	}
	if !out.OK {
		return errors.NewExitError(1)
	}
	return nil
}

func runAgentAction(cmd *cobra.Command, o *provision.Orchestrator, h host.Host, url string, update bool) provision.Outcome {
	run := o.Install
	label := "Installing agent on " + h.Name
	if update {
		run = o.Update
		label = "Updating agent on " + h.Name
	}

	if machineMode {
		return run(cmd.Context(), h, url)
	}

	spin := ui.NewSpinner(cmd.OutOrStdout(), label)
	spin.Start()
	out := run(cmd.Context(), h, url)
	if out.OK {
		spin.Success(out.Message)
	} else {
		spin.Fail(out.Message)
	}
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
