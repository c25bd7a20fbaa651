package cli

import (
	"strings"

	"github.com/rileyhilliard/nekowatch/internal/errors"
	"github.com/spf13/cobra"
)

var execCmd = &cobra.Command{
	Use:   "exec <host> <command...>",
	Short: "Run a command on a host over SSH",
	Long: `Run a command on a host over a dedicated SSH session, streaming its output.
The command's exit status becomes nekowatch's exit status.

Examples:
  nekowatch exec web-1 uptime
  nekowatch exec web-1 -- systemctl status nekonekostatus`,
	Args: cobra.MinimumNArgs(2),
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

		h, err := resolveHost(cmd.Context(), a.registry, args[0])
		if err != nil {
			return err
		}

		res := a.pool.Spawn(cmd.Context(), h.SSH, strings.Join(args[1:], " "), cmd.OutOrStdout())
		if !res.Success {
			return errors.New(errors.ErrSSH, "Command on "+h.Name+" did not run: "+res.Data,
				"Check the host's SSH credentials with: nekowatch hosts")
		}
		if res.ExitCode != 0 {
			return errors.NewExitError(res.ExitCode)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(execCmd)
}
