package cli

import (
	"os"

	"github.com/rileyhilliard/nekowatch/internal/bridge"
	"github.com/rileyhilliard/nekowatch/internal/logger"
	"github.com/spf13/cobra"
)

var shellCommand string

var shellCmd = &cobra.Command{
	Use:   "shell <host>",
	Short: "Open an interactive shell on a host",
	Long: `Open a PTY shell on a host and attach the local terminal to it. Window
resizes are forwarded. Exit the remote shell to return.

Examples:
  nekowatch shell web-1
  nekowatch shell web-1 --command 'htop'`,
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

		h, err := resolveHost(cmd.Context(), a.registry, args[0])
		if err != nil {
			return err
		}

		term, err := bridge.NewTerminalChannel(os.Stdin, os.Stdout)
		if err != nil {
			return err
		}

		opts := bridge.Options{Size: term.Size()}
		if shellCommand != "" {
			opts.Command = shellCommand + "\n"
		}
		return bridge.New(a.pool, logger.NewEnvLogger("[shell]")).Run(cmd.Context(), h.SSH, term, opts)
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)
	shellCmd.Flags().StringVarP(&shellCommand, "command", "c", "", "command to type into the shell once it opens")
}
