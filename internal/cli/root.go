package cli

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/rileyhilliard/nekowatch/internal/config"
	"github.com/rileyhilliard/nekowatch/internal/errors"
	"github.com/rileyhilliard/nekowatch/internal/logger"
	"github.com/rileyhilliard/nekowatch/internal/ui"
	"github.com/spf13/cobra"
)

// Global flags
var (
	cfgFile string
	verbose bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "nekowatch",
	Short: "Host telemetry collector and agent manager",
	Long: `nekowatch polls a fleet of hosts running the neko-status agent, keeps
their live stats plus load and traffic history, notifies when hosts go down
or recover, and installs or updates the agent over SSH.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.ConfigureColors(cmd.OutOrStdout(), noColor)
		if verbose {
			return logger.SetLevel("debug")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./nekowatch.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&machineMode, "json", false, "print JSON instead of tables")
}

// loadConfig resolves and validates the config for a subcommand, then applies its log level
// unless --verbose already forced debug.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	if !verbose {
		if err := logger.SetLevel(cfg.Log.Level); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Execute runs the root command and exits non-zero on failure. A remote
// command's exit status is passed through unchanged.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	var exitErr *errors.ExitError
	if stderrors.As(err, &exitErr) {
		os.Exit(exitErr.Code)
	}

	if machineMode {
		_ = WriteJSONFromError(os.Stdout, err)
	} else {
		fmt.Fprintln(os.Stderr, err.Error())
	}
	os.Exit(1)
}
