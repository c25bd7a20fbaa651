package cli

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
)

// Build stamp, set from main through SetVersionInfo.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var versionShort bool

// buildInfo is what `version` reports.
type buildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Built   string `json:"built"`
	Go      string `json:"go"`
	OSArch  string `json:"os_arch"`
}

func currentBuild() buildInfo {
	return buildInfo{
		Version: formatVersion(version),
		Commit:  commit,
		Built:   date,
		Go:      runtime.Version(),
		OSArch:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		info := currentBuild()

		switch {
		case machineMode:
			return WriteJSONSuccess(out, info)
		case versionShort:
			fmt.Fprintln(out, version)
		default:
			fmt.Fprintf(out, "nekowatch %s\n", info.Version)
			fmt.Fprintf(out, "commit: %s\nbuilt: %s\ngo: %s\nos/arch: %s\n",
				info.Commit, info.Built, info.Go, info.OSArch)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "print only the version number")
}

// formatVersion prefixes release versions with "v"; "dev" stays as is.
func formatVersion(v string) string {
	if v == "" || v == "dev" || strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

// SetVersionInfo records the build stamp. Called from main.
func SetVersionInfo(v, c, d string) {
	version, commit, date = v, c, d
}

// GetVersion returns the raw version string.
func GetVersion() string {
	return version
}
