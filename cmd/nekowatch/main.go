// Command nekowatch polls host agents, keeps their live state and traffic,
// and installs or updates agents over SSH.
package main

import (
	"runtime/debug"

	"github.com/rileyhilliard/nekowatch/internal/cli"
)

// Release builds stamp these with
//
//	-ldflags "-X main.version=0.4.0 -X main.commit=$(git rev-parse --short HEAD) -X main.date=$(date -u +%F)"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	info, _ := debug.ReadBuildInfo()
	cli.SetVersionInfo(stamp(info, version, commit, date))
	cli.Execute()
}

// stamp fills an unstamped build from the module and VCS info that
// `go install` records.
func stamp(info *debug.BuildInfo, v, c, d string) (string, string, string) {
	if info == nil {
		return v, c, d
	}
	if v == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		v = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if c == "none" && len(s.Value) >= 7 {
				c = s.Value[:7]
			}
		case "vcs.time":
			if d == "unknown" {
				d = s.Value
			}
		}
	}
	return v, c, d
}
