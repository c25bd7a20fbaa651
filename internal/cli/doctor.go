package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/nekowatch/internal/doctor"
	"github.com/rileyhilliard/nekowatch/internal/errors"
	"github.com/rileyhilliard/nekowatch/internal/monitor"
	"github.com/rileyhilliard/nekowatch/internal/ui"
	"github.com/spf13/cobra"
)

var doctorSSH bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose config, storage, agents and SSH access",
	Long: `Run diagnostic checks against the current setup and report what is wrong.

Agent checks fetch /stat from every polled host. With --ssh each host's
SSH credential is also tried.

Examples:
  nekowatch doctor
  nekowatch doctor --ssh
  nekowatch doctor --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		results := runDoctor(cmd.Context(), cfgFile, doctorSSH)
		if err := renderDoctor(cmd.OutOrStdout(), results); err != nil {
			return err
		}
		if doctor.HasFailures(results) {
			return errors.NewExitError(1)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorSSH, "ssh", false, "also open an SSH session to every host")
}

// DoctorOutput is the --json shape of the report.
type DoctorOutput struct {
	Categories []CategoryOutput `json:"categories"`
	Summary    SummaryOutput    `json:"summary"`
}

// CategoryOutput represents a category of check results.
type CategoryOutput struct {
	Name    string               `json:"name"`
	Results []doctor.CheckResult `json:"results"`
}

// SummaryOutput summarizes the check results.
type SummaryOutput struct {
	Pass     int  `json:"pass"`
	Warn     int  `json:"warn"`
	Fail     int  `json:"fail"`
	AllClear bool `json:"all_clear"`
}

// runDoctor runs the checks in dependency order: nothing past the config
// check runs without a valid config, and host checks need the registry.
func runDoctor(ctx context.Context, path string, withSSH bool) []doctor.CheckResult {
	cfgCheck := &doctor.ConfigCheck{Path: path}
	results := doctor.RunAll(ctx, []doctor.Check{cfgCheck})
	if cfgCheck.Cfg == nil {
		return results
	}
	cfg := cfgCheck.Cfg

	a, err := openApp(ctx, cfg)
	if err != nil {
		return append(results, doctor.CheckResult{
			Name:       "store",
			Category:   doctor.CategoryStore,
			Status:     doctor.StatusFail,
			Message:    errors.Brief(err),
			Suggestion: suggestionOf(err),
		})
	}
	defer a.Close()

	store := &doctor.StoreCheck{}
	if a.db != nil {
		store.Ping = a.db.Ping
	}
	checks := []doctor.Check{
		&doctor.TimezoneCheck{Cfg: cfg},
		&doctor.AgentURLCheck{Cfg: cfg},
		store,
		&doctor.RegistryCheck{Registry: a.registry},
		&doctor.SSHAgentCheck{},
	}

	if hosts, err := a.registry.List(ctx); err == nil {
		checks = append(checks, doctor.NewAgentChecks(hosts, monitor.NewAgentClient(nil), cfg.Poll.Timeout)...)
		if withSSH {
			checks = append(checks, doctor.NewSSHChecks(hosts, a.pool)...)
		}
	}

	return append(results, doctor.RunAll(ctx, checks)...)
}

func suggestionOf(err error) string {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return e.Suggestion
	}
	return ""
}

func renderDoctor(w io.Writer, results []doctor.CheckResult) error {
	order, grouped := doctor.GroupByCategory(results)

	if machineMode {
		counts := doctor.CountByStatus(results)
		out := DoctorOutput{Summary: SummaryOutput{
			Pass:     counts[doctor.StatusPass],
			Warn:     counts[doctor.StatusWarn],
			Fail:     counts[doctor.StatusFail],
			AllClear: counts[doctor.StatusWarn]+counts[doctor.StatusFail] == 0,
		}}
		for _, name := range order {
			out.Categories = append(out.Categories, CategoryOutput{Name: name, Results: grouped[name]})
		}
		return WriteJSONSuccess(w, out)
	}

	headerStyle := lipgloss.NewStyle().Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(ui.ColorMuted)

	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render("nekowatch diagnostic report"))
	fmt.Fprintln(w)

	for _, name := range order {
		fmt.Fprintln(w, headerStyle.Render(name))
		for _, r := range grouped[name] {
			fmt.Fprintf(w, "  %s %s\n", checkSymbol(r.Status), r.Message)
			if r.Suggestion != "" && r.Status != doctor.StatusPass {
				for _, line := range strings.Split(r.Suggestion, "\n") {
					fmt.Fprintf(w, "    %s\n", mutedStyle.Render(line))
				}
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, strings.Repeat("━", 60))
	counts := doctor.CountByStatus(results)
	sym := ui.StateUp.Symbol()
	if counts[doctor.StatusWarn]+counts[doctor.StatusFail] > 0 {
		sym = ui.StateDown.Symbol()
	}
	fmt.Fprintf(w, "%s %s\n", sym, doctor.Summary(results))
	return nil
}

func checkSymbol(s doctor.CheckStatus) string {
	switch s {
	case doctor.StatusPass:
		return lipgloss.NewStyle().Foreground(ui.ColorSuccess).Render(ui.SymbolSuccess)
	case doctor.StatusWarn:
		return lipgloss.NewStyle().Foreground(ui.ColorWarning).Render(ui.SymbolPending)
	default:
		return lipgloss.NewStyle().Foreground(ui.ColorError).Render(ui.SymbolFail)
	}
}
