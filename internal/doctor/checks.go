// Package doctor runs diagnostic checks against a nekowatch setup: config,
// storage, the host registry, agent reachability and SSH access.
package doctor

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// CheckStatus represents the result status of a check.
type CheckStatus int

const (
	StatusPass CheckStatus = iota
	StatusWarn
	StatusFail
)

// String returns a human-readable status string.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// MarshalText renders the status by name in JSON output.
func (s CheckStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name.
func (s *CheckStatus) UnmarshalText(b []byte) error {
	switch string(b) {
	case "pass":
		*s = StatusPass
	case "warn":
		*s = StatusWarn
	case "fail":
		*s = StatusFail
	default:
		return fmt.Errorf("unknown check status %q", b)
	}
	return nil
}

// CheckResult contains the outcome of running a check.
type CheckResult struct {
	Name       string      `json:"name"`
	Category   string      `json:"category"`
	Status     CheckStatus `json:"status"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
}

// Check defines the interface for diagnostic checks.
type Check interface {
	// Name returns the check's identifier.
	Name() string

	// Category returns the check's category (e.g. "CONFIG", "AGENTS").
	Category() string

	// Run executes the check. It must return once ctx is done.
	Run(ctx context.Context) CheckResult
}

// RunAll executes the checks in parallel. Results keep the order of checks
// and carry each check's name and category.
func RunAll(ctx context.Context, checks []Check) []CheckResult {
	results := make([]CheckResult, len(checks))
	var wg sync.WaitGroup

	for i, check := range checks {
		wg.Add(1)
		go func(idx int, c Check) {
			defer wg.Done()
			r := c.Run(ctx)
			r.Name = c.Name()
			r.Category = c.Category()
			results[idx] = r
		}(i, check)
	}

	wg.Wait()
	return results
}

// GroupByCategory organizes results by category, returning the category
// names in a stable order.
func GroupByCategory(results []CheckResult) ([]string, map[string][]CheckResult) {
	grouped := make(map[string][]CheckResult)
	var order []string
	for _, r := range results {
		if _, ok := grouped[r.Category]; !ok {
			order = append(order, r.Category)
		}
		grouped[r.Category] = append(grouped[r.Category], r)
	}
	sort.SliceStable(order, func(i, j int) bool { return categoryRank(order[i]) < categoryRank(order[j]) })
	return order, grouped
}

var categoryOrder = []string{CategoryConfig, CategoryStore, CategoryHosts, CategorySSH, CategoryAgents}

func categoryRank(c string) int {
	for i, name := range categoryOrder {
		if name == c {
			return i
		}
	}
	return len(categoryOrder)
}

// Check categories.
const (
	CategoryConfig = "CONFIG"
	CategoryStore  = "STORE"
	CategoryHosts  = "HOSTS"
	CategorySSH    = "SSH"
	CategoryAgents = "AGENTS"
)

// CountByStatus counts results by status.
func CountByStatus(results []CheckResult) map[CheckStatus]int {
	counts := make(map[CheckStatus]int)
	for _, r := range results {
		counts[r.Status]++
	}
	return counts
}

// HasFailures returns true if any result has a fail status.
func HasFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.Status == StatusFail {
			return true
		}
	}
	return false
}

// Summary returns a summary string of the check results.
func Summary(results []CheckResult) string {
	counts := CountByStatus(results)
	total := counts[StatusWarn] + counts[StatusFail]
	if total == 0 {
		return "Everything looks good"
	}
	return fmt.Sprintf("%d issue%s found", total, pluralize(total))
}

func pluralize(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func pass(msg string) CheckResult {
	return CheckResult{Status: StatusPass, Message: msg}
}

func warn(msg, suggestion string) CheckResult {
	return CheckResult{Status: StatusWarn, Message: msg, Suggestion: suggestion}
}

func fail(msg, suggestion string) CheckResult {
	return CheckResult{Status: StatusFail, Message: msg, Suggestion: suggestion}
}
