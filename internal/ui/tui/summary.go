package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/imamik/fluxtenancy/internal/provisioning"
)

var summaryOutcomes = []provisioning.Outcome{
	provisioning.OutcomeCreated,
	provisioning.OutcomeUpdated,
	provisioning.OutcomeUnchanged,
	provisioning.OutcomeAdopted,
	provisioning.OutcomeFailed,
	provisioning.OutcomeSkipped,
}

// RenderSummary renders a per-scope outcome table followed by every failure.
// With plain set no ANSI styling is applied.
func RenderSummary(r *provisioning.Report, plain bool) string {
	style := func(s lipgloss.Style) styleFunc {
		if plain {
			return func(str string) string { return str }
		}
		return sf(s)
	}

	var scopes []string
	perScope := make(map[string]map[provisioning.Outcome]int)
	for _, res := range r.Results {
		if res.Component {
			continue
		}
		counts, ok := perScope[res.Scope]
		if !ok {
			counts = make(map[provisioning.Outcome]int)
			perScope[res.Scope] = counts
			scopes = append(scopes, res.Scope)
		}
		counts[res.Outcome]++
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", style(titleStyle)(fmt.Sprintf("Run %s", r.RunID)))

	header := fmt.Sprintf("  %-24s", "SCOPE")
	for _, o := range summaryOutcomes {
		header += fmt.Sprintf(" %9s", strings.ToUpper(string(o)))
	}
	fmt.Fprintf(&b, "%s\n", style(dimStyle)(header))

	for _, scope := range scopes {
		counts := perScope[scope]
		icon, st := checkMark, style(readyStyle)
		switch {
		case counts[provisioning.OutcomeFailed] > 0:
			icon, st = crossMark, style(failedStyle)
		case counts[provisioning.OutcomeSkipped] > 0:
			icon, st = skipMark, style(warningStyle)
		}
		row := fmt.Sprintf("%s %-19s", icon, scope)
		for _, o := range summaryOutcomes {
			row += fmt.Sprintf(" %9d", counts[o])
		}
		fmt.Fprintf(&b, "  %s\n", st(row))
	}

	failed := r.Failed()
	if len(failed) > 0 {
		fmt.Fprintf(&b, "\n%s\n", style(failedStyle)("Errors:"))
		for _, res := range failed {
			fmt.Fprintf(&b, "  %s %s (%s): %s\n", crossMark, res.ID, res.Kind, res.Error)
		}
	}

	return b.String()
}
