package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/imamik/fluxtenancy/internal/provisioning"
)

// styleFunc is a single-string styling function.
type styleFunc func(string) string

// sf wraps a lipgloss.Style into a styleFunc.
func sf(s lipgloss.Style) styleFunc {
	return func(str string) string { return s.Render(str) }
}

func renderView(m Model) string {
	var b strings.Builder

	renderHeader(&b, m)
	renderProgressBar(&b, m)
	renderScopes(&b, m)
	renderFailures(&b, m)
	renderFooter(&b, m)

	return b.String()
}

func renderHeader(b *strings.Builder, m Model) {
	b.WriteString(titleStyle.Render(fmt.Sprintf("fluxtenancy: %s", m.Owner)))

	status := " "
	switch {
	case m.Done && m.Err == nil:
		status += readyStyle.Render("Applied")
	case m.Done:
		status += failedStyle.Render("Finished with errors")
	case m.Quitting:
		status += warningStyle.Render("Cancelling...")
	default:
		status += activeStyle.Render(currentSpinner(m.SpinnerFrame)+" ") + warningStyle.Render("Applying")
	}
	b.WriteString(status)
	b.WriteString("\n")
}

func renderProgressBar(b *strings.Builder, m Model) {
	progress := m.Progress()
	barWidth := 40
	if m.Width > 0 && m.Width < 80 {
		barWidth = max(m.Width-30, 10)
	}
	filled := min(int(float64(barWidth)*progress), barWidth)

	bar := progressBarFull.Render(strings.Repeat("█", filled)) +
		progressBarEmpty.Render(strings.Repeat("░", barWidth-filled))

	eta := ""
	if m.EstimatedRemaining > 0 {
		eta = fmt.Sprintf(" ETA %s", formatDuration(m.EstimatedRemaining))
	}

	fmt.Fprintf(b, "  %s %d%%%s\n", bar, int(progress*100), eta)
}

func renderScopes(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("  Tenants"))
	b.WriteString("\n")

	for _, scope := range m.Scopes {
		icon, style := scopeIcon(m, scope)
		line := fmt.Sprintf("%s %-24s %d/%d", icon, scope.Name, scope.Completed(), len(scope.Nodes))
		if active := scope.Active(); active != nil {
			line += "  " + string(active.ID)
		}
		fmt.Fprintf(b, "    %s\n", style(line))
	}
}

func scopeIcon(m Model, scope *ScopeState) (string, styleFunc) {
	switch {
	case scope.Failed():
		return crossMark, sf(failedStyle)
	case scope.Completed() == len(scope.Nodes) && allSkipped(scope):
		return skipMark, sf(dimStyle)
	case scope.Completed() == len(scope.Nodes):
		return checkMark, sf(readyStyle)
	case scope.Active() != nil:
		return currentSpinner(m.SpinnerFrame), sf(activeStyle)
	default:
		return pending, sf(dimStyle)
	}
}

func allSkipped(scope *ScopeState) bool {
	for _, n := range scope.Nodes {
		if n.Outcome != provisioning.OutcomeSkipped {
			return false
		}
	}
	return true
}

func renderFailures(b *strings.Builder, m Model) {
	var lines []string
	for _, scope := range m.Scopes {
		for _, n := range scope.Nodes {
			if n.Outcome == provisioning.OutcomeFailed {
				lines = append(lines, fmt.Sprintf("    %s %s: %v", crossMark, n.ID, n.Err))
			}
		}
	}
	if len(lines) == 0 {
		return
	}
	b.WriteString(sectionStyle.Render("  Errors"))
	b.WriteString("\n")
	for _, line := range lines {
		b.WriteString(failedStyle.Render(line))
		b.WriteString("\n")
	}
}

func renderFooter(b *strings.Builder, m Model) {
	elapsed := formatDuration(time.Since(m.StartTime))
	b.WriteString(footerStyle.Render(fmt.Sprintf("  elapsed: %s  |  q: quit", elapsed)))
	b.WriteString("\n")
}

func currentSpinner(frame int) string {
	if frame < 0 {
		frame = -frame
	}
	return spinnerFrames[frame%len(spinnerFrames)]
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
