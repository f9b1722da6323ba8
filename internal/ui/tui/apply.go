package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/fluxtenancy/internal/provisioning"
)

// RunFunc applies the graph, reporting progress to the observer.
type RunFunc func(ctx context.Context, observer provisioning.Observer) (*provisioning.Report, error)

// ProgramObserver forwards executor events into a running program.
type ProgramObserver struct {
	program *tea.Program
}

// Event implements provisioning.Observer.
func (o ProgramObserver) Event(e provisioning.Event) {
	o.program.Send(EventMsg{Event: e})
}

// RunApplyTUI wraps run with the live apply view. Quitting the view cancels
// the run and waits for in-flight resources to return.
func RunApplyTUI(ctx context.Context, owner string, nodes []provisioning.NodeInfo, run RunFunc) (*provisioning.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewApplyModel(owner, nodes), tea.WithAltScreen(), tea.WithContext(ctx))

	type outcome struct {
		report *provisioning.Report
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		report, err := run(ctx, ProgramObserver{program: p})
		done <- outcome{report, err}
		p.Send(FinishedMsg{Report: report, Err: err})
	}()

	_, tuiErr := p.Run()
	cancel()
	result := <-done

	if tuiErr != nil && result.report == nil {
		return nil, fmt.Errorf("TUI error: %w", tuiErr)
	}
	return result.report, result.err
}
