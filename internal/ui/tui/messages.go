// Package tui provides a Bubble Tea terminal UI for tenancy runs.
package tui

import "github.com/imamik/fluxtenancy/internal/provisioning"

// EventMsg carries one executor event into the program.
type EventMsg struct {
	Event provisioning.Event
}

// FinishedMsg signals the run returned.
type FinishedMsg struct {
	Report *provisioning.Report
	Err    error
}

// TickMsg is sent periodically to refresh the display.
type TickMsg struct{}
