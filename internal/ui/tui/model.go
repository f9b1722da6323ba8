package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/fluxtenancy/internal/provisioning"
)

// NodeState is the display state of one resource.
type NodeState struct {
	ID       provisioning.ID
	Kind     string
	Outcome  provisioning.Outcome
	Active   bool
	Err      error
	Duration time.Duration
}

// ScopeState groups the resources of one tenant, or of the admin system.
type ScopeState struct {
	Name  string
	Nodes []*NodeState
}

// Completed returns the number of nodes with an outcome.
func (s ScopeState) Completed() int {
	n := 0
	for _, node := range s.Nodes {
		if node.Outcome != "" {
			n++
		}
	}
	return n
}

// Failed reports whether any node of the scope failed.
func (s ScopeState) Failed() bool {
	for _, node := range s.Nodes {
		if node.Outcome == provisioning.OutcomeFailed {
			return true
		}
	}
	return false
}

// Active returns the first node currently being applied.
func (s ScopeState) Active() *NodeState {
	for _, node := range s.Nodes {
		if node.Active {
			return node
		}
	}
	return nil
}

// Model is the Bubble Tea model of the apply view.
type Model struct {
	Owner  string
	Scopes []*ScopeState
	nodes  map[provisioning.ID]*NodeState

	// ETA
	EstimatedRemaining time.Duration
	StartTime          time.Time

	// Animation
	SpinnerFrame int

	// UI state
	Width    int
	Height   int
	Err      error
	Done     bool
	Quitting bool
	Report   *provisioning.Report
}

// NewApplyModel creates a model for the given declared nodes.
func NewApplyModel(owner string, nodes []provisioning.NodeInfo) Model {
	m := Model{
		Owner:     owner,
		StartTime: time.Now(),
		nodes:     make(map[provisioning.ID]*NodeState, len(nodes)),
	}
	scopes := make(map[string]*ScopeState)
	for _, n := range nodes {
		state := &NodeState{ID: n.ID, Kind: n.Kind}
		m.nodes[n.ID] = state
		scope, ok := scopes[n.Scope]
		if !ok {
			scope = &ScopeState{Name: n.Scope}
			scopes[n.Scope] = scope
			m.Scopes = append(m.Scopes, scope)
		}
		scope.Nodes = append(scope.Nodes, state)
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.Quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case EventMsg:
		m.applyEvent(msg.Event)

	case TickMsg:
		m.SpinnerFrame++
		m.updateETA()
		return m, tickCmd()

	case FinishedMsg:
		m.Done = true
		m.Report = msg.Report
		m.Err = msg.Err
		m.EstimatedRemaining = 0
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) applyEvent(e provisioning.Event) {
	state, ok := m.nodes[e.Resource]
	if !ok {
		return
	}
	switch e.Type {
	case provisioning.EventNodeStarted:
		state.Active = true
	case provisioning.EventNodeCompleted, provisioning.EventNodeFailed, provisioning.EventNodeSkipped:
		state.Active = false
		state.Outcome = e.Outcome
		state.Err = e.Err
		state.Duration = e.Duration
	}
}

// Progress returns the fraction of nodes with an outcome.
func (m Model) Progress() float64 {
	if m.Done {
		return 1
	}
	if len(m.nodes) == 0 {
		return 0
	}
	completed := 0
	for _, s := range m.Scopes {
		completed += s.Completed()
	}
	return float64(completed) / float64(len(m.nodes))
}

// updateETA extrapolates the remaining time from the average duration of
// completed nodes. It ignores parallelism, so it errs on the long side.
func (m *Model) updateETA() {
	var total time.Duration
	completed, remaining := 0, 0
	for _, n := range m.nodes {
		switch {
		case n.Outcome == "":
			remaining++
		case n.Duration > 0:
			total += n.Duration
			completed++
		}
	}
	if completed == 0 || remaining == 0 {
		m.EstimatedRemaining = 0
		return
	}
	m.EstimatedRemaining = total / time.Duration(completed) * time.Duration(remaining)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View implements tea.Model.
func (m Model) View() string {
	return renderView(m)
}
