package tui

import (
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		fetchAll(m.config),
		tick(m.config.RefreshInterval),
	)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case statusMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.status = msg.data
			m.lastUpdated = time.Now()
		}
		return m, nil

	case statsMsg:
		switch {
		case errors.Is(msg.err, errNoLearner):
			m.noLearner = true
			m.stats = nil
		case msg.err != nil:
			// Don't override status error
			if m.err == nil {
				m.err = msg.err
			}
		default:
			m.noLearner = false
			m.stats = msg.data
		}
		return m, nil

	case eventsMsg:
		if msg.err == nil {
			m.events = msg.data
		}
		return m, nil

	case tickMsg:
		m.loading = true
		return m, tea.Batch(
			fetchAll(m.config),
			tick(m.config.RefreshInterval),
		)
	}

	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "r":
		m.loading = true
		return m, fetchAll(m.config)

	case "up", "k":
		if m.tableOffset > 0 {
			m.tableOffset--
		}
		return m, nil

	case "down", "j":
		if m.tableOffset < len(m.servedActions())-1 {
			m.tableOffset++
		}
		return m, nil
	}

	return m, nil
}

// servedActions returns the actions with at least one update, most updated
// first.
func (m Model) servedActions() []*ActionStats {
	if m.stats == nil {
		return nil
	}

	out := make([]*ActionStats, 0, len(m.stats.Stats.Actions))
	for _, a := range m.stats.Stats.Actions {
		if a.Count > 0 {
			out = append(out, a)
		}
	}
	sortByCount(out)
	return out
}
