package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/haskel/pacer/internal/action"
)

// maxVisibleActions is the number of table rows shown at once.
const maxVisibleActions = 6

var catalogue = action.NewSpace()

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var sections []string

	// Title bar
	sections = append(sections, m.renderTitleBar())

	// Error display
	if m.err != nil {
		sections = append(sections, errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	if m.status != nil {
		sections = append(sections, m.renderEngine())
		if m.status.Host != nil {
			sections = append(sections, m.renderHost())
		}
	}

	switch {
	case m.noLearner:
		sections = append(sections, helpStyle.Render("  Rule based selection only, no learner statistics"))
	case m.stats != nil:
		sections = append(sections, m.renderActionStats())
	}

	if len(m.events) > 0 {
		sections = append(sections, m.renderEvents())
	}

	// Footer
	sections = append(sections, m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderTitleBar() string {
	title := titleStyle.Render("PACER DASHBOARD")

	refreshInfo := fmt.Sprintf("↻ %s", m.config.RefreshInterval)
	if m.loading {
		refreshInfo = "↻ loading..."
	}

	help := helpStyle.Render("q:quit r:refresh ↑↓:scroll")

	// Calculate spacing
	rightPart := fmt.Sprintf("%s | %s", refreshInfo, help)
	spacing := m.width - lipgloss.Width(title) - lipgloss.Width(rightPart) - 2
	if spacing < 1 {
		spacing = 1
	}

	return fmt.Sprintf("%s%s%s", title, strings.Repeat(" ", spacing), helpStyle.Render(rightPart))
}

func (m Model) renderEngine() string {
	learner := m.status.Learner
	if learner == "" {
		learner = "none"
	}
	mode := "rules"
	if m.status.UseRL {
		mode = "learned"
	}

	parts := []string{
		labelStyle.Render("Learner ") + valueStyle.Render(learner),
		labelStyle.Render("Mode ") + valueStyle.Render(mode),
		labelStyle.Render("Actions ") + valueStyle.Render(fmt.Sprintf("%d", m.status.Actions)),
		labelStyle.Render("Events ") + valueStyle.Render(formatNumber(m.status.Events)),
	}

	if snap := m.status.Snapshot; snap != nil {
		state := "none"
		switch {
		case snap.Dirty:
			state = dirtyStyle.Render("unsaved")
		case snap.Exists:
			state = cleanStyle.Render(snap.UpdatedAt.Format("15:04:05"))
		}
		parts = append(parts, labelStyle.Render("Snapshot ")+state)
	}

	return "  " + strings.Join(parts, "  │  ")
}

func (m Model) renderHost() string {
	host := m.status.Host

	memBar := m.renderProgressBar("Memory", host.Memory.UsagePercent, 20)
	cpuBar := m.renderProgressBar("Process CPU", host.Process.CPUPercent, 20)
	rss := fmt.Sprintf("RSS %.1f MB", float64(host.Process.RSSBytes)/1024/1024)

	return fmt.Sprintf("  %s    %s  %s", memBar, cpuBar, valueStyle.Render(rss))
}

func (m Model) renderProgressBar(label string, percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	color := getProgressColor(percent)
	filledBar := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled))
	emptyBar := progressBarEmptyStyle.Render(strings.Repeat("░", width-filled))

	return fmt.Sprintf("%s [%s%s] %5.1f%%", labelStyle.Render(label), filledBar, emptyBar, percent)
}

func (m Model) renderActionStats() string {
	var lines []string
	lines = append(lines, sectionHeaderStyle.Render(fmt.Sprintf(
		"  Learner: %s (%d updates)", m.stats.Stats.Learner, m.stats.Stats.TotalUpdates)))

	actions := m.servedActions()
	if len(actions) == 0 {
		lines = append(lines, helpStyle.Render("  No feedback yet"))
		return strings.Join(lines, "\n")
	}

	// Header
	header := fmt.Sprintf("  %3s  %-28s │ %6s │ %8s │ %8s │ %6s",
		"ID", "Action", "Count", "Reward", "Mean", "P(best)")
	lines = append(lines, tableHeaderStyle.Render(header))

	// Calculate visible rows based on table offset
	start := m.tableOffset
	end := start + maxVisibleActions
	if end > len(actions) {
		end = len(actions)
	}
	if start >= len(actions) {
		start = 0
		end = min(maxVisibleActions, len(actions))
	}

	for _, a := range actions[start:end] {
		name := actionName(a.ActionID)
		if len(name) > 28 {
			name = name[:25] + "..."
		}

		row := fmt.Sprintf("  %3d  %-28s │ %6d │ %8.2f │ %8s │ %6s",
			a.ActionID, name, a.Count, a.TotalReward, formatMean(a), m.formatProbability(a.ActionID))
		lines = append(lines, tableCellStyle.Render(row))
	}

	if len(actions) > maxVisibleActions {
		scrollInfo := fmt.Sprintf("  [%d-%d of %d actions]", start+1, end, len(actions))
		lines = append(lines, helpStyle.Render(scrollInfo))
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderEvents() string {
	var lines []string
	lines = append(lines, sectionHeaderStyle.Render("  Recent Events"))

	for _, e := range m.events {
		line := fmt.Sprintf("  %s  %-18s  %-12s  action %2d",
			e.Timestamp.Format("15:04:05"), e.Type, e.UserID, e.ActionID)
		if e.Reward != nil {
			line += "  " + formatReward(*e.Reward)
		}
		lines = append(lines, tableCellStyle.Render(line))
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderFooter() string {
	if m.status == nil {
		return ""
	}

	uptime := formatUptime(m.status.UptimeSeconds)
	updated := m.lastUpdated.Format("15:04:05")

	var threads, goroutines int
	if m.status.Host != nil {
		threads = m.status.Host.Process.Threads
		goroutines = m.status.Host.Process.Goroutines
	}

	return helpStyle.Render(fmt.Sprintf(
		"  v%s │ Uptime: %s │ Threads: %d │ Goroutines: %s │ Updated: %s",
		m.status.Version,
		uptime,
		threads,
		formatNumber(goroutines),
		updated,
	))
}

func (m Model) formatProbability(actionID int) string {
	p, ok := m.stats.Probabilities[actionID]
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.2f", p)
}

func actionName(id int) string {
	a, err := catalogue.Get(id)
	if err != nil {
		return fmt.Sprintf("action %d", id)
	}
	return a.Description
}

func formatMean(a *ActionStats) string {
	if a.ExpectedReward != nil {
		return fmt.Sprintf("%.3f", *a.ExpectedReward)
	}
	if a.Count == 0 {
		return "-"
	}
	return fmt.Sprintf("%.3f", a.TotalReward/float64(a.Count))
}

func formatReward(r float64) string {
	style := positiveRewardStyle
	if r < 0 {
		style = negativeRewardStyle
	}
	return style.Render(fmt.Sprintf("%+.2f", r))
}

func formatUptime(seconds float64) string {
	s := int(seconds)
	h, s := s/3600, s%3600
	mins, s := s/60, s%60
	if h > 0 {
		return fmt.Sprintf("%dh%02dm", h, mins)
	}
	return fmt.Sprintf("%dm%02ds", mins, s)
}

func formatNumber(n int) string {
	if n >= 1000 {
		return fmt.Sprintf("%d,%03d", n/1000, n%1000)
	}
	return fmt.Sprintf("%d", n)
}

func sortByCount(actions []*ActionStats) {
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Count > actions[j].Count
	})
}
