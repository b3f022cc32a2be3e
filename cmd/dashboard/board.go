package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/station42/shopfloor/internal/model"
	"github.com/station42/shopfloor/internal/projection"
	"github.com/station42/shopfloor/internal/viewer"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	statStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	idleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	dueStyles   = map[model.DueStatus]lipgloss.Style{
		model.DueOverdue: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		model.DueNow:     lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		model.DueSoon:    lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		model.DueLater:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
)

// tickMsg redraws the board. The viewer's registry advances on its own
// clock; the TUI only reads snapshots.
type tickMsg time.Time

type board struct {
	viewer *viewer.Viewer
	width  int
}

func newBoard(v *viewer.Viewer) board {
	return board{viewer: v}
}

func (b board) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (b board) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return b, tea.Quit
		}
	case tea.WindowSizeMsg:
		b.width = msg.Width
	case tickMsg:
		return b, tick()
	}
	return b, nil
}

func (b board) View() string {
	now := time.Now()
	orders := b.viewer.Orders()
	times := b.viewer.Snapshot()
	stats := projection.Compute(now, orders, times)

	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Shopfloor — live work orders"))
	sb.WriteString("  ")
	sb.WriteString(statStyle.Render(fmt.Sprintf("[%s]", b.viewer.State())))
	sb.WriteString("\n")
	sb.WriteString(statStyle.Render(fmt.Sprintf(
		"active: %d   started today: %d   worked today: %s",
		stats.ActiveOrders, stats.OrdersToday, formatDuration(stats.TotalSecondsToday),
	)))
	sb.WriteString("\n\n")

	if len(orders) == 0 {
		sb.WriteString(idleStyle.Render("no orders yet"))
		sb.WriteString("\n")
	}

	for _, order := range orders {
		ot := times[order.Number]

		line := fmt.Sprintf("#%s  %-12s  %-10s  %s",
			order.Number,
			truncate(order.Type, 12),
			order.Status,
			formatDuration(projection.Elapsed(ot)),
		)

		if ot.IsActive {
			line += activeStyle.Render(fmt.Sprintf("  ● %s", ot.EmployeeName))
		} else {
			line += idleStyle.Render("  idle")
		}

		due := model.DueStatusFor(now, order.DueDate.Time)
		line += "  " + dueStyles[due].Render(string(due))

		sb.WriteString(line)
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(idleStyle.Render("q to quit"))

	return sb.String()
}

func formatDuration(seconds int64) string {
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
