package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/airscan/internal/registry"
)

// deviceItem wraps a DeviceRecord for use with bubbles/list
type deviceItem struct {
	device   registry.DeviceRecord
	scanning bool
	manual   bool
}

func (d deviceItem) FilterValue() string {
	return d.device.Name + " " + d.device.Address
}

func (d deviceItem) status() string {
	switch {
	case d.scanning:
		return "Scanning…"
	case !d.device.Kind.Scannable():
		return "Not scannable"
	default:
		return "Ready"
	}
}

// deviceDelegate renders devices as cards
type deviceDelegate struct {
	width int
}

func (d deviceDelegate) Height() int { return 5 }

func (d deviceDelegate) Spacing() int { return 1 }

func (d deviceDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d deviceDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(deviceItem)
	if !ok {
		return
	}
	selected := index == m.Index()

	name := it.device.Name
	if it.manual {
		name = "Manual: " + it.device.Address
	}

	var content strings.Builder
	if selected {
		content.WriteString(SelectedItemStyle.Render("→ " + name))
	} else {
		content.WriteString("  " + name)
	}
	content.WriteString("\n")
	content.WriteString(fmt.Sprintf("  %s • %s\n", it.device.Address, it.device.Kind))

	statusStyle := lipgloss.NewStyle().Foreground(SecondaryColor).Bold(true)
	switch {
	case it.scanning:
		statusStyle = statusStyle.Foreground(WarningColor)
	case !it.device.Kind.Scannable():
		statusStyle = statusStyle.Foreground(SubtleColor)
	}
	content.WriteString("  Status: " + statusStyle.Render(it.status()))

	cardWidth := d.width - 6
	if cardWidth < MinTerminalWidth-6 {
		cardWidth = MinTerminalWidth - 6
	}
	if cardWidth > MaxContentWidth-6 {
		cardWidth = MaxContentWidth - 6
	}

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BorderColor).
		Padding(0, 1).
		MarginLeft(2).
		Width(cardWidth)
	if selected {
		cardStyle = cardStyle.BorderForeground(HighlightColor)
	}

	fmt.Fprint(w, cardStyle.Render(content.String()))
}
