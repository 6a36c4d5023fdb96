package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/airscan/internal/registry"
)

// RenderDeviceTable renders devices as an aligned table in registry order.
func RenderDeviceTable(devices []registry.DeviceRecord) string {
	if len(devices) == 0 {
		return StepPendingStyle.Render("  No devices known. Run: airscan discover")
	}

	nameWidth, kindWidth := len("NAME"), len("KIND")
	for _, d := range devices {
		if w := lipgloss.Width(d.Name); w > nameWidth {
			nameWidth = w
		}
		if w := lipgloss.Width(string(d.Kind)); w > kindWidth {
			kindWidth = w
		}
	}

	cells := func(name, kind, address string) string {
		return fmt.Sprintf("%-*s  %-*s  %s", nameWidth, name, kindWidth, kind, address)
	}

	lines := []string{TableHeaderStyle.Render("    " + cells("NAME", "KIND", "ADDRESS"))}
	for _, d := range devices {
		marker := StepPendingStyle.Render(StepMarkerPending)
		style := StepPendingStyle
		if d.Kind.Scannable() {
			marker = StepCompleteStyle.Render(StepMarkerComplete)
			style = TableCellStyle
		}
		lines = append(lines, "  "+marker+" "+style.Render(cells(d.Name, string(d.Kind), d.Address)))
	}
	return strings.Join(lines, "\n")
}
