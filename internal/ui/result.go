package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/airscan/internal/escl"
)

// ResultType indicates success or failure
type ResultType int

const (
	ResultSuccess ResultType = iota
	ResultFailure
)

// Result is a result box shown at the end of a command
type Result struct {
	Type            ResultType
	Title           string            // e.g., "Scan complete"
	Details         map[string]string // Key-value details, listed in key order
	Error           error             // Failure results only
	Troubleshooting []string          // Failure results only
	Width           int
}

// NewSuccessResult creates a success result box
func NewSuccessResult(title string, details map[string]string) *Result {
	return &Result{
		Type:    ResultSuccess,
		Title:   title,
		Details: details,
		Width:   GetTerminalWidth(),
	}
}

// NewFailureResult creates a failure result box
func NewFailureResult(title string, err error, troubleshooting []string) *Result {
	return &Result{
		Type:            ResultFailure,
		Title:           title,
		Error:           err,
		Troubleshooting: troubleshooting,
		Width:           GetTerminalWidth(),
	}
}

// SetWidth sets the terminal width for responsive rendering
func (r *Result) SetWidth(width int) *Result {
	r.Width = width
	return r
}

// AddDetail adds a detail key-value pair
func (r *Result) AddDetail(key, value string) *Result {
	if r.Details == nil {
		r.Details = make(map[string]string)
	}
	r.Details[key] = value
	return r
}

// Render returns the styled result box
func (r *Result) Render() string {
	width := r.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	lines := []string{""}
	color := SuccessColor

	switch r.Type {
	case ResultFailure:
		color = ErrorColor
		lines = append(lines, ErrorTitleStyle.Render(fmt.Sprintf("   %s  FAILED  ─  %s", FailureMarker, r.Title)), "")
		if r.Error != nil {
			lines = append(lines, ErrorMessageStyle.Render("   "+escl.UserMessage(r.Error)), "")
		}
		if len(r.Troubleshooting) > 0 {
			lines = append(lines, r.renderTroubleshooting(width), "")
		}
	default:
		lines = append(lines, SuccessTitleStyle.Render(fmt.Sprintf("   %s  SUCCESS  ─  %s", SuccessMarker, r.Title)), "")
	}

	if len(r.Details) > 0 {
		for _, key := range sortedKeys(r.Details) {
			lines = append(lines, ResultKeyStyle.Render("   "+key+":")+" "+ResultValueStyle.Render(r.Details[key]))
		}
		lines = append(lines, "")
	}

	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(color).
		Width(width-2).
		Padding(0, 2).
		Render(strings.Join(lines, "\n"))
}

func (r *Result) renderTroubleshooting(width int) string {
	lines := []string{TroubleshootingTitleStyle.Render("Troubleshooting:"), ""}
	for _, tip := range r.Troubleshooting {
		lines = append(lines, TroubleshootingItemStyle.Render("  • "+tip))
	}

	innerWidth := width - 12
	if innerWidth < 40 {
		innerWidth = 40
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MutedColor).
		Width(innerWidth).
		Padding(0, 1).
		MarginLeft(3).
		Render(strings.Join(lines, "\n"))
}

// String implements fmt.Stringer
func (r *Result) String() string {
	return r.Render()
}

// Troubleshooting returns tips for a failed scan.
func Troubleshooting(err error) []string {
	switch {
	case err == nil:
		return nil
	case escl.IsUnsupportedDevice(err):
		return []string{
			"Only devices discovered as eSCL can be scanned",
			"Run: airscan devices",
			"Enable verify_escl in config.yaml to confirm support during discovery",
		}
	case escl.IsJobSubmissionFailed(err):
		return []string{
			"Check the scanner is powered on and not asleep",
			"Make sure nothing is queued on the scanner's front panel",
			"Verify the address with: airscan discover",
		}
	case escl.IsDocumentFetchFailed(err):
		return []string{
			"The scanner may need longer: try --delay 60s or --wait poll",
			"Allow retries with --retries 3",
			"Check a document is on the platen",
		}
	case escl.IsDecodeFailed(err):
		return []string{
			"The scanner returned something other than a JPEG or PNG image",
			"Run with AIRSCAN_LOG_LEVEL=debug to inspect the payload",
		}
	case escl.IsDeviceBusy(err):
		return []string{"Wait for the running scan to finish"}
	default:
		return []string{"Run with AIRSCAN_LOG_LEVEL=debug for details"}
	}
}
