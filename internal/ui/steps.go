package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/airscan/internal/escl"
)

// StepStatus is the state of one phase line
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepComplete
	StepFailed
)

// Step is one line in the phase list
type Step struct {
	Name    string
	Status  StepStatus
	Message string // Optional note, e.g. "3.2s"
	started time.Time
}

// scanSteps maps the running job states to phase lines.
var scanSteps = []struct {
	state escl.JobState
	name  string
}{
	{escl.StateSubmitting, "Submitting scan job"},
	{escl.StatePolling, "Waiting for the scanner"},
	{escl.StateFetching, "Downloading document"},
}

// Steps prints scan phases as a job advances. It is driven from the job's
// OnPhase hook and is not safe for concurrent jobs.
type Steps struct {
	out     io.Writer
	steps   []Step
	current int
	now     func() time.Time
}

// NewSteps creates a phase list writing to out.
func NewSteps(out io.Writer) *Steps {
	steps := make([]Step, len(scanSteps))
	for i, s := range scanSteps {
		steps[i] = Step{Name: s.name}
	}
	return &Steps{out: out, steps: steps, current: -1, now: time.Now}
}

// Observe updates the phase list for the job's new state.
func (s *Steps) Observe(job *escl.ScanJob) {
	switch job.State {
	case escl.StateCompleted:
		s.finishCurrent(StepComplete)
	case escl.StateFailed:
		s.finishCurrent(StepFailed)
	default:
		for i, step := range scanSteps {
			if step.state == job.State {
				s.finishCurrent(StepComplete)
				s.start(i)
				return
			}
		}
	}
}

// Lines returns the current phase list, one rendered line per phase.
func (s *Steps) Lines() []string {
	lines := make([]string, len(s.steps))
	for i, step := range s.steps {
		lines[i] = renderStep(i+1, len(s.steps), step)
	}
	return lines
}

func (s *Steps) start(i int) {
	s.current = i
	s.steps[i].Status = StepRunning
	s.steps[i].started = s.now()
	_, _ = fmt.Fprint(s.out, renderStep(i+1, len(s.steps), s.steps[i])+"\r")
}

func (s *Steps) finishCurrent(status StepStatus) {
	if s.current < 0 || s.steps[s.current].Status != StepRunning {
		return
	}
	step := &s.steps[s.current]
	step.Status = status
	step.Message = s.now().Sub(step.started).Round(100 * time.Millisecond).String()
	_, _ = fmt.Fprintln(s.out, renderStep(s.current+1, len(s.steps), *step))
}

func renderStep(number, total int, step Step) string {
	var marker string
	var style lipgloss.Style

	switch step.Status {
	case StepComplete:
		marker, style = StepMarkerComplete, StepCompleteStyle
	case StepRunning:
		marker, style = StepMarkerRunning, StepRunningStyle
	case StepFailed:
		marker, style = FailureMarker, ErrorTitleStyle
	default:
		marker, style = StepMarkerPending, StepPendingStyle
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("  [%d/%d] ", number, total))
	b.WriteString(style.Render(step.Name))

	padding := 32 - lipgloss.Width(step.Name)
	if padding < 1 {
		padding = 1
	}
	b.WriteString(strings.Repeat(" ", padding))
	b.WriteString(style.Render(marker))

	if step.Message != "" {
		b.WriteString("  ")
		b.WriteString(StepNoteStyle.Render("(" + step.Message + ")"))
	}
	return b.String()
}
