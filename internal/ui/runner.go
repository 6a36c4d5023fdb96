package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/muurk/airscan/internal/escl"
	"github.com/muurk/airscan/internal/registry"
)

// JobRunner runs a scan job to completion. *escl.Client implements it.
type JobRunner interface {
	Run(ctx context.Context, job *escl.ScanJob) (*escl.Document, error)
}

// ScanRunnerConfig holds what the scan command shows around a job
type ScanRunnerConfig struct {
	Command string            // Full command line for the header
	Device  registry.DeviceRecord
	Params  map[string]string // Extra header parameters (wait strategy, output path)
	Output  io.Writer         // Default: os.Stdout
}

// ScanRunner prints the header, the phase list and the result box for one scan.
type ScanRunner struct {
	config ScanRunnerConfig
	out    io.Writer
	width  int
}

// NewScanRunner creates a runner for one scan
func NewScanRunner(config ScanRunnerConfig) *ScanRunner {
	out := config.Output
	if out == nil {
		out = os.Stdout
	}
	return &ScanRunner{config: config, out: out, width: GetTerminalWidth()}
}

// SetWidth overrides the detected terminal width
func (r *ScanRunner) SetWidth(width int) *ScanRunner {
	r.width = width
	return r
}

// Run executes job on runner. save, if non-nil, is called with the document
// and returns the path it was written to.
func (r *ScanRunner) Run(ctx context.Context, runner JobRunner, job *escl.ScanJob, save func(*escl.Document) (string, error)) (*escl.Document, error) {
	params := map[string]string{
		"Device":  r.config.Device.String(),
		"Address": r.config.Device.Address,
	}
	for k, v := range r.config.Params {
		params[k] = v
	}

	_, _ = fmt.Fprintln(r.out, NewHeader("Scan", r.config.Command, params).SetWidth(r.width).Render())
	_, _ = fmt.Fprintln(r.out)

	steps := NewSteps(r.out)
	previous := job.OnPhase
	job.OnPhase = func(j *escl.ScanJob) {
		steps.Observe(j)
		if previous != nil {
			previous(j)
		}
	}

	started := time.Now()
	doc, err := runner.Run(ctx, job)

	var path string
	if err == nil && save != nil {
		path, err = save(doc)
	}
	duration := time.Since(started)

	_, _ = fmt.Fprintln(r.out)
	if err != nil {
		result := NewFailureResult("Scan failed", err, Troubleshooting(err)).SetWidth(r.width)
		result.AddDetail("Job", job.ID.String())
		_, _ = fmt.Fprintln(r.out, result.Render())
		return nil, err
	}

	result := NewSuccessResult("Scan complete", nil).SetWidth(r.width)
	result.AddDetail("Job", job.ID.String())
	result.AddDetail("Duration", duration.Round(time.Millisecond).String())
	result.AddDetail("Image", fmt.Sprintf("%dx%d %s", doc.Bounds().Dx(), doc.Bounds().Dy(), doc.Format))
	result.AddDetail("Size", fmt.Sprintf("%d bytes", len(doc.Bytes)))
	if path != "" {
		result.AddDetail("Saved to", path)
	}
	_, _ = fmt.Fprintln(r.out, result.Render())
	return doc, nil
}
