package ui

import (
	"bytes"
	"context"
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/muurk/airscan/internal/escl"
	"github.com/muurk/airscan/internal/registry"
)

var testDevice = registry.DeviceRecord{Name: "HP_OfficeJet_Pro", Kind: registry.KindESCL, Address: "192.168.1.100:631"}

func TestHeader_Render(t *testing.T) {
	out := NewHeader("Scan", "airscan scan", map[string]string{
		"Device":  "HP",
		"Address": "192.168.1.100:631",
	}).SetWidth(80).Render()

	for _, want := range []string{"SCAN", "airscan scan", "Device:", "192.168.1.100:631"} {
		if !strings.Contains(out, want) {
			t.Errorf("header missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Address:") > strings.Index(out, "Device:") {
		t.Error("parameters not listed in key order")
	}
}

func TestResult_Render(t *testing.T) {
	success := NewSuccessResult("Scan complete", map[string]string{"Size": "10 bytes"}).SetWidth(80).Render()
	if !strings.Contains(success, "SUCCESS") || !strings.Contains(success, "10 bytes") {
		t.Errorf("success box:\n%s", success)
	}

	err := submissionError()
	failure := NewFailureResult("Scan failed", err, Troubleshooting(err)).SetWidth(80).Render()
	if !strings.Contains(failure, "FAILED") || !strings.Contains(failure, "HTTP 500") {
		t.Errorf("failure box:\n%s", failure)
	}
	if !strings.Contains(failure, "Troubleshooting:") {
		t.Errorf("failure box has no troubleshooting:\n%s", failure)
	}
}

func TestTroubleshooting(t *testing.T) {
	if Troubleshooting(nil) != nil {
		t.Error("Troubleshooting(nil) should be nil")
	}
	if tips := Troubleshooting(errors.New("x")); len(tips) == 0 {
		t.Error("generic error has no tips")
	}
}

func TestRenderDeviceTable(t *testing.T) {
	if out := RenderDeviceTable(nil); !strings.Contains(out, "No devices") {
		t.Errorf("empty table = %q", out)
	}

	out := RenderDeviceTable([]registry.DeviceRecord{
		testDevice,
		{Name: "Canon_MX920", Kind: registry.KindWSD, Address: "192.168.1.101:80"},
	})
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want header + 2 rows:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[1], "HP_OfficeJet_Pro") || !strings.Contains(lines[2], "Canon_MX920") {
		t.Errorf("rows out of registry order:\n%s", out)
	}
}

func TestSteps_Observe(t *testing.T) {
	var buf bytes.Buffer
	steps := NewSteps(&buf)

	job := escl.NewScanJob(testDevice)
	for _, st := range []escl.JobState{escl.StateSubmitting, escl.StatePolling, escl.StateFetching, escl.StateCompleted} {
		job.State = st
		steps.Observe(job)
	}

	for i, step := range steps.steps {
		if step.Status != StepComplete {
			t.Errorf("step %d status = %v, want complete", i, step.Status)
		}
	}
	if !strings.Contains(buf.String(), "Downloading document") {
		t.Errorf("output missing phase line:\n%s", buf.String())
	}
}

func TestSteps_Failure(t *testing.T) {
	var buf bytes.Buffer
	steps := NewSteps(&buf)

	job := escl.NewScanJob(testDevice)
	job.State = escl.StateSubmitting
	steps.Observe(job)
	job.State = escl.StateFailed
	steps.Observe(job)

	if steps.steps[0].Status != StepFailed || steps.steps[1].Status != StepPending {
		t.Errorf("steps = %+v", steps.steps)
	}
	if len(steps.Lines()) != 3 {
		t.Errorf("Lines() = %d, want 3", len(steps.Lines()))
	}
}

// phaseRunner walks a job through its phases like the real client.
type phaseRunner struct {
	err error
}

func (r phaseRunner) Run(ctx context.Context, job *escl.ScanJob) (*escl.Document, error) {
	for _, st := range []escl.JobState{escl.StateSubmitting, escl.StatePolling, escl.StateFetching} {
		job.State = st
		job.OnPhase(job)
	}
	if r.err != nil {
		job.State = escl.StateFailed
		job.OnPhase(job)
		return nil, r.err
	}
	job.State = escl.StateCompleted
	job.OnPhase(job)
	return &escl.Document{Bytes: []byte{1, 2, 3}, Format: "jpeg", Image: image.NewGray(image.Rect(0, 0, 4, 3))}, nil
}

func TestScanRunner_Success(t *testing.T) {
	var buf bytes.Buffer
	runner := NewScanRunner(ScanRunnerConfig{Command: "airscan scan", Device: testDevice, Output: &buf}).SetWidth(80)

	save := func(doc *escl.Document) (string, error) { return "/tmp/scan.jpg", nil }
	doc, err := runner.Run(context.Background(), phaseRunner{}, escl.NewScanJob(testDevice), save)
	if err != nil || doc == nil {
		t.Fatalf("Run() = %v, %v", doc, err)
	}

	out := buf.String()
	for _, want := range []string{"SCAN", "HP_OfficeJet_Pro (eSCL)", "4x3 jpeg", "/tmp/scan.jpg", "SUCCESS"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestScanRunner_Failure(t *testing.T) {
	var buf bytes.Buffer
	runner := NewScanRunner(ScanRunnerConfig{Command: "airscan scan", Device: testDevice, Output: &buf}).SetWidth(80)

	wantErr := submissionError()
	_, err := runner.Run(context.Background(), phaseRunner{err: wantErr}, escl.NewScanJob(testDevice), nil)
	if !errors.Is(err, wantErr) {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(buf.String(), "FAILED") {
		t.Errorf("output has no failure box:\n%s", buf.String())
	}
}

func TestScanRunner_SaveError(t *testing.T) {
	var buf bytes.Buffer
	runner := NewScanRunner(ScanRunnerConfig{Device: testDevice, Output: &buf}).SetWidth(80)

	saveErr := errors.New("disk full")
	_, err := runner.Run(context.Background(), phaseRunner{}, escl.NewScanJob(testDevice),
		func(*escl.Document) (string, error) { return "", saveErr })
	if !errors.Is(err, saveErr) {
		t.Errorf("Run() error = %v, want save error", err)
	}
}

// fmtError returns a submission error as the client would produce it.
func submissionError() error {
	srv := &escl.ScanError{Type: escl.ErrTypeJobSubmissionFailed, StatusCode: 500, Device: "HP", Message: "device did not create the job"}
	return srv
}
