package escl

import (
	"errors"
	"testing"
)

func TestScanJob_Advance(t *testing.T) {
	job := NewScanJob(testDevice)
	if job.State != StateCreated {
		t.Fatalf("initial State = %s, want created", job.State)
	}

	for _, next := range []JobState{StateSubmitting, StatePolling, StateFetching, StateCompleted} {
		if err := job.advance(next); err != nil {
			t.Fatalf("advance(%s) error = %v", next, err)
		}
	}
	if !job.State.Terminal() {
		t.Errorf("State %s should be terminal", job.State)
	}
}

func TestScanJob_AdvanceRejectsSkips(t *testing.T) {
	tests := []struct {
		name string
		from JobState
		to   JobState
	}{
		{"skip submit", StateCreated, StatePolling},
		{"fetch before poll", StateSubmitting, StateFetching},
		{"backwards", StateFetching, StatePolling},
		{"same state", StatePolling, StatePolling},
		{"advance to failed", StateFetching, StateFailed},
		{"out of completed", StateCompleted, StateFailed},
		{"out of failed", StateFailed, StateCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewScanJob(testDevice)
			job.State = tt.from
			if err := job.advance(tt.to); err == nil {
				t.Errorf("advance(%s -> %s) error = nil", tt.from, tt.to)
			}
			if job.State != tt.from {
				t.Errorf("State = %s, want unchanged %s", job.State, tt.from)
			}
		})
	}
}

func TestScanJob_Fail(t *testing.T) {
	job := NewScanJob(testDevice)
	_ = job.advance(StateSubmitting)

	cause := errors.New("boom")
	job.fail(cause)
	if job.State != StateFailed || job.Err != cause {
		t.Fatalf("State = %s, Err = %v", job.State, job.Err)
	}

	// Terminal jobs keep their first error.
	job.fail(errors.New("second"))
	if job.Err != cause {
		t.Errorf("Err = %v, want first error kept", job.Err)
	}
}

func TestNewScanJob_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewScanJob(testDevice).ID.String()
		if seen[id] {
			t.Fatalf("duplicate job ID %s", id)
		}
		seen[id] = true
	}
}

func TestJobState_String(t *testing.T) {
	if got := JobState(99).String(); got != "JobState(99)" {
		t.Errorf("String() = %q", got)
	}
	if got := StateFetching.String(); got != "fetching" {
		t.Errorf("String() = %q", got)
	}
}

func TestScanJob_OnPhase(t *testing.T) {
	job := NewScanJob(testDevice)

	var seen []JobState
	job.OnPhase = func(j *ScanJob) { seen = append(seen, j.State) }

	_ = job.advance(StateSubmitting)
	_ = job.advance(StateFetching) // rejected, not reported
	job.fail(errors.New("boom"))

	want := []JobState{StateSubmitting, StateFailed}
	if len(seen) != len(want) || seen[0] != want[0] || seen[1] != want[1] {
		t.Errorf("phases = %v, want %v", seen, want)
	}
}
