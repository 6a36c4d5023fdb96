package escl

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/muurk/airscan/internal/logging"
	"github.com/muurk/airscan/internal/registry"
)

// JobState is the lifecycle state of a ScanJob
type JobState int

const (
	StateCreated JobState = iota
	StateSubmitting
	StatePolling
	StateFetching
	StateCompleted
	StateFailed
)

// String returns the lowercase state name used in logs
func (s JobState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateSubmitting:
		return "submitting"
	case StatePolling:
		return "polling"
	case StateFetching:
		return "fetching"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("JobState(%d)", int(s))
	}
}

// Terminal reports whether no further transitions are possible
func (s JobState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// ScanJob is the client-side record of one scan invocation. It is never reused.
type ScanJob struct {
	ID        uuid.UUID
	Device    registry.DeviceRecord
	Location  string // Job URL from the device; empty until Submit succeeds
	State     JobState
	Err       error // Set when State is StateFailed
	CreatedAt time.Time

	// OnPhase, if set, is called after every state change on the goroutine
	// running the job.
	OnPhase func(job *ScanJob)
}

// NewScanJob creates a job in StateCreated for dev.
func NewScanJob(dev registry.DeviceRecord) *ScanJob {
	return &ScanJob{
		ID:        uuid.New(),
		Device:    dev,
		State:     StateCreated,
		CreatedAt: time.Now(),
	}
}

// advance moves the job to next. Phases only move forward one step at a time.
func (j *ScanJob) advance(next JobState) error {
	if j.State.Terminal() {
		return fmt.Errorf("scan job %s is %s, cannot move to %s", j.ID, j.State, next)
	}
	if next == StateFailed || next != j.State+1 {
		return fmt.Errorf("scan job %s cannot move from %s to %s", j.ID, j.State, next)
	}

	j.State = next
	logging.LogScanPhase(j.ID.String(), j.Device.Name, next.String())
	j.notify()
	return nil
}

// fail moves a non-terminal job to StateFailed.
func (j *ScanJob) fail(err error) {
	if j.State.Terminal() {
		return
	}
	j.State = StateFailed
	j.Err = err
	logging.LogScanPhase(j.ID.String(), j.Device.Name, StateFailed.String())
	j.notify()
}

func (j *ScanJob) notify() {
	if j.OnPhase != nil {
		j.OnPhase(j)
	}
}
