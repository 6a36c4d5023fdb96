package escl

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/airscan/internal/logging"
	"github.com/muurk/airscan/internal/registry"
)

// Runner executes one scan job to completion. *Client implements it.
type Runner interface {
	Run(ctx context.Context, job *ScanJob) (*Document, error)
}

// Outcome is the terminal result of one scan job: exactly one of Document
// and Err is set.
type Outcome struct {
	JobID    uuid.UUID
	Device   registry.DeviceRecord
	Document *Document
	Err      error
	Elapsed  time.Duration
}

// OK reports whether the scan produced a document.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Executor runs scan jobs off the caller's goroutine.
//
// At most one job is in flight per device; Start rejects a second request
// for a busy device with a DeviceBusy error. Every accepted job delivers
// exactly one Outcome on the sink, which the owner must keep draining until
// Shutdown. The executor only holds the send side of the sink.
type Executor struct {
	runner Runner
	sink   chan<- Outcome

	mu       sync.Mutex
	inflight map[registry.Key]uuid.UUID
	closed   bool

	wg   sync.WaitGroup
	done chan struct{}
}

// NewExecutor creates an executor delivering outcomes to sink.
func NewExecutor(runner Runner, sink chan<- Outcome) *Executor {
	return &Executor{
		runner:   runner,
		sink:     sink,
		inflight: make(map[registry.Key]uuid.UUID),
		done:     make(chan struct{}),
	}
}

// Start launches a scan of dev and returns its job ID without waiting for it.
func (e *Executor) Start(ctx context.Context, dev registry.DeviceRecord) (uuid.UUID, error) {
	job := NewScanJob(dev)
	key := dev.Key()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return uuid.Nil, newCanceledError(dev, fmt.Errorf("executor is shut down"))
	}
	if running, busy := e.inflight[key]; busy {
		e.mu.Unlock()
		logging.Warn("Scan rejected, device busy",
			zap.String("device", dev.Name),
			zap.String("running_job_id", running.String()),
		)
		return uuid.Nil, newBusyError(dev)
	}
	e.inflight[key] = job.ID
	e.wg.Add(1)
	e.mu.Unlock()

	go e.run(ctx, job)
	return job.ID, nil
}

// InFlight reports whether a job is running for dev.
func (e *Executor) InFlight(dev registry.DeviceRecord) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, busy := e.inflight[dev.Key()]
	return busy
}

// Shutdown stops accepting jobs and waits for running ones to finish.
// Outcomes that cannot be delivered after Shutdown begins are dropped.
// Cancel the contexts passed to Start first to make running jobs return promptly.
func (e *Executor) Shutdown() {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.done)
	}
	e.mu.Unlock()

	e.wg.Wait()
}

func (e *Executor) run(ctx context.Context, job *ScanJob) {
	defer e.wg.Done()

	started := time.Now()
	doc, err := e.execute(ctx, job)

	e.mu.Lock()
	delete(e.inflight, job.Device.Key())
	e.mu.Unlock()

	outcome := Outcome{
		JobID:    job.ID,
		Device:   job.Device,
		Document: doc,
		Err:      err,
		Elapsed:  time.Since(started),
	}
	if err != nil {
		outcome.Document = nil
		logging.Error("Scan failed",
			zap.String("job_id", job.ID.String()),
			zap.String("device", job.Device.Name),
			zap.Error(err),
		)
	}

	select {
	case e.sink <- outcome:
	case <-e.done:
		logging.Warn("Scan outcome dropped during shutdown",
			zap.String("job_id", job.ID.String()),
			zap.String("device", job.Device.Name),
		)
	}
}

// execute converts a panic in the runner into a classified error so nothing
// crosses the worker boundary unconverted.
func (e *Executor) execute(ctx context.Context, job *ScanJob) (doc *Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Scan worker panicked",
				zap.String("job_id", job.ID.String()),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			job.fail(nil)
			doc = nil
			err = &ScanError{
				Type:    ErrTypeInternal,
				Device:  job.Device.Name,
				Message: fmt.Sprintf("scan worker panicked: %v", r),
			}
		}
	}()

	doc, err = e.runner.Run(ctx, job)
	if err == nil && doc == nil {
		err = newFetchError(job.Device, 0, "scan finished without a document", nil)
	}
	return doc, err
}
