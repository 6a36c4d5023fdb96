package escl

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/muurk/airscan/internal/logging"
)

// StatusSource answers ScannerStatus queries. *Client implements it.
type StatusSource interface {
	ScannerStatus(ctx context.Context, address string) (*ScannerStatus, error)
}

// WaitStrategy decides when a submitted job's document can be fetched.
// Implementations block until then and must return promptly when ctx is done.
type WaitStrategy interface {
	Wait(ctx context.Context, job *ScanJob, status StatusSource) error
}

// FixedDelay waits a fixed time without talking to the device.
type FixedDelay struct {
	Delay time.Duration
}

// Wait implements WaitStrategy
func (f FixedDelay) Wait(ctx context.Context, job *ScanJob, _ StatusSource) error {
	logging.Debug("Waiting for document",
		zap.String("job_id", job.ID.String()),
		zap.Duration("delay", f.Delay),
	)
	return sleep(ctx, job, f.Delay)
}

// StatusPoll polls /eSCL/ScannerStatus until the job reports output.
//
// If the first status query fails the device is assumed to lack the endpoint
// and Fallback is used instead. When Timeout elapses without a verdict the
// wait ends and the fetch is attempted anyway.
type StatusPoll struct {
	Interval time.Duration
	Timeout  time.Duration
	MinDelay time.Duration // Always wait at least this long before the first query
	Fallback FixedDelay
}

// Wait implements WaitStrategy
func (p StatusPoll) Wait(ctx context.Context, job *ScanJob, status StatusSource) error {
	if status == nil {
		return p.Fallback.Wait(ctx, job, nil)
	}

	if err := sleep(ctx, job, p.MinDelay); err != nil {
		return err
	}

	pollCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	ticker := backoff.NewTicker(backoff.NewConstantBackOff(p.Interval))
	defer ticker.Stop()

	answered := false
	for {
		select {
		case <-pollCtx.Done():
			return p.expired(ctx, job)
		case _, ok := <-ticker.C:
			if !ok {
				return p.expired(ctx, job)
			}
		}

		st, err := status.ScannerStatus(pollCtx, job.Device.Address)
		if err != nil {
			if !answered && pollCtx.Err() == nil {
				logging.Warn("Scanner status unavailable, using fixed delay",
					zap.String("job_id", job.ID.String()),
					zap.String("device", job.Device.Name),
					zap.Error(err),
				)
				return p.Fallback.Wait(ctx, job, status)
			}
			logging.Debug("Scanner status query failed", zap.Error(err))
			continue
		}
		answered = true

		info, found := st.Job(job.Location)
		if !found {
			logging.Debug("Job not listed in scanner status yet",
				zap.String("job_id", job.ID.String()),
				zap.String("scanner_state", st.State),
			)
			continue
		}

		switch {
		case info.Failed():
			return newFetchError(job.Device, 0,
				fmt.Sprintf("device reports job %s", info.JobState), nil)
		case info.Ready():
			logging.Debug("Document ready",
				zap.String("job_id", job.ID.String()),
				zap.String("job_state", info.JobState),
				zap.Int("images_to_transfer", info.ImagesToTransfer),
			)
			return nil
		}
	}
}

// expired distinguishes caller cancellation from the poll timeout.
func (p StatusPoll) expired(ctx context.Context, job *ScanJob) error {
	if ctx.Err() != nil {
		return newCanceledError(job.Device, ctx.Err())
	}
	logging.Warn("Scanner status poll timed out, fetching anyway",
		zap.String("job_id", job.ID.String()),
		zap.Duration("timeout", p.Timeout),
	)
	return nil
}

func sleep(ctx context.Context, job *ScanJob, d time.Duration) error {
	if d <= 0 {
		if ctx.Err() != nil {
			return newCanceledError(job.Device, ctx.Err())
		}
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return newCanceledError(job.Device, ctx.Err())
	case <-timer.C:
		return nil
	}
}
