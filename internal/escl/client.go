package escl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/muurk/airscan/internal/logging"
	"github.com/muurk/airscan/internal/registry"
)

const (
	// DefaultTimeout is the default per-request HTTP timeout
	DefaultTimeout = 60 * time.Second

	// DefaultWaitDelay is the fixed pause between submit and fetch
	DefaultWaitDelay = 30 * time.Second

	// DefaultFetchRetryDelay is the pause between NextDocument attempts
	DefaultFetchRetryDelay = 2 * time.Second

	// DefaultMaxDocumentSize caps the size of a fetched page
	DefaultMaxDocumentSize = 256 << 20
)

// ErrStatusUnavailable is returned when a device does not serve ScannerStatus.
var ErrStatusUnavailable = errors.New("scanner status unavailable")

// Client drives eSCL scan jobs against devices
type Client struct {
	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// Settings is the scan request sent on submit
	Settings ScanSettings

	// Wait decides when the document can be fetched
	Wait WaitStrategy

	// FetchRetries is the number of extra NextDocument attempts (0 = one attempt)
	FetchRetries int

	// FetchRetryDelay is the pause between NextDocument attempts
	FetchRetryDelay time.Duration

	// MaxDocumentSize bounds the fetched payload
	MaxDocumentSize int64
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client (tests inject fake transports)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

// WithWaitStrategy sets the wait phase strategy
func WithWaitStrategy(w WaitStrategy) Option {
	return func(c *Client) { c.Wait = w }
}

// WithFetchRetries enables bounded NextDocument retries
func WithFetchRetries(retries int, delay time.Duration) Option {
	return func(c *Client) {
		c.FetchRetries = retries
		c.FetchRetryDelay = delay
	}
}

// WithSettings sets the scan request body
func WithSettings(s ScanSettings) Option {
	return func(c *Client) { c.Settings = s }
}

// NewClient creates a client with the default 30 second fixed wait.
func NewClient(opts ...Option) *Client {
	c := &Client{
		HTTPClient:      &http.Client{Timeout: DefaultTimeout},
		Settings:        DefaultSettings(),
		Wait:            FixedDelay{Delay: DefaultWaitDelay},
		FetchRetryDelay: DefaultFetchRetryDelay,
		MaxDocumentSize: DefaultMaxDocumentSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Scan runs a new job against dev on the calling goroutine.
func (c *Client) Scan(ctx context.Context, dev registry.DeviceRecord) (*Document, error) {
	return c.Run(ctx, NewScanJob(dev))
}

// Run executes job through submit, wait and fetch. On return the job is
// in StateCompleted or StateFailed. Devices that are not eSCL fail before any
// network I/O.
func (c *Client) Run(ctx context.Context, job *ScanJob) (doc *Document, err error) {
	dev := job.Device
	defer func() {
		if err != nil {
			job.fail(err)
		}
	}()

	if !dev.Kind.Scannable() || dev.Address == "" {
		return nil, newUnsupportedDeviceError(dev)
	}

	if err := job.advance(StateSubmitting); err != nil {
		return nil, err
	}
	location, err := c.submit(ctx, dev)
	if err != nil {
		return nil, err
	}
	job.Location = location

	if err := job.advance(StatePolling); err != nil {
		return nil, err
	}
	if err := c.waitStrategy().Wait(ctx, job, c); err != nil {
		return nil, err
	}

	if err := job.advance(StateFetching); err != nil {
		return nil, err
	}
	body, contentType, err := c.fetch(ctx, job)
	if err != nil {
		return nil, err
	}

	doc, err = decodeDocument(dev, body, contentType)
	if err != nil {
		return nil, err
	}

	if err := job.advance(StateCompleted); err != nil {
		return nil, err
	}
	logging.Info("Scan completed",
		zap.String("job_id", job.ID.String()),
		zap.String("device", dev.Name),
		zap.String("format", doc.Format),
		zap.Int("bytes", len(doc.Bytes)),
	)
	return doc, nil
}

func (c *Client) waitStrategy() WaitStrategy {
	if c.Wait == nil {
		return FixedDelay{Delay: DefaultWaitDelay}
	}
	return c.Wait
}

// submit creates the job and returns its absolute location.
func (c *Client) submit(ctx context.Context, dev registry.DeviceRecord) (string, error) {
	endpoint := dev.BaseURL() + ScanJobsPath

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(c.Settings.Body()))
	if err != nil {
		return "", newSubmissionError(dev, 0, "failed to create job request", err)
	}
	req.Header.Set("Content-Type", ContentTypeXML)

	logging.LogHTTPRequest(req.Method, endpoint)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", newCanceledError(dev, ctx.Err())
		}
		return "", newSubmissionError(dev, 0, "job request failed", err)
	}
	defer closeBody(resp)
	logging.LogHTTPResponse(req.Method, endpoint, resp.StatusCode)

	if resp.StatusCode != http.StatusCreated {
		return "", newSubmissionError(dev, resp.StatusCode, "device did not create the job", nil)
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return "", newSubmissionError(dev, resp.StatusCode, "device created the job without a Location header", nil)
	}

	ref, err := url.Parse(location)
	if err != nil {
		return "", newSubmissionError(dev, resp.StatusCode, "device returned an invalid job location", err)
	}

	// Some devices answer with a path relative to the scanner root.
	return strings.TrimSuffix(req.URL.ResolveReference(ref).String(), "/"), nil
}

// fetch downloads the next document, retrying up to FetchRetries times for
// responses that mean "not ready yet".
func (c *Client) fetch(ctx context.Context, job *ScanJob) ([]byte, string, error) {
	dev := job.Device
	endpoint := job.Location + NextDocumentPath

	var (
		body        []byte
		contentType string
	)
	operation := func() error {
		b, ct, err := c.fetchOnce(ctx, dev, endpoint)
		if err == nil {
			body, contentType = b, ct
			return nil
		}
		if ctx.Err() != nil || !retryableFetch(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	var policy backoff.BackOff = &backoff.StopBackOff{}
	if c.FetchRetries > 0 {
		policy = backoff.WithMaxRetries(backoff.NewConstantBackOff(c.FetchRetryDelay), uint64(c.FetchRetries))
	}

	notify := func(err error, next time.Duration) {
		logging.Warn("Document not ready, retrying",
			zap.String("job_id", job.ID.String()),
			zap.String("device", dev.Name),
			zap.Int("status_code", StatusCode(err)),
			zap.Duration("retry_in", next),
		)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), notify); err != nil {
		if ctx.Err() != nil {
			return nil, "", newCanceledError(dev, ctx.Err())
		}
		return nil, "", err
	}
	return body, contentType, nil
}

func (c *Client) fetchOnce(ctx context.Context, dev registry.DeviceRecord, endpoint string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", newFetchError(dev, 0, "failed to create document request", err)
	}

	logging.LogHTTPRequest(req.Method, endpoint)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, "", newFetchError(dev, 0, "document request failed", err)
	}
	defer closeBody(resp)
	logging.LogHTTPResponse(req.Method, endpoint, resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		return nil, "", newFetchError(dev, resp.StatusCode, "device did not return the document", nil)
	}

	limit := c.MaxDocumentSize
	if limit <= 0 {
		limit = DefaultMaxDocumentSize
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, "", newFetchError(dev, resp.StatusCode, "failed to read document body", err)
	}
	if int64(len(body)) > limit {
		return nil, "", newFetchError(dev, resp.StatusCode, fmt.Sprintf("document exceeds %d bytes", limit), nil)
	}

	logging.LogRawBytes("Document payload", body)
	return body, resp.Header.Get("Content-Type"), nil
}

// retryableFetch reports whether a NextDocument failure may succeed later:
// transport errors, 404 (not ready on some firmware) and 503 (busy).
func retryableFetch(err error) bool {
	if !IsDocumentFetchFailed(err) {
		return false
	}
	switch StatusCode(err) {
	case 0, http.StatusNotFound, http.StatusServiceUnavailable:
		return true
	default:
		return false
	}
}

// ScannerStatus queries /eSCL/ScannerStatus. Errors wrap ErrStatusUnavailable
// when the device has no usable status endpoint.
func (c *Client) ScannerStatus(ctx context.Context, address string) (*ScannerStatus, error) {
	data, err := c.getXML(ctx, "http://"+address+ScannerStatusPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStatusUnavailable, err)
	}
	status, err := ParseScannerStatus(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStatusUnavailable, err)
	}
	return status, nil
}

// ProbeCapabilities queries /eSCL/ScannerCapabilities. A nil error means the
// device answered with a capabilities document and speaks eSCL.
func (c *Client) ProbeCapabilities(ctx context.Context, address string) (*Capabilities, error) {
	data, err := c.getXML(ctx, "http://"+address+ScannerCapabilitiesPath)
	if err != nil {
		return nil, err
	}
	return ParseCapabilities(data)
}

func (c *Client) getXML(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	logging.LogHTTPRequest(req.Method, endpoint)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s failed: %w", endpoint, err)
	}
	defer closeBody(resp)
	logging.LogHTTPResponse(req.Method, endpoint, resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: unexpected status code: %d", endpoint, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, nil
}

// closeBody drains a little of the body so the connection can be reused.
func closeBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}
