package escl

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"syscall"

	"github.com/muurk/airscan/internal/registry"
)

// ErrorType represents the category of a scan failure
type ErrorType int

const (
	// ErrTypeUnsupportedDevice indicates the device kind cannot be scanned over eSCL
	ErrTypeUnsupportedDevice ErrorType = iota
	// ErrTypeJobSubmissionFailed indicates the device did not accept the scan job
	ErrTypeJobSubmissionFailed
	// ErrTypeDocumentFetchFailed indicates the job existed but its document could not be retrieved
	ErrTypeDocumentFetchFailed
	// ErrTypeDecodeFailed indicates the payload is not a decodable image
	ErrTypeDecodeFailed
	// ErrTypeDiscoveryResolutionFailed indicates an announcement could not be resolved to an address
	ErrTypeDiscoveryResolutionFailed
	// ErrTypeDeviceBusy indicates a scan is already in flight for the device
	ErrTypeDeviceBusy
	// ErrTypeCanceled indicates the scan was canceled before it finished
	ErrTypeCanceled
	// ErrTypeInternal indicates an unexpected failure inside the worker
	ErrTypeInternal
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeUnsupportedDevice:
		return "Unsupported Device"
	case ErrTypeJobSubmissionFailed:
		return "Job Submission Failed"
	case ErrTypeDocumentFetchFailed:
		return "Document Fetch Failed"
	case ErrTypeDecodeFailed:
		return "Decode Failed"
	case ErrTypeDiscoveryResolutionFailed:
		return "Discovery Resolution Failed"
	case ErrTypeDeviceBusy:
		return "Device Busy"
	case ErrTypeCanceled:
		return "Canceled"
	case ErrTypeInternal:
		return "Internal Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// ScanError is the classified error produced by the scan client.
type ScanError struct {
	Type       ErrorType // Category of error
	StatusCode int       // HTTP status code (0 when no response was received)
	Device     string    // Device name, for context
	Message    string    // Human-readable detail
	Err        error     // Underlying error (if any)
}

// Error implements the error interface
func (e *ScanError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s (caused by: %v)", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection
func (e *ScanError) Unwrap() error {
	return e.Err
}

func newUnsupportedDeviceError(dev registry.DeviceRecord) *ScanError {
	msg := fmt.Sprintf("device %q is %s, only eSCL devices can be scanned", dev.Name, dev.Kind)
	if dev.Kind.Scannable() && dev.Address == "" {
		msg = fmt.Sprintf("device %q has no address", dev.Name)
	}
	return &ScanError{
		Type:    ErrTypeUnsupportedDevice,
		Device:  dev.Name,
		Message: msg,
	}
}

func newSubmissionError(dev registry.DeviceRecord, statusCode int, message string, err error) *ScanError {
	return &ScanError{
		Type:       ErrTypeJobSubmissionFailed,
		StatusCode: statusCode,
		Device:     dev.Name,
		Message:    message,
		Err:        err,
	}
}

func newFetchError(dev registry.DeviceRecord, statusCode int, message string, err error) *ScanError {
	return &ScanError{
		Type:       ErrTypeDocumentFetchFailed,
		StatusCode: statusCode,
		Device:     dev.Name,
		Message:    message,
		Err:        err,
	}
}

func newDecodeError(dev registry.DeviceRecord, err error) *ScanError {
	return &ScanError{
		Type:    ErrTypeDecodeFailed,
		Device:  dev.Name,
		Message: "payload is not a decodable image",
		Err:     err,
	}
}

func newBusyError(dev registry.DeviceRecord) *ScanError {
	return &ScanError{
		Type:    ErrTypeDeviceBusy,
		Device:  dev.Name,
		Message: fmt.Sprintf("a scan is already running on %q", dev.Name),
	}
}

func newCanceledError(dev registry.DeviceRecord, err error) *ScanError {
	return &ScanError{
		Type:    ErrTypeCanceled,
		Device:  dev.Name,
		Message: "scan canceled",
		Err:     err,
	}
}

// NewResolutionError reports a service announcement that could not be
// resolved to a usable address. Discovery logs these and keeps running.
func NewResolutionError(instance string, err error) *ScanError {
	return &ScanError{
		Type:    ErrTypeDiscoveryResolutionFailed,
		Device:  instance,
		Message: fmt.Sprintf("could not resolve %q", instance),
		Err:     err,
	}
}

func errorType(err error) (ErrorType, bool) {
	var scanErr *ScanError
	if errors.As(err, &scanErr) {
		return scanErr.Type, true
	}
	return 0, false
}

func isType(err error, et ErrorType) bool {
	t, ok := errorType(err)
	return ok && t == et
}

// IsUnsupportedDevice checks if an error reports a non-eSCL device
func IsUnsupportedDevice(err error) bool { return isType(err, ErrTypeUnsupportedDevice) }

// IsJobSubmissionFailed checks if an error reports a rejected scan job
func IsJobSubmissionFailed(err error) bool { return isType(err, ErrTypeJobSubmissionFailed) }

// IsDocumentFetchFailed checks if an error reports a failed document download
func IsDocumentFetchFailed(err error) bool { return isType(err, ErrTypeDocumentFetchFailed) }

// IsDecodeFailed checks if an error reports an undecodable payload
func IsDecodeFailed(err error) bool { return isType(err, ErrTypeDecodeFailed) }

// IsDiscoveryResolutionFailed checks if an error reports an unresolved announcement
func IsDiscoveryResolutionFailed(err error) bool { return isType(err, ErrTypeDiscoveryResolutionFailed) }

// IsDeviceBusy checks if an error reports a rejected concurrent scan
func IsDeviceBusy(err error) bool { return isType(err, ErrTypeDeviceBusy) }

// IsCanceled checks if an error reports a canceled scan
func IsCanceled(err error) bool { return isType(err, ErrTypeCanceled) }

// StatusCode returns the HTTP status carried by a scan error, or 0.
func StatusCode(err error) int {
	var scanErr *ScanError
	if errors.As(err, &scanErr) {
		return scanErr.StatusCode
	}
	return 0
}

// transportProblem names the network-level cause of err, or "" if it is not
// a recognizable transport failure.
func transportProblem(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return "timed out"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "hostname could not be resolved"
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch {
		case errors.Is(opErr.Err, syscall.ECONNREFUSED):
			return "connection refused"
		case errors.Is(opErr.Err, syscall.EHOSTUNREACH):
			return "host unreachable"
		case errors.Is(opErr.Err, syscall.ENETUNREACH):
			return "network unreachable"
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if p := transportProblem(urlErr.Err); p != "" {
			return p
		}
		return "network error"
	}

	return ""
}

// UserMessage returns a concise, user-displayable message for a scan error
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var scanErr *ScanError
	if !errors.As(err, &scanErr) {
		return err.Error()
	}

	switch scanErr.Type {
	case ErrTypeUnsupportedDevice:
		return "The selected device does not support eSCL scanning"
	case ErrTypeJobSubmissionFailed:
		if p := transportProblem(scanErr.Err); p != "" {
			return fmt.Sprintf("Could not reach the scanner (%s)", p)
		}
		if scanErr.StatusCode == http.StatusServiceUnavailable {
			return "The scanner is busy - try again shortly"
		}
		return fmt.Sprintf("The scanner rejected the scan job (HTTP %d)", scanErr.StatusCode)
	case ErrTypeDocumentFetchFailed:
		if p := transportProblem(scanErr.Err); p != "" {
			return fmt.Sprintf("Lost contact with the scanner (%s)", p)
		}
		if scanErr.StatusCode == 0 {
			return "The scanner did not produce a document: " + scanErr.Message
		}
		return fmt.Sprintf("Could not download the scanned document (HTTP %d)", scanErr.StatusCode)
	case ErrTypeDecodeFailed:
		return "The scanner returned data that is not a readable image"
	case ErrTypeDeviceBusy:
		return "A scan is already running on this device"
	case ErrTypeCanceled:
		return "Scan canceled"
	default:
		return scanErr.Message
	}
}
