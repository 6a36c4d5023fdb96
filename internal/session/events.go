package session

import (
	"github.com/muurk/airscan/internal/escl"
	"github.com/muurk/airscan/internal/registry"
)

// Event is delivered on Session.Events. It is one of DeviceDiscovered,
// ScanFinished or DiscoveryFailed.
type Event interface {
	isEvent()
}

// DeviceDiscovered reports a device newly added to the registry.
type DeviceDiscovered struct {
	Device registry.DeviceRecord
}

// ScanFinished reports the outcome of a scan started through the session.
type ScanFinished struct {
	Outcome escl.Outcome
}

// DiscoveryFailed reports that the background listener stopped with an error.
// Scans of known devices keep working.
type DiscoveryFailed struct {
	Err error
}

func (DeviceDiscovered) isEvent() {}
func (ScanFinished) isEvent()     {}
func (DiscoveryFailed) isEvent()  {}
