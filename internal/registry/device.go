package registry

import (
	"fmt"
	"net"
	"strings"
)

// Kind is the protocol family a device was discovered under.
type Kind string

const (
	// KindESCL devices accept eSCL scan jobs.
	KindESCL Kind = "eSCL"
	// KindIPP devices announced IPP but did not confirm eSCL support.
	KindIPP Kind = "IPP"
	// KindWSD devices speak Web Services for Devices; listed, never scanned.
	KindWSD Kind = "WSD"
)

// Scannable reports whether the scan client can drive devices of this kind.
func (k Kind) Scannable() bool {
	return k == KindESCL
}

// DeviceRecord is a known device.
type DeviceRecord struct {
	Name    string `yaml:"name"`
	Kind    Kind   `yaml:"kind"`
	Address string `yaml:"address"` // host:port
}

// Key identifies a record in the registry.
type Key struct {
	Name string
	Kind Kind
}

// Key returns the registry key of the record.
func (d DeviceRecord) Key() Key {
	return Key{Name: d.Name, Kind: d.Kind}
}

// String returns a human-readable representation, e.g. "HP_OfficeJet_Pro (eSCL)".
func (d DeviceRecord) String() string {
	return fmt.Sprintf("%s (%s)", d.Name, d.Kind)
}

// BaseURL returns the HTTP base URL for the device.
func (d DeviceRecord) BaseURL() string {
	return "http://" + d.Address
}

// NewAddress joins a host and port, bracketing IPv6 literals.
func NewAddress(host string, port int) string {
	return net.JoinHostPort(host, fmt.Sprintf("%d", port))
}

// ParseAddress normalizes a user-supplied "host" or "host:port", adding
// defaultPort when no port is given. IPv6 literals may be bare or bracketed.
func ParseAddress(value string, defaultPort int) string {
	if _, _, err := net.SplitHostPort(value); err == nil {
		return value
	}
	return NewAddress(strings.Trim(value, "[]"), defaultPort)
}
