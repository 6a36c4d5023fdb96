// Package discovery finds network scanners over mDNS/DNS-SD.
//
// A Listener browses for service announcements (by default "_ipp._tcp" in
// "local.") and records every resolvable device in a registry.Registry. The
// registry deduplicates on (name, kind), so repeated announcements of the same
// device are ignored, even when they carry a new address.
//
// # Usage Example
//
//	reg := registry.New(nil)
//	listener := discovery.NewListener(reg)
//	listener.OnDiscovered = func(dev registry.DeviceRecord) {
//	    fmt.Printf("Found: %s at %s\n", dev.Name, dev.Address)
//	}
//	_ = listener.Run(ctx) // blocks until ctx is done
//
// For a one-shot scan of the network use Discover, which returns the devices
// newly added during the window.
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Devices must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
