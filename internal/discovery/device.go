package discovery

import (
	"fmt"
	"net"
	"strings"

	"github.com/grandcat/zeroconf"

	"github.com/muurk/airscan/internal/escl"
	"github.com/muurk/airscan/internal/registry"
)

// InstanceName returns the device name carried by an announcement: the text
// before the first '.' of the full service instance name. DNS escapes in the
// label ("HP\ OfficeJet") are removed, and an escaped dot does not end it.
func InstanceName(entry *zeroconf.ServiceEntry) string {
	full := entry.ServiceInstanceName()

	var b strings.Builder
	for i := 0; i < len(full); i++ {
		c := full[i]
		switch {
		case c == '.':
			return b.String()
		case c == '\\' && i+3 < len(full) && isDigit(full[i+1]) && isDigit(full[i+2]) && isDigit(full[i+3]):
			// \DDD decimal escape
			b.WriteByte(byte((full[i+1]-'0')*100 + (full[i+2]-'0')*10 + (full[i+3] - '0')))
			i += 3
		case c == '\\' && i+1 < len(full):
			b.WriteByte(full[i+1])
			i++
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// resolveAddress picks the address to reach an announced service.
// IPv4 is preferred; IPv6 is used only when no IPv4 address was announced.
func resolveAddress(entry *zeroconf.ServiceEntry) (string, error) {
	var host string
	for _, addr := range entry.AddrIPv4 {
		if addr != nil && !addr.IsUnspecified() {
			host = addr.String()
			break
		}
	}

	if host == "" {
		for _, addr := range entry.AddrIPv6 {
			if addr != nil && !addr.IsUnspecified() {
				host = addr.String()
				break
			}
		}
	}

	if host == "" {
		return "", fmt.Errorf("no addresses announced for host %q", entry.HostName)
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}
	return registry.NewAddress(host, port), nil
}

// recordFromEntry converts an announcement to a registry record of the given kind.
func recordFromEntry(entry *zeroconf.ServiceEntry, kind registry.Kind) (registry.DeviceRecord, error) {
	name := InstanceName(entry)
	if name == "" {
		return registry.DeviceRecord{}, escl.NewResolutionError(entry.HostName, fmt.Errorf("announcement has no instance name"))
	}

	address, err := resolveAddress(entry)
	if err != nil {
		return registry.DeviceRecord{}, escl.NewResolutionError(name, err)
	}

	return registry.DeviceRecord{
		Name:    name,
		Kind:    kind,
		Address: address,
	}, nil
}

// txtRecords parses DNS-SD TXT strings ("key=value") into a map.
// Keys without a value map to "".
func txtRecords(text []string) map[string]string {
	metadata := make(map[string]string, len(text))
	for _, txt := range text {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}
	return metadata
}

// isIPv6 reports whether a host:port address carries an IPv6 literal.
func isIPv6(address string) bool {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return false
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.To4() == nil
}
