package discovery

import (
	"net"
	"testing"

	"github.com/grandcat/zeroconf"

	"github.com/muurk/airscan/internal/escl"
	"github.com/muurk/airscan/internal/registry"
)

func newEntry(instance string, port int, ipv4, ipv6 []string) *zeroconf.ServiceEntry {
	entry := zeroconf.NewServiceEntry(instance, ServiceType, "local")
	entry.HostName = instance + ".local."
	entry.Port = port
	entry.TTL = 120
	for _, ip := range ipv4 {
		entry.AddrIPv4 = append(entry.AddrIPv4, net.ParseIP(ip))
	}
	for _, ip := range ipv6 {
		entry.AddrIPv6 = append(entry.AddrIPv6, net.ParseIP(ip))
	}
	return entry
}

func TestInstanceName(t *testing.T) {
	tests := []struct {
		name     string
		instance string
		want     string
	}{
		{"plain", "HP_OfficeJet_Pro", "HP_OfficeJet_Pro"},
		{"spaces kept", "Brother MFC-L2750DW", "Brother MFC-L2750DW"},
		{"truncated at dot", "EPSON ET-2850.Office", "EPSON ET-2850"},
		{"escaped spaces", `HP\ OfficeJet\ Pro`, "HP OfficeJet Pro"},
		{"escaped dot", `Lab\.Scanner`, "Lab.Scanner"},
		{"decimal escape", `Caf\233`, "Caf\xe9"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := newEntry(tt.instance, 631, nil, nil)
			if got := InstanceName(entry); got != tt.want {
				t.Errorf("InstanceName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecordFromEntry(t *testing.T) {
	tests := []struct {
		name        string
		entry       *zeroconf.ServiceEntry
		wantAddress string
		wantErr     bool
	}{
		{
			name:        "IPv4",
			entry:       newEntry("HP_OfficeJet_Pro", 631, []string{"192.168.1.100"}, nil),
			wantAddress: "192.168.1.100:631",
		},
		{
			name:        "IPv4 preferred over IPv6",
			entry:       newEntry("HP", 8080, []string{"10.0.0.5"}, []string{"fe80::1"}),
			wantAddress: "10.0.0.5:8080",
		},
		{
			name:        "IPv6 fallback is bracketed",
			entry:       newEntry("HP", 631, nil, []string{"fe80::1"}),
			wantAddress: "[fe80::1]:631",
		},
		{
			name:        "missing port defaults to 631",
			entry:       newEntry("HP", 0, []string{"172.16.0.1"}, nil),
			wantAddress: "172.16.0.1:631",
		},
		{
			name:    "no addresses",
			entry:   newEntry("HP", 631, nil, nil),
			wantErr: true,
		},
		{
			name:    "no instance name",
			entry:   newEntry("", 631, []string{"192.168.1.1"}, nil),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := recordFromEntry(tt.entry, registry.KindESCL)
			if tt.wantErr {
				if !escl.IsDiscoveryResolutionFailed(err) {
					t.Fatalf("error = %v, want DiscoveryResolutionFailed", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("recordFromEntry() error = %v", err)
			}
			if rec.Address != tt.wantAddress {
				t.Errorf("Address = %s, want %s", rec.Address, tt.wantAddress)
			}
			if rec.Kind != registry.KindESCL {
				t.Errorf("Kind = %s, want eSCL", rec.Kind)
			}
		})
	}
}

func TestTxtRecords(t *testing.T) {
	got := txtRecords([]string{"ty=HP OfficeJet Pro 8020", "rs=ipp/print", "Scan=T", "flag", "url=http://a/b?c=d"})

	want := map[string]string{
		"ty":   "HP OfficeJet Pro 8020",
		"rs":   "ipp/print",
		"Scan": "T",
		"flag": "",
		"url":  "http://a/b?c=d",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("txt[%q] = %q, want %q", k, got[k], v)
		}
	}
}

func TestIsIPv6(t *testing.T) {
	if !isIPv6("[fe80::1]:631") {
		t.Error("isIPv6([fe80::1]:631) = false")
	}
	if isIPv6("192.168.1.1:631") || isIPv6("garbage") {
		t.Error("isIPv6 matched a non-IPv6 address")
	}
}
