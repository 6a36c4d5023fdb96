package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/muurk/airscan/internal/config"
	"github.com/muurk/airscan/internal/registry"
)

// resetScanFlags restores the scan flag globals after a test.
func resetScanFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		scanDevice, scanAddress, scanOutput, scanWait = "", "", "", ""
		scanDelay = 0
		scanRetries = -1
	})
}

func seedDevices(t *testing.T, records ...registry.DeviceRecord) {
	t.Helper()
	t.Setenv(config.DirEnvVar, t.TempDir())

	store, err := registry.NewFileStore()
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	if err := store.Save(context.Background(), records); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
}

var (
	hp      = registry.DeviceRecord{Name: "HP_OfficeJet_Pro", Kind: registry.KindESCL, Address: "192.168.1.100:631"}
	canon   = registry.DeviceRecord{Name: "Canon_MF", Kind: registry.KindESCL, Address: "192.168.1.103:80"}
	printer = registry.DeviceRecord{Name: "Laser", Kind: registry.KindIPP, Address: "192.168.1.104:631"}
)

func TestResolveScanDevice(t *testing.T) {
	tests := []struct {
		name    string
		known   []registry.DeviceRecord
		device  string
		address string
		want    registry.DeviceRecord
		wantErr string
	}{
		{
			name:    "address skips the device list",
			address: "10.0.0.5",
			want:    registry.DeviceRecord{Name: "10.0.0.5:631", Kind: registry.KindESCL, Address: "10.0.0.5:631"},
		},
		{
			name:   "by name",
			known:  []registry.DeviceRecord{hp, canon},
			device: "Canon_MF",
			want:   canon,
		},
		{
			name:    "unknown name",
			known:   []registry.DeviceRecord{hp},
			device:  "Epson",
			wantErr: "unknown device",
		},
		{
			name:  "single scannable device",
			known: []registry.DeviceRecord{printer, hp},
			want:  hp,
		},
		{
			name:    "ambiguous",
			known:   []registry.DeviceRecord{hp, canon},
			wantErr: "choose one with --device",
		},
		{
			name:    "nothing scannable",
			known:   []registry.DeviceRecord{printer},
			wantErr: "no eSCL devices known",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetScanFlags(t)
			seedDevices(t, tt.known...)
			scanDevice, scanAddress = tt.device, tt.address

			got, err := resolveScanDevice(context.Background())
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveScanDevice() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("device = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestApplyScanFlags(t *testing.T) {
	resetScanFlags(t)

	cfg := config.Default()
	scanWait, scanDelay, scanRetries = "poll", 45*time.Second, 2
	if err := applyScanFlags(cfg); err != nil {
		t.Fatalf("applyScanFlags() error = %v", err)
	}
	if cfg.Wait.Strategy != config.WaitPoll || cfg.Wait.Delay != 45*time.Second || cfg.FetchRetries != 2 {
		t.Errorf("config = %+v", cfg)
	}

	cfg = config.Default()
	scanWait = "sometime"
	if err := applyScanFlags(cfg); err == nil {
		t.Error("expected an unknown wait strategy to be rejected")
	}
}

func TestApplyScanFlags_DefaultsKept(t *testing.T) {
	resetScanFlags(t)
	scanRetries = -1

	cfg := config.Default()
	cfg.FetchRetries = 4
	if err := applyScanFlags(cfg); err != nil {
		t.Fatalf("applyScanFlags() error = %v", err)
	}
	if cfg.FetchRetries != 4 || cfg.Wait.Strategy != config.WaitFixed || cfg.Wait.Delay != config.DefaultWaitDelay {
		t.Errorf("config = %+v, want preferences unchanged", cfg)
	}
}
