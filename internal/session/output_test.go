package session

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/muurk/airscan/internal/escl"
	"github.com/muurk/airscan/internal/registry"
)

func TestDocumentFileName(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 15, 0, 0, time.UTC)

	tests := []struct {
		name   string
		device string
		format string
		want   string
	}{
		{"jpeg", "HP_OfficeJet_Pro", "jpeg", "HP_OfficeJet_Pro-20240501-101500.jpg"},
		{"png", "Brother", "png", "Brother-20240501-101500.png"},
		{"unsafe characters", "EPSON ET/2850 (Office)", "jpeg", "EPSON_ET_2850__Office_-20240501-101500.jpg"},
		{"empty name", "", "jpeg", "scan-20240501-101500.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DocumentFileName(registry.DeviceRecord{Name: tt.device}, &escl.Document{Format: tt.format}, at)
			if got != tt.want {
				t.Errorf("DocumentFileName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSaveDocument(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scans")
	doc := &escl.Document{Bytes: []byte{0xff, 0xd8, 0xff}, Format: "jpeg"}

	path, err := SaveDocument(dir, hp, doc, time.Now())
	if err != nil {
		t.Fatalf("SaveDocument() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !bytes.Equal(data, doc.Bytes) {
		t.Errorf("saved bytes = %v, want %v", data, doc.Bytes)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("path = %s, want it under %s", path, dir)
	}
}
