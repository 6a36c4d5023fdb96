package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/muurk/airscan/internal/escl"
	"github.com/muurk/airscan/internal/registry"
)

// DocumentFileName names a scan after its device and capture time,
// e.g. "HP_OfficeJet_Pro-20240501-101500.jpg".
func DocumentFileName(dev registry.DeviceRecord, doc *escl.Document, at time.Time) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, dev.Name)
	if name == "" {
		name = "scan"
	}
	return fmt.Sprintf("%s-%s%s", name, at.Format("20060102-150405"), doc.Extension())
}

// SaveDocument writes the document bytes under dir and returns the path.
// An empty dir means the current directory.
func SaveDocument(dir string, dev registry.DeviceRecord, doc *escl.Document, at time.Time) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, DocumentFileName(dev, doc, at))
	if err := os.WriteFile(path, doc.Bytes, 0644); err != nil {
		return "", fmt.Errorf("failed to write scan: %w", err)
	}
	return path, nil
}
