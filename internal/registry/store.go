package registry

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/muurk/airscan/internal/config"
)

// Store is the durable boundary of the registry.
type Store interface {
	Load(ctx context.Context) ([]DeviceRecord, error)
	Save(ctx context.Context, records []DeviceRecord) error
}

// storeVersion is the on-disk document version.
const storeVersion = 1

type document struct {
	Version int            `yaml:"version"`
	Devices []DeviceRecord `yaml:"devices"`
}

// FileStore persists records as a YAML list at Path.
type FileStore struct {
	Path string
}

// NewFileStore returns a store at the default devices path in the config dir.
func NewFileStore() (*FileStore, error) {
	path, err := config.GetDevicesPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get devices path: %w", err)
	}
	return &FileStore{Path: path}, nil
}

// Load reads the persisted records. A missing file yields an empty set.
func (s *FileStore) Load(ctx context.Context) ([]DeviceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return []DeviceRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read device file: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse device file: %w", err)
	}

	// An empty file decodes to version 0 and no devices.
	if doc.Version != storeVersion && !(doc.Version == 0 && len(doc.Devices) == 0) {
		return nil, fmt.Errorf("unsupported device file version: %d (expected %d)", doc.Version, storeVersion)
	}

	if doc.Devices == nil {
		return []DeviceRecord{}, nil
	}
	return doc.Devices, nil
}

// Save overwrites the file with records.
func (s *FileStore) Save(ctx context.Context, records []DeviceRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if records == nil {
		records = []DeviceRecord{}
	}

	data, err := yaml.Marshal(document{Version: storeVersion, Devices: records})
	if err != nil {
		return fmt.Errorf("failed to marshal devices: %w", err)
	}

	return config.WriteFileAtomic(s.Path, data)
}
