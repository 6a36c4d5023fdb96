package registry

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/airscan/internal/logging"
)

// Registry is the in-memory set of known devices.
type Registry struct {
	store Store

	mu      sync.RWMutex
	records []DeviceRecord
	index   map[Key]int
}

// New creates an empty registry backed by store. A nil store keeps the
// registry memory-only; Load and Save become no-ops.
func New(store Store) *Registry {
	return &Registry{
		store: store,
		index: make(map[Key]int),
	}
}

// Load replaces the in-memory set with the persisted records and returns them.
// A missing store yields an empty set. Duplicate keys in storage keep the first record.
func (r *Registry) Load(ctx context.Context) ([]DeviceRecord, error) {
	if r.store == nil {
		return r.List(), nil
	}

	records, err := r.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load devices: %w", err)
	}

	r.mu.Lock()
	r.records = r.records[:0]
	r.index = make(map[Key]int, len(records))
	for _, rec := range records {
		r.insertLocked(rec)
	}
	r.mu.Unlock()

	logging.Info("Device registry loaded", zap.Int("devices", r.Len()))
	return r.List(), nil
}

// Save overwrites the persisted state with the current set.
func (r *Registry) Save(ctx context.Context) error {
	if r.store == nil {
		return nil
	}

	records := r.List()
	if err := r.store.Save(ctx, records); err != nil {
		return fmt.Errorf("failed to save devices: %w", err)
	}

	logging.Info("Device registry saved", zap.Int("devices", len(records)))
	return nil
}

// Upsert inserts rec if no record shares its (Name, Kind) key and reports
// whether an insertion occurred. Records with an empty name are rejected.
func (r *Registry) Upsert(rec DeviceRecord) bool {
	if rec.Name == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(rec)
}

func (r *Registry) insertLocked(rec DeviceRecord) bool {
	key := rec.Key()
	if _, exists := r.index[key]; exists {
		return false
	}
	r.index[key] = len(r.records)
	r.records = append(r.records, rec)
	return true
}

// Get returns the record stored under (name, kind).
func (r *Registry) Get(name string, kind Kind) (DeviceRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[Key{Name: name, Kind: kind}]
	if !ok {
		return DeviceRecord{}, false
	}
	return r.records[i], true
}

// Find returns the first record named name, preferring a scannable kind.
func (r *Registry) Find(name string) (DeviceRecord, bool) {
	if rec, ok := r.Get(name, KindESCL); ok {
		return rec, true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.records {
		if rec.Name == name {
			return rec, true
		}
	}
	return DeviceRecord{}, false
}

// List returns a copy of the records in insertion order.
func (r *Registry) List() []DeviceRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]DeviceRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Len returns the number of records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
