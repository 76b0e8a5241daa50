// Package store implements the dual-store persistence layer: a bounded,
// ordered metadata list kept under a well-known key, and a keyed blob store
// holding raw audio payloads. The Manager is the single point of truth for
// consistency between the two: every blob key must be a member of the
// current metadata ID set after any mutating operation.
package store

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/audienze/audienze/internal/recording"
)

// DefaultRetention is the metadata store capacity: the N most recent
// recordings are kept, oldest evicted first.
const DefaultRetention = 20

// MetadataKey is the well-known key the serialized metadata array lives
// under.
const MetadataKey = "recordings"

var (
	// ErrNotFound means no metadata record exists for the requested ID.
	ErrNotFound = errors.New("recording not found")

	// ErrBlobMissing means the metadata record exists but its audio payload
	// is absent from the blob store. Playback-time failure, not a structural
	// violation.
	ErrBlobMissing = errors.New("audio not found for recording")
)

// MetadataStore persists the ordered metadata array as a single unit.
type MetadataStore interface {
	Load() ([]recording.Metadata, error)
	Store(records []recording.Metadata) error
}

// BlobStore is the narrow byte-store interface keyed by recording ID,
// swappable between in-memory and embedded-database backings.
type BlobStore interface {
	Put(id string, data []byte) error
	// Get returns ErrBlobMissing when no blob exists under id.
	Get(id string) ([]byte, error)
	// Delete is idempotent; deleting an absent key is not an error.
	Delete(id string) error
	Keys() ([]string, error)
	Clear() error
}

// Manager couples the two stores and owns the retention/eviction policy.
// All mutating operations are serialized behind one mutex; no other code
// path may write either store directly.
type Manager struct {
	mu        sync.Mutex
	meta      MetadataStore
	blobs     BlobStore
	retention int
	log       *zap.SugaredLogger
}

// NewManager builds a Manager over the given store pair. A nil logger is
// replaced with a nop logger.
func NewManager(meta MetadataStore, blobs BlobStore, log *zap.SugaredLogger) *Manager {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Manager{
		meta:      meta,
		blobs:     blobs,
		retention: DefaultRetention,
		log:       log,
	}
}

// SetRetention overrides the metadata capacity. Intended for tests and
// configuration wiring before first use.
func (m *Manager) SetRetention(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > 0 {
		m.retention = n
	}
}

// Save appends the recording's metadata, stores its audio payload if
// present, truncates the metadata list to the retention bound, then sweeps
// the blob store so no blob outlives its metadata. A failed blob write
// degrades playback only and is logged, not propagated; a failed sweep is
// fatal to the save.
func (m *Manager) Save(rec recording.Recording, payload []byte) (recording.Recording, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records, err := m.meta.Load()
	if err != nil {
		return rec, fmt.Errorf("save: load metadata: %w", err)
	}
	records = append(records, rec.Metadata())

	if len(payload) > 0 {
		if err := m.blobs.Put(rec.ID, payload); err != nil {
			// The transcript/metrics record still goes through; the
			// recording just won't have playback.
			m.log.Warnw("audio blob write failed", "id", rec.ID, "error", err)
		}
	}

	if len(records) > m.retention {
		records = records[len(records)-m.retention:]
	}

	if err := m.meta.Store(records); err != nil {
		return rec, fmt.Errorf("save: store metadata: %w", err)
	}

	if err := m.sweep(records); err != nil {
		return rec, fmt.Errorf("save: %w", err)
	}

	return rec, nil
}

// sweep deletes every blob whose ID is not in the retained metadata set.
// Callers must hold the mutex.
func (m *Manager) sweep(records []recording.Metadata) error {
	keep := make(map[string]bool, len(records))
	for _, r := range records {
		keep[r.ID] = true
	}

	keys, err := m.blobs.Keys()
	if err != nil {
		return fmt.Errorf("eviction sweep: list blobs: %w", err)
	}
	for _, id := range keys {
		if keep[id] {
			continue
		}
		if err := m.blobs.Delete(id); err != nil {
			return fmt.Errorf("eviction sweep: delete blob %s: %w", id, err)
		}
	}
	return nil
}

// LoadAll reconstructs every persisted recording in stored order, oldest
// first.
func (m *Manager) LoadAll() ([]recording.Recording, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records, err := m.meta.Load()
	if err != nil {
		return nil, fmt.Errorf("load recordings: %w", err)
	}

	recs := make([]recording.Recording, len(records))
	for i, md := range records {
		recs[i] = recording.FromMetadata(md)
	}
	return recs, nil
}

// LoadAudio returns the audio payload for a known recording. It fails with
// ErrNotFound when no metadata exists for the ID, and with ErrBlobMissing
// when metadata exists but the blob does not.
func (m *Manager) LoadAudio(id string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records, err := m.meta.Load()
	if err != nil {
		return nil, fmt.Errorf("load audio: load metadata: %w", err)
	}
	known := false
	for _, r := range records {
		if r.ID == id {
			known = true
			break
		}
	}
	if !known {
		return nil, ErrNotFound
	}

	data, err := m.blobs.Get(id)
	if err != nil {
		if errors.Is(err, ErrBlobMissing) {
			return nil, ErrBlobMissing
		}
		return nil, fmt.Errorf("load audio %s: %w", id, err)
	}
	return data, nil
}

// DeleteOne removes the metadata record and its blob. The blob side is
// best-effort; a missing blob is not an error.
func (m *Manager) DeleteOne(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	records, err := m.meta.Load()
	if err != nil {
		return fmt.Errorf("delete recording: load metadata: %w", err)
	}

	kept := records[:0]
	for _, r := range records {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	if err := m.meta.Store(kept); err != nil {
		return fmt.Errorf("delete recording: store metadata: %w", err)
	}

	if err := m.blobs.Delete(id); err != nil {
		m.log.Warnw("audio blob delete failed", "id", id, "error", err)
	}
	return nil
}

// ClearAll empties both stores unconditionally. Irreversible.
func (m *Manager) ClearAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.meta.Store(nil); err != nil {
		return fmt.Errorf("clear recordings: %w", err)
	}
	if err := m.blobs.Clear(); err != nil {
		return fmt.Errorf("clear audio blobs: %w", err)
	}
	return nil
}
