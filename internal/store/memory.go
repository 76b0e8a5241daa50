package store

import (
	"sort"

	"github.com/audienze/audienze/internal/recording"
)

// MemoryMetadataStore keeps the metadata array in memory. Used by tests and
// available as an ephemeral backing.
type MemoryMetadataStore struct {
	records []recording.Metadata
}

func NewMemoryMetadataStore() *MemoryMetadataStore {
	return &MemoryMetadataStore{}
}

func (s *MemoryMetadataStore) Load() ([]recording.Metadata, error) {
	out := make([]recording.Metadata, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *MemoryMetadataStore) Store(records []recording.Metadata) error {
	s.records = make([]recording.Metadata, len(records))
	copy(s.records, records)
	return nil
}

// MemoryBlobStore keeps audio payloads in a map.
type MemoryBlobStore struct {
	blobs map[string][]byte
}

func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{blobs: make(map[string][]byte)}
}

func (s *MemoryBlobStore) Put(id string, data []byte) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	s.blobs[id] = buf
	return nil
}

func (s *MemoryBlobStore) Get(id string) ([]byte, error) {
	data, ok := s.blobs[id]
	if !ok {
		return nil, ErrBlobMissing
	}
	return data, nil
}

func (s *MemoryBlobStore) Delete(id string) error {
	delete(s.blobs, id)
	return nil
}

func (s *MemoryBlobStore) Keys() ([]string, error) {
	keys := make([]string, 0, len(s.blobs))
	for id := range s.blobs {
		keys = append(keys, id)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MemoryBlobStore) Clear() error {
	s.blobs = make(map[string][]byte)
	return nil
}
