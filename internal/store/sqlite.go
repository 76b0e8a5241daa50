package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/audienze/audienze/internal/recording"
)

// DB wraps the SQLite database that backs both stores. The metadata array
// lives in a kv table mirroring the "single serialized array under a
// well-known key" layout; audio bytes live one row per recording in blobs.
type DB struct {
	db *sql.DB
}

// DefaultDBPath returns the default database location under the user config
// directory.
func DefaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "audienze", "audienze.sqlite")
}

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS blobs (
	id   TEXT PRIMARY KEY,
	data BLOB NOT NULL
);
`

// Open opens (creating if necessary) the database in read-write mode with
// WAL and ensures the schema exists.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single connection: the store pair is single-writer-at-a-time, and a
	// pooled :memory: database would otherwise be one database per
	// connection.
	db.SetMaxOpenConns(1)

	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// MetadataStore returns the kv-backed metadata store.
func (d *DB) MetadataStore() MetadataStore {
	return &sqliteMetadataStore{db: d.db}
}

// BlobStore returns the blobs-table-backed blob store.
func (d *DB) BlobStore() BlobStore {
	return &sqliteBlobStore{db: d.db}
}

type sqliteMetadataStore struct {
	db *sql.DB
}

func (s *sqliteMetadataStore) Load() ([]recording.Metadata, error) {
	var raw string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, MetadataKey).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query metadata: %w", err)
	}

	var records []recording.Metadata
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("decode metadata array: %w", err)
	}
	return records, nil
}

func (s *sqliteMetadataStore) Store(records []recording.Metadata) error {
	if records == nil {
		records = []recording.Metadata{}
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode metadata array: %w", err)
	}

	// Single upsert: the array is replaced as one unit, so a failed write
	// never leaves a partially trimmed list behind.
	_, err = s.db.Exec(`
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, MetadataKey, string(raw))
	if err != nil {
		return fmt.Errorf("store metadata: %w", err)
	}
	return nil
}

type sqliteBlobStore struct {
	db *sql.DB
}

func (s *sqliteBlobStore) Put(id string, data []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO blobs (id, data) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data
	`, id, data)
	if err != nil {
		return fmt.Errorf("put blob %s: %w", id, err)
	}
	return nil
}

func (s *sqliteBlobStore) Get(id string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow(`SELECT data FROM blobs WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrBlobMissing
	}
	if err != nil {
		return nil, fmt.Errorf("get blob %s: %w", id, err)
	}
	return data, nil
}

func (s *sqliteBlobStore) Delete(id string) error {
	if _, err := s.db.Exec(`DELETE FROM blobs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete blob %s: %w", id, err)
	}
	return nil
}

func (s *sqliteBlobStore) Keys() ([]string, error) {
	rows, err := s.db.Query(`SELECT id FROM blobs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list blob keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan blob key: %w", err)
		}
		keys = append(keys, id)
	}
	return keys, rows.Err()
}

func (s *sqliteBlobStore) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM blobs`); err != nil {
		return fmt.Errorf("clear blobs: %w", err)
	}
	return nil
}
