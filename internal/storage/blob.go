// Package storage persists the client's local collections as namespaced
// JSON blobs on disk. Each namespace (messages, notifications, tickets)
// serializes its whole backing collection to one file, so a load after
// restart reproduces the collection exactly. There is no versioning or
// migration scheme.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Namespaces used by the realtime subsystem.
const (
	NamespaceMessages      = "messages"
	NamespaceNotifications = "notifications"
	NamespaceTickets       = "tickets"
)

// BlobStore reads and writes one JSON file per namespace under a data
// directory. Writes go through a temp file and rename so a crash mid-write
// never leaves a torn blob.
type BlobStore struct {
	dir string
	mu  sync.Mutex
}

// NewBlobStore creates the data directory if needed and returns a store.
func NewBlobStore(dir string) (*BlobStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir %s: %w", dir, err)
	}
	return &BlobStore{dir: dir}, nil
}

func (s *BlobStore) path(namespace string) string {
	return filepath.Join(s.dir, namespace+".json")
}

// Save serializes v and atomically replaces the namespace's blob.
func (s *BlobStore) Save(namespace string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s blob: %w", namespace, err)
	}

	tmp, err := os.CreateTemp(s.dir, namespace+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", namespace, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s blob: %w", namespace, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file for %s: %w", namespace, err)
	}

	if err := os.Rename(tmpName, s.path(namespace)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s blob: %w", namespace, err)
	}
	return nil
}

// Load deserializes the namespace's blob into v. A missing blob leaves v
// untouched and returns nil: an empty store is a valid starting state, not
// an error.
func (s *BlobStore) Load(namespace string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(namespace))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s blob: %w", namespace, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s blob: %w", namespace, err)
	}
	return nil
}
