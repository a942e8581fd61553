// Package ledger persists per-collection ingestion progress so interrupted
// runs can resume without re-ingesting completed files.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Ledger stores fully-ingested file IDs keyed by collection in a single
// JSON file. All operations read, modify, and rewrite the whole file under
// a mutex, so a Ledger is safe for concurrent use within one process.
type Ledger struct {
	path string
	mu   sync.Mutex
}

// New returns a ledger backed by the given file path. The file is created
// lazily on first Add.
func New(path string) *Ledger {
	return &Ledger{path: path}
}

// Processed returns the set of file IDs recorded for the collection.
func (l *Ledger) Processed(collection string) (map[string]struct{}, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load()
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(entries[collection]))
	for _, id := range entries[collection] {
		set[id] = struct{}{}
	}
	return set, nil
}

// Add records a file as fully ingested for the collection. Adding an
// already-recorded file is a no-op.
func (l *Ledger) Add(collection, fileID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load()
	if err != nil {
		return err
	}

	for _, id := range entries[collection] {
		if id == fileID {
			return nil
		}
	}
	entries[collection] = append(entries[collection], fileID)
	return l.store(entries)
}

// Clear removes all progress for the collection.
func (l *Ledger) Clear(collection string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load()
	if err != nil {
		return err
	}
	if _, ok := entries[collection]; !ok {
		return nil
	}
	delete(entries, collection)
	return l.store(entries)
}

// ClearAll removes the ledger file entirely.
func (l *Ledger) ClearAll() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove ledger: %w", err)
	}
	return nil
}

func (l *Ledger) load() (map[string][]string, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string][]string), nil
		}
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	entries := make(map[string][]string)
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse ledger: %w", err)
	}
	return entries, nil
}

func (l *Ledger) store(entries map[string][]string) error {
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create ledger directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}
