package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// File permission constants for the cold tier file.
const (
	persistDirPerm  = 0o750
	persistFilePerm = 0o600
)

// persistVersion is the layout version written to the cold tier file.
const persistVersion = 1

// persistedFile is the on-disk layout: cold entries least- to most-recent.
type persistedFile struct {
	Version int               `json:"version"`
	Entries []persistedRecord `json:"entries"`
}

type persistedRecord struct {
	Key   string `json:"key"`
	Entry *Entry `json:"entry"`
}

// coldSnapshot is the cold tier captured under the cache lock. Entries are
// immutable once stored, so the snapshot can be encoded outside the lock.
type coldSnapshot struct {
	gen     uint64
	records []persistedRecord
}

// diskStore owns the cold tier file. Writes are ordered by generation so a
// slow write of an older snapshot never replaces a newer one.
type diskStore struct {
	path string

	mu      sync.Mutex
	lastGen uint64
}

func newDiskStore(path string) *diskStore {
	return &diskStore{path: path}
}

// load reads the persisted records. A missing file yields no records and no
// error; any other failure is returned for the caller to log.
func (d *diskStore) load() ([]persistedRecord, error) {
	if d == nil || d.path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(filepath.Clean(d.path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", d.path, err)
	}

	var file persistedFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode %s: %w", d.path, err)
	}
	if file.Version != persistVersion {
		return nil, fmt.Errorf("decode %s: unsupported version %d", d.path, file.Version)
	}

	records := make([]persistedRecord, 0, len(file.Entries))
	for _, r := range file.Entries {
		if checkEntry(r.Entry) != nil {
			continue
		}
		// The key is derived, never trusted from disk.
		r.Key = r.Entry.Key()
		records = append(records, r)
	}
	return records, nil
}

// save rewrites the whole file with snap unless a newer snapshot was
// already written.
func (d *diskStore) save(snap coldSnapshot) error {
	if d == nil || d.path == "" {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if snap.gen <= d.lastGen {
		return nil
	}

	records := snap.records
	if records == nil {
		records = []persistedRecord{}
	}
	data, err := json.Marshal(persistedFile{Version: persistVersion, Entries: records})
	if err != nil {
		return &PersistenceError{Op: "encode", Path: d.path, Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(d.path), persistDirPerm); err != nil {
		return &PersistenceError{Op: "mkdir", Path: d.path, Err: err}
	}

	tmp := d.path + ".tmp"
	if err := os.WriteFile(tmp, data, persistFilePerm); err != nil {
		return &PersistenceError{Op: "write", Path: d.path, Err: err}
	}
	if err := os.Rename(tmp, d.path); err != nil {
		_ = os.Remove(tmp)
		return &PersistenceError{Op: "rename", Path: d.path, Err: err}
	}

	d.lastGen = snap.gen
	return nil
}

// remove erases the persisted file as of generation gen.
func (d *diskStore) remove(gen uint64) error {
	if d == nil || d.path == "" {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if gen <= d.lastGen {
		return nil
	}
	if err := os.Remove(d.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &PersistenceError{Op: "remove", Path: d.path, Err: err}
	}
	d.lastGen = gen
	return nil
}

// dir returns the directory holding the file.
func (d *diskStore) dir() string {
	if d == nil || d.path == "" {
		return ""
	}
	return filepath.Dir(d.path)
}
