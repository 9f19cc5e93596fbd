package upload

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DiskStore stages uploads on the local filesystem. Each file gets a UUID
// name plus a JSON sidecar with its metadata, so staged uploads survive a
// process restart.
type DiskStore struct {
	dir     string
	maxSize int64

	mu      sync.Mutex
	entries map[string]diskEntry
}

type diskEntry struct {
	Meta      Meta      `json:"meta"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewDiskStore creates a disk store rooted at dir, creating it if needed.
// maxSize caps individual files; 0 means unlimited.
func NewDiskStore(dir string, maxSize int64) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskStore{
		dir:     dir,
		maxSize: maxSize,
		entries: make(map[string]diskEntry),
	}, nil
}

// Save stages a file and returns its ID.
func (s *DiskStore) Save(ctx context.Context, meta Meta, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.maxSize > 0 && meta.Size > s.maxSize {
		return "", ErrTooLarge
	}

	id := uuid.NewString()
	path := filepath.Join(s.dir, id)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	reader := r
	if s.maxSize > 0 {
		// +1 so an at-limit read is distinguishable from an overflow.
		reader = io.LimitReader(r, s.maxSize+1)
	}
	written, err := io.Copy(f, reader)
	if err != nil {
		os.Remove(path)
		return "", err
	}
	if s.maxSize > 0 && written > s.maxSize {
		os.Remove(path)
		return "", ErrTooLarge
	}
	meta.Size = written

	entry := diskEntry{Meta: meta, CreatedAt: time.Now()}
	if err := s.writeSidecar(id, entry); err != nil {
		os.Remove(path)
		return "", err
	}

	s.mu.Lock()
	s.entries[id] = entry
	s.mu.Unlock()

	return id, nil
}

// Claim retrieves a staged file and consumes it: the sidecar goes now, the
// data file goes when the returned reader closes.
func (s *DiskStore) Claim(ctx context.Context, id string) (*File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// SECURITY: only IDs this store minted are valid path components.
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	s.mu.Lock()
	entry, ok := s.entries[id]
	delete(s.entries, id)
	s.mu.Unlock()

	if !ok {
		// A prior process may have staged it; the sidecar is the record.
		var err error
		entry, err = s.readSidecar(id)
		if err != nil {
			return nil, ErrNotFound
		}
	}
	os.Remove(s.sidecarPath(id))

	path := filepath.Join(s.dir, id)
	f, err := os.Open(path)
	if err != nil {
		return nil, ErrNotFound
	}

	return &File{
		ID:          id,
		Filename:    entry.Meta.Filename,
		ContentType: entry.Meta.ContentType,
		Size:        entry.Meta.Size,
		Path:        path,
		Reader:      &removeOnClose{File: f, path: path},
	}, nil
}

// Cleanup removes staged files older than maxAge.
func (s *DiskStore) Cleanup(ctx context.Context, maxAge time.Duration) error {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	for id, entry := range s.entries {
		if entry.CreatedAt.Before(cutoff) {
			delete(s.entries, id)
		}
	}
	s.mu.Unlock()

	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}
	for _, de := range dirEntries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if de.IsDir() {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			os.Remove(filepath.Join(s.dir, de.Name()))
		}
	}
	return nil
}

func (s *DiskStore) sidecarPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *DiskStore) writeSidecar(id string, entry diskEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return os.WriteFile(s.sidecarPath(id), data, 0o644)
}

func (s *DiskStore) readSidecar(id string) (diskEntry, error) {
	data, err := os.ReadFile(s.sidecarPath(id))
	if err != nil {
		return diskEntry{}, err
	}
	var entry diskEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return diskEntry{}, err
	}
	return entry, nil
}

// removeOnClose deletes the staged data file once the claimer is done
// with it.
type removeOnClose struct {
	*os.File
	path string
}

func (r *removeOnClose) Close() error {
	err := r.File.Close()
	os.Remove(r.path)
	return err
}
