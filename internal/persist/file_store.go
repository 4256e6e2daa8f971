package persist

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"time"

	"github.com/dshills/mathboard/internal/persist/vfs"
)

// fileExt is appended to every key to form its file name.
const fileExt = ".json"

// FileStore keeps one file per key inside a directory.
type FileStore struct {
	mu     sync.Mutex
	fs     vfs.VFS
	dir    string
	closed bool
}

// Ensure FileStore implements Store and Stamper.
var (
	_ Store   = (*FileStore)(nil)
	_ Stamper = (*FileStore)(nil)
)

// NewFileStore creates a store rooted at dir, creating the directory.
func NewFileStore(fsys vfs.VFS, dir string) (*FileStore, error) {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, &OperationError{Op: "open", Key: dir, Err: err}
	}
	return &FileStore{fs: fsys, dir: dir}, nil
}

// Dir returns the directory holding the records.
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the file backing key.
func (s *FileStore) Path(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return s.fs.Join(s.dir, key+fileExt), nil
}

// Get reads the file for key.
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	p, err := s.begin(ctx, key)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	data, err := s.fs.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// Put replaces the file for key via a temporary file and a rename.
func (s *FileStore) Put(ctx context.Context, key string, value []byte) error {
	p, err := s.begin(ctx, key)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	return writeAtomic(s.fs, p, value)
}

// Delete removes the file for key.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	p, err := s.begin(ctx, key)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	if err := s.fs.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// UpdatedAt returns the modification time of the file for key.
func (s *FileStore) UpdatedAt(ctx context.Context, key string) (time.Time, error) {
	p, err := s.begin(ctx, key)
	if err != nil {
		return time.Time{}, err
	}
	defer s.mu.Unlock()

	info, err := s.fs.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// Close marks the store closed.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// begin validates the call and acquires the lock on success.
func (s *FileStore) begin(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p, err := s.Path(key)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrClosed
	}
	return p, nil
}

// writeAtomic writes data next to path and renames it into place, so the
// previous content survives any failure.
func writeAtomic(fsys vfs.VFS, path string, data []byte) error {
	tmp := path + ".tmp"
	if err := fsys.WriteFile(tmp, data, 0o644); err != nil {
		_ = fsys.Remove(tmp)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := fsys.Rename(tmp, path); err != nil {
		_ = fsys.Remove(tmp)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
