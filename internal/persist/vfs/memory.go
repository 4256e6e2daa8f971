package vfs

import (
	"bytes"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"
)

// MemFS is a VFS held in memory, used by tests. Paths are slash-separated
// and rooted at "/". It is safe for concurrent use.
type MemFS struct {
	mu    sync.RWMutex
	nodes map[string]*memNode
}

type memNode struct {
	dir     bool
	data    []byte
	modTime time.Time
}

// NewMemFS creates an empty file system holding only the root directory.
func NewMemFS() *MemFS {
	return &MemFS{nodes: map[string]*memNode{"/": {dir: true}}}
}

// Ensure MemFS implements VFS.
var _ VFS = (*MemFS)(nil)

// ReadFile returns a copy of the file content.
func (m *MemFS) ReadFile(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	name = clean(name)
	n, err := m.lookup("read", name)
	if err != nil {
		return nil, err
	}
	if n.dir {
		return nil, pathErr("read", name, syscall.EISDIR)
	}
	return bytes.Clone(n.data), nil
}

// Stat describes the file or directory at name.
func (m *MemFS) Stat(name string) (FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, err := m.lookup("stat", clean(name))
	if err != nil {
		return FileInfo{}, err
	}
	return NewFileInfo(int64(len(n.data)), n.modTime, n.dir), nil
}

// WriteFile stores a copy of data. The parent directory must exist.
func (m *MemFS) WriteFile(name string, data []byte, _ fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name = clean(name)
	if n, ok := m.nodes[name]; ok && n.dir {
		return pathErr("write", name, syscall.EISDIR)
	}
	if p, ok := m.nodes[path.Dir(name)]; !ok || !p.dir {
		return pathErr("write", name, fs.ErrNotExist)
	}
	m.nodes[name] = &memNode{data: bytes.Clone(data), modTime: time.Now()}
	return nil
}

// MkdirAll creates name and any missing parents.
func (m *MemFS) MkdirAll(name string, _ fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mkdirAllLocked(clean(name))
}

func (m *MemFS) mkdirAllLocked(name string) error {
	if n, ok := m.nodes[name]; ok {
		if !n.dir {
			return pathErr("mkdir", name, syscall.ENOTDIR)
		}
		return nil
	}
	if err := m.mkdirAllLocked(path.Dir(name)); err != nil {
		return err
	}
	m.nodes[name] = &memNode{dir: true, modTime: time.Now()}
	return nil
}

// Remove deletes a file or an empty directory.
func (m *MemFS) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name = clean(name)
	n, err := m.lookup("remove", name)
	if err != nil {
		return err
	}
	if n.dir {
		prefix := strings.TrimSuffix(name, "/") + "/"
		for p := range m.nodes {
			if strings.HasPrefix(p, prefix) {
				return pathErr("remove", name, syscall.ENOTEMPTY)
			}
		}
	}
	delete(m.nodes, name)
	return nil
}

// Rename moves a file, replacing any file at newName. Directories cannot
// be renamed.
func (m *MemFS) Rename(oldName, newName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	oldName, newName = clean(oldName), clean(newName)
	n, err := m.lookup("rename", oldName)
	if err != nil {
		return err
	}
	if n.dir {
		return pathErr("rename", oldName, syscall.EISDIR)
	}
	if t, ok := m.nodes[newName]; ok && t.dir {
		return pathErr("rename", newName, syscall.EISDIR)
	}
	if p, ok := m.nodes[path.Dir(newName)]; !ok || !p.dir {
		return pathErr("rename", newName, fs.ErrNotExist)
	}

	m.nodes[newName] = n
	delete(m.nodes, oldName)
	return nil
}

// Join joins path elements.
func (m *MemFS) Join(elem ...string) string {
	return path.Join(elem...)
}

// Dir returns the directory portion of a path.
func (m *MemFS) Dir(name string) string {
	return path.Dir(clean(name))
}

// AddFile writes content to name, creating parent directories.
func (m *MemFS) AddFile(name, content string) error {
	if err := m.MkdirAll(path.Dir(clean(name)), 0o755); err != nil {
		return err
	}
	return m.WriteFile(name, []byte(content), 0o644)
}

// Files returns the sorted paths of all regular files.
func (m *MemFS) Files() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var files []string
	for p, n := range m.nodes {
		if !n.dir {
			files = append(files, p)
		}
	}
	sort.Strings(files)
	return files
}

func (m *MemFS) lookup(op, name string) (*memNode, error) {
	n, ok := m.nodes[name]
	if !ok {
		return nil, pathErr(op, name, fs.ErrNotExist)
	}
	return n, nil
}

func clean(name string) string {
	return path.Join("/", name)
}

func pathErr(op, name string, err error) error {
	return &fs.PathError{Op: op, Path: name, Err: err}
}
