package storage

import (
	"context"
	"path"
	"sort"
	"strings"
	"sync"
)

// MemoryBackend is an in-process Backend used by tests and ephemeral setups.
// It is safe for concurrent use.
type MemoryBackend struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]struct{}
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		files: map[string][]byte{},
		dirs:  map[string]struct{}{},
	}
}

func (b *MemoryBackend) markParents(p string) {
	for dir := path.Dir(p); dir != "." && dir != "/"; dir = path.Dir(dir) {
		b.dirs[dir] = struct{}{}
	}
}

// WriteFile stores a copy of data at path.
func (b *MemoryBackend) WriteFile(_ context.Context, path string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	b.files[path] = buf
	b.markParents(path)
	return nil
}

// ReadFile returns a copy of the data at path.
func (b *MemoryBackend) ReadFile(_ context.Context, path string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.files[path]
	if !ok {
		return nil, ErrNotExist
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}

// Remove deletes the record at path.
func (b *MemoryBackend) Remove(_ context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.files[path]; !ok {
		return ErrNotExist
	}
	delete(b.files, path)
	return nil
}

// MkdirAll records path as an existing directory.
func (b *MemoryBackend) MkdirAll(_ context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dirs[path] = struct{}{}
	b.markParents(path + "/.")
	return nil
}

// ReadDir lists the direct children of path in lexical order.
func (b *MemoryBackend) ReadDir(_ context.Context, dir string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if _, ok := b.dirs[dir]; !ok {
		return nil, ErrNotExist
	}
	prefix := dir + "/"
	seen := map[string]struct{}{}
	var names []string
	add := func(p string) {
		rest := strings.TrimPrefix(p, prefix)
		if rest == p || rest == "" {
			return
		}
		name := rest
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			name = rest[:i]
		}
		if _, dup := seen[name]; !dup {
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	for p := range b.files {
		add(p)
	}
	for p := range b.dirs {
		add(p)
	}
	sort.Strings(names)
	return names, nil
}

// Exists reports whether path names a stored file or directory.
func (b *MemoryBackend) Exists(_ context.Context, path string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if _, ok := b.files[path]; ok {
		return true, nil
	}
	_, ok := b.dirs[path]
	return ok, nil
}
