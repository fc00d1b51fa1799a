package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FSBackend stores records as real files under a root directory. This is the
// production default and matches the historical on-disk layout byte for byte.
type FSBackend struct {
	root string
}

// NewFSBackend creates a filesystem backend rooted at root, creating the root
// directory if needed.
func NewFSBackend(root string) (*FSBackend, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root %q: %w", root, err)
	}
	return &FSBackend{root: root}, nil
}

func (b *FSBackend) resolve(p string) string {
	return filepath.Join(b.root, filepath.FromSlash(p))
}

// WriteFile writes data to path, creating parent directories as needed.
func (b *FSBackend) WriteFile(_ context.Context, path string, data []byte) error {
	full := b.resolve(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0o644)
}

// ReadFile reads the contents at path, yielding ErrNotExist for a missing
// file.
func (b *FSBackend) ReadFile(_ context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(b.resolve(path))
	if os.IsNotExist(err) {
		return nil, ErrNotExist
	}
	return data, err
}

// Remove deletes the file at path.
func (b *FSBackend) Remove(_ context.Context, path string) error {
	err := os.Remove(b.resolve(path))
	if os.IsNotExist(err) {
		return ErrNotExist
	}
	return err
}

// MkdirAll creates path and any missing parents.
func (b *FSBackend) MkdirAll(_ context.Context, path string) error {
	return os.MkdirAll(b.resolve(path), 0o755)
}

// ReadDir lists the names of the direct children of path.
func (b *FSBackend) ReadDir(_ context.Context, path string) ([]string, error) {
	entries, err := os.ReadDir(b.resolve(path))
	if os.IsNotExist(err) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names, nil
}

// Exists reports whether a file or directory exists at path.
func (b *FSBackend) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(b.resolve(path))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
