// Package storage provides the file-shaped durable storage abstraction used
// by the profile and session stores, with filesystem, in-memory, Postgres and
// SQLite implementations behind a common Backend interface.
package storage

import (
	"context"
	"errors"
)

// ErrNotExist indicates the requested path holds no record.
var ErrNotExist = errors.New("storage: path does not exist")

// Backend is the durable storage collaborator. Paths are slash-separated keys
// relative to the backend's root; implementations that have no directory
// concept treat MkdirAll as a no-op.
type Backend interface {
	WriteFile(ctx context.Context, path string, data []byte) error
	ReadFile(ctx context.Context, path string) ([]byte, error)
	Remove(ctx context.Context, path string) error
	MkdirAll(ctx context.Context, path string) error
	// ReadDir returns the names (not full paths) of the direct children of
	// path. A missing directory yields ErrNotExist.
	ReadDir(ctx context.Context, path string) ([]string, error)
	Exists(ctx context.Context, path string) (bool, error)
}
