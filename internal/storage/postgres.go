package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	createStorageFilesTableQuery = `
        CREATE TABLE IF NOT EXISTS storage_files (
            path       TEXT PRIMARY KEY,
            data       BYTEA NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )
    `
	upsertStorageFileQuery = `
        INSERT INTO storage_files (path, data, updated_at)
        VALUES ($1, $2, now())
        ON CONFLICT (path) DO UPDATE SET data = EXCLUDED.data, updated_at = now()
    `
	selectStorageFileQuery   = `SELECT data FROM storage_files WHERE path = $1`
	deleteStorageFileQuery   = `DELETE FROM storage_files WHERE path = $1`
	existsStorageFileQuery   = `SELECT EXISTS(SELECT 1 FROM storage_files WHERE path = $1)`
	listStoragePrefixQuery   = `SELECT path FROM storage_files WHERE path LIKE $1`
	existsStoragePrefixQuery = `SELECT EXISTS(SELECT 1 FROM storage_files WHERE path LIKE $1)`
)

// PgBackend stores records in a single Postgres blob table keyed by path.
// Directories are implicit: a directory exists while at least one record
// lives under it.
type PgBackend struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPgBackend creates a Postgres backend over an existing pool and ensures
// the backing table exists.
func NewPgBackend(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) (*PgBackend, error) {
	b := &PgBackend{pool: pool, logger: logger.Named("PgBackend")}
	if _, err := pool.Exec(ctx, createStorageFilesTableQuery); err != nil {
		return nil, fmt.Errorf("failed to ensure storage_files table: %w", err)
	}
	return b, nil
}

// WriteFile upserts data at path.
func (b *PgBackend) WriteFile(ctx context.Context, path string, data []byte) error {
	if _, err := b.pool.Exec(ctx, upsertStorageFileQuery, path, data); err != nil {
		b.logger.Error("Failed to write storage file", zap.String("path", path), zap.Error(err))
		return err
	}
	return nil
}

// ReadFile fetches the data at path, yielding ErrNotExist for a missing row.
func (b *PgBackend) ReadFile(ctx context.Context, path string) ([]byte, error) {
	var data []byte
	err := b.pool.QueryRow(ctx, selectStorageFileQuery, path).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotExist
	}
	if err != nil {
		b.logger.Error("Failed to read storage file", zap.String("path", path), zap.Error(err))
		return nil, err
	}
	return data, nil
}

// Remove deletes the row at path.
func (b *PgBackend) Remove(ctx context.Context, path string) error {
	tag, err := b.pool.Exec(ctx, deleteStorageFileQuery, path)
	if err != nil {
		b.logger.Error("Failed to remove storage file", zap.String("path", path), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotExist
	}
	return nil
}

// MkdirAll is a no-op: directories are implied by record paths.
func (b *PgBackend) MkdirAll(context.Context, string) error {
	return nil
}

// ReadDir lists the direct children of dir in lexical order.
func (b *PgBackend) ReadDir(ctx context.Context, dir string) ([]string, error) {
	prefix := dir + "/"
	rows, err := b.pool.Query(ctx, listStoragePrefixQuery, likePattern(prefix))
	if err != nil {
		b.logger.Error("Failed to list storage dir", zap.String("dir", dir), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	seen := map[string]struct{}{}
	var names []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		rest := strings.TrimPrefix(p, prefix)
		name := rest
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			name = rest[:i]
		}
		if _, dup := seen[name]; !dup {
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, ErrNotExist
	}
	sort.Strings(names)
	return names, nil
}

// Exists reports whether path names a record or a non-empty implicit
// directory.
func (b *PgBackend) Exists(ctx context.Context, p string) (bool, error) {
	var ok bool
	if err := b.pool.QueryRow(ctx, existsStorageFileQuery, p).Scan(&ok); err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}
	if err := b.pool.QueryRow(ctx, existsStoragePrefixQuery, likePattern(path.Clean(p)+"/")).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// likePattern escapes LIKE metacharacters in prefix and appends the wildcard.
func likePattern(prefix string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix)
	return escaped + "%"
}
