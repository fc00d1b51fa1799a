package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const (
	createSqliteFilesTableQuery = `
        CREATE TABLE IF NOT EXISTS storage_files (
            path       TEXT PRIMARY KEY,
            data       BLOB NOT NULL,
            updated_at TEXT NOT NULL DEFAULT (datetime('now'))
        )
    `
	upsertSqliteFileQuery = `
        INSERT INTO storage_files (path, data, updated_at)
        VALUES (?, ?, datetime('now'))
        ON CONFLICT (path) DO UPDATE SET data = excluded.data, updated_at = datetime('now')
    `
	selectSqliteFileQuery   = `SELECT data FROM storage_files WHERE path = ?`
	deleteSqliteFileQuery   = `DELETE FROM storage_files WHERE path = ?`
	existsSqliteFileQuery   = `SELECT EXISTS(SELECT 1 FROM storage_files WHERE path = ?)`
	listSqlitePrefixQuery   = `SELECT path FROM storage_files WHERE path LIKE ? ESCAPE '\'`
	existsSqlitePrefixQuery = `SELECT EXISTS(SELECT 1 FROM storage_files WHERE path LIKE ? ESCAPE '\')`
)

// SqliteBackend stores records in an embedded SQLite database, for
// single-node deployments that want durability without a filesystem layout or
// an external database.
type SqliteBackend struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSqliteBackend opens (creating if needed) the SQLite database at dbPath
// and ensures the backing table exists.
func NewSqliteBackend(ctx context.Context, dbPath string, logger *zap.Logger) (*SqliteBackend, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %q: %w", dbPath, err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent flush ticks.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, createSqliteFilesTableQuery); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ensure storage_files table: %w", err)
	}
	return &SqliteBackend{db: db, logger: logger.Named("SqliteBackend")}, nil
}

// Close closes the underlying database handle.
func (b *SqliteBackend) Close() error {
	return b.db.Close()
}

// WriteFile upserts data at path.
func (b *SqliteBackend) WriteFile(ctx context.Context, path string, data []byte) error {
	if _, err := b.db.ExecContext(ctx, upsertSqliteFileQuery, path, data); err != nil {
		b.logger.Error("Failed to write storage file", zap.String("path", path), zap.Error(err))
		return err
	}
	return nil
}

// ReadFile fetches the data at path, yielding ErrNotExist for a missing row.
func (b *SqliteBackend) ReadFile(ctx context.Context, path string) ([]byte, error) {
	var data []byte
	err := b.db.QueryRowContext(ctx, selectSqliteFileQuery, path).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotExist
	}
	if err != nil {
		b.logger.Error("Failed to read storage file", zap.String("path", path), zap.Error(err))
		return nil, err
	}
	return data, nil
}

// Remove deletes the row at path.
func (b *SqliteBackend) Remove(ctx context.Context, path string) error {
	res, err := b.db.ExecContext(ctx, deleteSqliteFileQuery, path)
	if err != nil {
		b.logger.Error("Failed to remove storage file", zap.String("path", path), zap.Error(err))
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotExist
	}
	return nil
}

// MkdirAll is a no-op: directories are implied by record paths.
func (b *SqliteBackend) MkdirAll(context.Context, string) error {
	return nil
}

// ReadDir lists the direct children of dir in lexical order.
func (b *SqliteBackend) ReadDir(ctx context.Context, dir string) ([]string, error) {
	prefix := dir + "/"
	rows, err := b.db.QueryContext(ctx, listSqlitePrefixQuery, likePattern(prefix))
	if err != nil {
		b.logger.Error("Failed to list storage dir", zap.String("dir", dir), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	seen := map[string]struct{}{}
	var names []string
	for rows.Next() {
		var rowPath string
		if err := rows.Scan(&rowPath); err != nil {
			return nil, err
		}
		rest := strings.TrimPrefix(rowPath, prefix)
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
func (b *SqliteBackend) Exists(ctx context.Context, p string) (bool, error) {
	var n int
	if err := b.db.QueryRowContext(ctx, existsSqliteFileQuery, p).Scan(&n); err != nil {
		return false, err
	}
	if n == 1 {
		return true, nil
	}
	if err := b.db.QueryRowContext(ctx, existsSqlitePrefixQuery, likePattern(path.Clean(p)+"/")).Scan(&n); err != nil {
		return false, err
	}
	return n == 1, nil
}
