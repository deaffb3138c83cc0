// Package sqlite persists serialized virtual pockets for a saved world.
//
// Pockets are stored as gzip-compressed binary NBT keyed by their canonical
// resource name. A Store is also a resource loader over pockets/virtual, so a
// saved pocket can reference other saved pockets by name.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dimdev/pocket"
	"github.com/dimdev/pocket/nbt"
	"github.com/dimdev/pocket/resource"
	"github.com/dimdev/pocket/virtual"
)

const schema = `
CREATE TABLE IF NOT EXISTS virtual_pockets (
    name       TEXT PRIMARY KEY,
    type       TEXT NOT NULL,
    data       BLOB NOT NULL,
    updated_at INTEGER NOT NULL
)`

// Entry describes a stored pocket without its payload.
type Entry struct {
	Name      string
	Type      string
	Size      int
	UpdatedAt time.Time
}

// Store provides SQLite-backed persistence for virtual pockets.
type Store struct {
	sqlDB     *sql.DB
	codec     *virtual.Codec
	namespace string
	now       func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithNamespace sets the namespace for names without one.
func WithNamespace(ns string) Option {
	return func(s *Store) {
		s.namespace = ns
	}
}

// WithClock sets the clock used for update timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open opens a pocket store, creating the schema if needed.
func Open(path string, codec *virtual.Codec, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if codec == nil {
		return nil, fmt.Errorf("codec is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &Store{
		sqlDB:     sqlDB,
		codec:     codec,
		namespace: resource.DefaultNamespace,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) canonical(name string) (string, error) {
	id, err := pocket.ParseIdentifierIn(strings.TrimSpace(name), s.namespace)
	if err != nil {
		return "", fmt.Errorf("%w: pocket name %q: %v", pocket.ErrMalformed, name, err)
	}
	return id.String(), nil
}

// Resolve returns the canonical name the store keys name under.
func (s *Store) Resolve(name string) (pocket.Identifier, error) {
	return pocket.ParseIdentifierIn(name, s.namespace)
}

// Save encodes vp inline and upserts it under name.
func (s *Store) Save(ctx context.Context, name string, vp virtual.VirtualPocket) error {
	key, err := s.canonical(name)
	if err != nil {
		return err
	}
	tree, err := s.codec.Encode(vp, false)
	if err != nil {
		return err
	}
	data, err := nbt.MarshalGzip(tree)
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}

	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO virtual_pockets (name, type, data, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		    type = excluded.type,
		    data = excluded.data,
		    updated_at = excluded.updated_at`,
		key, vp.Key().String(), data, s.now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Load implements resource.Loader for the virtual pocket root.
func (s *Store) Load(ctx context.Context, root, name string) (any, error) {
	if root != resource.VirtualRoot {
		return nil, fmt.Errorf("%w: %s/%s", pocket.ErrNotFound, root, name)
	}
	key, err := s.canonical(name)
	if err != nil {
		return nil, err
	}

	var data []byte
	err = s.sqlDB.QueryRowContext(ctx, `SELECT data FROM virtual_pockets WHERE name = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", pocket.ErrNotFound, root, key)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	v, err := nbt.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", pocket.ErrMalformed, key, err)
	}
	return v, nil
}

// Pocket decodes the pocket saved under name.
func (s *Store) Pocket(ctx context.Context, name string) (virtual.VirtualPocket, error) {
	return s.codec.Load(ctx, name, s)
}

// List implements resource.Lister for the virtual pocket root.
func (s *Store) List(ctx context.Context, root string) ([]string, error) {
	if root != resource.VirtualRoot {
		return nil, nil
	}
	entries, err := s.Entries(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names, nil
}

// Entries lists stored pockets sorted by name.
func (s *Store) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT name, type, length(data), updated_at FROM virtual_pockets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list pockets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var updatedAt int64
		if err := rows.Scan(&e.Name, &e.Type, &e.Size, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan pocket: %w", err)
		}
		e.UpdatedAt = time.UnixMilli(updatedAt).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pockets: %w", err)
	}
	return entries, nil
}

// Delete removes the pocket saved under name.
func (s *Store) Delete(ctx context.Context, name string) error {
	key, err := s.canonical(name)
	if err != nil {
		return err
	}
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM virtual_pockets WHERE name = ?`, key)
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", pocket.ErrNotFound, key)
	}
	return nil
}
