package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/glebarez/go-sqlite"
)

// NewSQLiteAccessor 以单个 SQLite 文件承载全部缓存代。sqlite 驱动对并发写
// 敏感，写路径统一经过 writeMutex 串行化。
func NewSQLiteAccessor(dbPath string) (Accessor, error) {
	if dbPath == "" {
		return nil, errors.New("sqlite path required")
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS generations (
		name TEXT PRIMARY KEY
	)`); err != nil {
		return nil, fmt.Errorf("create generations table: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS entries (
		generation TEXT NOT NULL,
		key TEXT NOT NULL,
		body BLOB NOT NULL,
		PRIMARY KEY (generation, key)
	)`); err != nil {
		return nil, fmt.Errorf("create entries table: %w", err)
	}

	return &sqliteAccessor{db: db, writeMutex: &sync.Mutex{}}, nil
}

type sqliteAccessor struct {
	db         *sql.DB
	writeMutex *sync.Mutex
}

func (a *sqliteAccessor) Open(name string) (Generation, error) {
	if name == "" {
		return nil, errors.New("generation name required")
	}

	a.writeMutex.Lock()
	defer a.writeMutex.Unlock()
	if _, err := a.db.Exec(
		"INSERT INTO generations (name) VALUES (?) ON CONFLICT (name) DO NOTHING", name,
	); err != nil {
		return nil, fmt.Errorf("register generation: %w", err)
	}
	return &sqliteGeneration{accessor: a, name: name}, nil
}

func (a *sqliteAccessor) ListNames(ctx context.Context) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, "SELECT name FROM generations ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (a *sqliteAccessor) Delete(ctx context.Context, name string) error {
	a.writeMutex.Lock()
	defer a.writeMutex.Unlock()

	if _, err := a.db.ExecContext(ctx, "DELETE FROM entries WHERE generation = ?", name); err != nil {
		return err
	}
	_, err := a.db.ExecContext(ctx, "DELETE FROM generations WHERE name = ?", name)
	return err
}

type sqliteGeneration struct {
	accessor *sqliteAccessor
	name     string
}

func (g *sqliteGeneration) Match(ctx context.Context, id Identity) (*Snapshot, error) {
	var raw []byte
	err := g.accessor.db.QueryRowContext(ctx,
		"SELECT body FROM entries WHERE generation = ? AND key = ?", g.name, id.Key(),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(raw)
}

func (g *sqliteGeneration) Put(ctx context.Context, id Identity, snap *Snapshot) error {
	raw, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}

	g.accessor.writeMutex.Lock()
	defer g.accessor.writeMutex.Unlock()
	_, err = g.accessor.db.ExecContext(ctx,
		`INSERT INTO entries (generation, key, body) VALUES (?, ?, ?)
		 ON CONFLICT (generation, key) DO UPDATE SET body = excluded.body`,
		g.name, id.Key(), raw,
	)
	return err
}

func (g *sqliteGeneration) AddAll(ctx context.Context, paths []string, fetch Fetcher) error {
	return populateAll(ctx, g, paths, fetch)
}

func (g *sqliteGeneration) Len(ctx context.Context) (int, error) {
	var count int
	err := g.accessor.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM entries WHERE generation = ?", g.name,
	).Scan(&count)
	return count, err
}
