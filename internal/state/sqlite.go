package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"jobwatch/internal/dedup"
)

// SQLiteStore keeps the seen set in a single-table sqlite database. Save still
// replaces the full set so both backends behave the same.
type SQLiteStore struct {
	path string
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Path() string { return s.path }

func openDB(ctx context.Context, path string) (*sql.DB, error) {
	// modernc sqlite uses DSN like: file:foo.db?_pragma=busy_timeout(5000)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRowContext(ctx, `PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}
	if v >= 1 {
		return tx.Commit()
	}

	if _, err := tx.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS seen_keys (
  key TEXT PRIMARY KEY,
  first_seen TEXT NOT NULL
);
`); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `PRAGMA user_version = 1;`); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Load(ctx context.Context) (dedup.SeenSet, LoadResult) {
	res := LoadResult{Path: s.path}

	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			res.Status = LoadAbsent
			return dedup.NewSeenSet(), res
		}
		res.Status = LoadIOError
		res.Err = err
		return dedup.NewSeenSet(), res
	}

	fail := func(err error) (dedup.SeenSet, LoadResult) {
		res.Status = LoadIOError
		if isCorruptDB(err) {
			res.Status = LoadCorrupt
		}
		res.Err = err
		return dedup.NewSeenSet(), res
	}

	db, err := openDB(ctx, s.path)
	if err != nil {
		return fail(err)
	}
	defer db.Close()

	if err := migrate(ctx, db); err != nil {
		return fail(fmt.Errorf("migrate: %w", err))
	}

	rows, err := db.QueryContext(ctx, `SELECT key FROM seen_keys;`)
	if err != nil {
		return fail(err)
	}
	defer rows.Close()

	seen := dedup.NewSeenSet()
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return fail(err)
		}
		seen.Add(k)
	}
	if err := rows.Err(); err != nil {
		return fail(err)
	}

	res.Status = LoadOK
	res.Count = seen.Len()
	return seen, res
}

func (s *SQLiteStore) Save(ctx context.Context, seen dedup.SeenSet) SaveResult {
	res := SaveResult{Path: s.path, Count: seen.Len()}

	fail := func(err error) SaveResult {
		res.Status = SaveIOError
		res.Err = err
		return res
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fail(fmt.Errorf("ensure state dir: %w", err))
	}

	db, err := openDB(ctx, s.path)
	if err != nil {
		return fail(err)
	}
	defer db.Close()

	if err := migrate(ctx, db); err != nil {
		return fail(fmt.Errorf("migrate: %w", err))
	}

	if err := replaceKeys(ctx, db, seen); err != nil {
		return fail(err)
	}

	// Confirm the write landed
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM seen_keys;`).Scan(&n); err != nil {
		return fail(fmt.Errorf("confirm state: %w", err))
	}
	if n != seen.Len() {
		return fail(fmt.Errorf("state holds %d keys, saved %d", n, seen.Len()))
	}
	if fi, err := os.Stat(s.path); err == nil {
		res.Bytes = fi.Size()
	}

	res.Status = SaveOK
	return res
}

// replaceKeys swaps the table contents for seen, keeping first_seen of keys
// that were already present.
func replaceKeys(ctx context.Context, db *sql.DB, seen dedup.SeenSet) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	existing := map[string]string{}
	rows, err := tx.QueryContext(ctx, `SELECT key, first_seen FROM seen_keys;`)
	if err != nil {
		return err
	}
	for rows.Next() {
		var k, fs string
		if err := rows.Scan(&k, &fs); err != nil {
			rows.Close()
			return err
		}
		existing[k] = fs
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM seen_keys;`); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO seen_keys(key, first_seen) VALUES(?, ?);`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, k := range seen.Sorted() {
		fs, ok := existing[k]
		if !ok {
			fs = now
		}
		if _, err := stmt.ExecContext(ctx, k, fs); err != nil {
			return fmt.Errorf("insert %q: %w", k, err)
		}
	}

	return tx.Commit()
}

func isCorruptDB(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not a database") ||
		strings.Contains(msg, "malformed") ||
		strings.Contains(msg, "corrupt")
}
