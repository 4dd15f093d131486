package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"unicode/utf8"

	_ "modernc.org/sqlite"
)

// Corpus table names.
const (
	CorpusCompanies = "companies"
	CorpusDissolved = "dissolved_companies"
)

// DefaultMatchLimit bounds exact and prefix results.
const DefaultMatchLimit = 20

var corpusName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

const tableSchema = ` (
	key_with_id TEXT PRIMARY KEY,
	ordered_key TEXT NOT NULL,
	source      TEXT NOT NULL
)`

// Entry is one document to index.
type Entry struct {
	KeyWithID  string // ordered key + ":" + company number
	OrderedKey string
	Source     json.RawMessage
}

// DB is a SQLite file holding one table per corpus. SQLite compares TEXT with
// memcmp, which is the same byte order Go uses for strings, so range queries
// over the primary key walk the corpus in ordered-key order.
type DB struct {
	db         *sql.DB
	matchLimit int
}

// Open opens (or creates) the index database at path. A matchLimit <= 0
// selects DefaultMatchLimit.
func Open(path string, matchLimit int) (*DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open index db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open index db: %w", err)
	}
	if matchLimit <= 0 {
		matchLimit = DefaultMatchLimit
	}
	return &DB{db: db, matchLimit: matchLimit}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Corpus returns the store for the named table, creating it if needed.
func (d *DB) Corpus(name string) (*Store, error) {
	if !corpusName.MatchString(name) {
		return nil, fmt.Errorf("invalid corpus name %q", name)
	}
	if _, err := d.db.Exec(`CREATE TABLE IF NOT EXISTS ` + name + tableSchema); err != nil {
		return nil, fmt.Errorf("create %s table: %w", name, err)
	}
	idx := `CREATE INDEX IF NOT EXISTS ` + name + `_ordered_key ON ` + name + ` (ordered_key)`
	if _, err := d.db.Exec(idx); err != nil {
		return nil, fmt.Errorf("create %s index: %w", name, err)
	}

	s := &Store{db: d.db, table: name, limit: d.matchLimit}
	s.qExact = `SELECT key_with_id, source FROM ` + name + ` WHERE ordered_key = ? ORDER BY key_with_id LIMIT ?`
	s.qPrefix = `SELECT key_with_id, source FROM ` + name + ` WHERE key_with_id >= ? AND key_with_id < ? ORDER BY key_with_id LIMIT ?`
	s.qPrefixOpen = `SELECT key_with_id, source FROM ` + name + ` WHERE key_with_id >= ? ORDER BY key_with_id LIMIT ?`
	s.qAbove = `SELECT key_with_id, source FROM ` + name + ` WHERE key_with_id < ? ORDER BY key_with_id DESC LIMIT ?`
	s.qBelow = `SELECT key_with_id, source FROM ` + name + ` WHERE key_with_id > ? ORDER BY key_with_id ASC LIMIT ?`
	return s, nil
}

// Store is one corpus table. It implements Index.
type Store struct {
	db    *sql.DB
	table string
	limit int

	qExact, qPrefix, qPrefixOpen, qAbove, qBelow string
}

var _ Index = (*Store)(nil)

func (s *Store) ExactMatch(ctx context.Context, key string) ([]HitRecord, error) {
	if key == "" {
		return nil, nil
	}
	return s.query(ctx, OpExact, s.qExact, key, s.limit)
}

func (s *Store) PrefixMatch(ctx context.Context, prefix string) ([]HitRecord, error) {
	if prefix == "" {
		return nil, nil
	}
	if upper, ok := successor(prefix); ok {
		return s.query(ctx, OpPrefix, s.qPrefix, prefix, upper, s.limit)
	}
	return s.query(ctx, OpPrefix, s.qPrefixOpen, prefix, s.limit)
}

func (s *Store) RangeAbove(ctx context.Context, pivot string, limit int) ([]HitRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	return s.query(ctx, OpAbove, s.qAbove, pivot, limit)
}

func (s *Store) RangeBelow(ctx context.Context, pivot string, limit int) ([]HitRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	return s.query(ctx, OpBelow, s.qBelow, pivot, limit)
}

func (s *Store) query(ctx context.Context, op, q string, args ...any) ([]HitRecord, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, unavailable(op, err)
	}
	defer rows.Close()

	var hits []HitRecord
	for rows.Next() {
		var h HitRecord
		var src string
		if err := rows.Scan(&h.Key, &src); err != nil {
			return nil, unavailable(op, err)
		}
		h.Source = json.RawMessage(src)
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(op, err)
	}
	return hits, nil
}

// Put upserts entries in a single transaction.
func (s *Store) Put(ctx context.Context, entries []Entry) error {
	return s.put(ctx, s.table, entries)
}

func (s *Store) put(ctx context.Context, table string, entries []Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", table, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO `+table+` (key_with_id, ordered_key, source) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare %s insert: %w", table, err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if e.KeyWithID == "" {
			return fmt.Errorf("put %s: entry without key", table)
		}
		if _, err := stmt.ExecContext(ctx, e.KeyWithID, e.OrderedKey, string(e.Source)); err != nil {
			return fmt.Errorf("put %s %s: %w", table, e.KeyWithID, err)
		}
	}
	return tx.Commit()
}

// Count returns the number of entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+s.table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", s.table, err)
	}
	return n, nil
}

// successor returns the smallest string greater than every string with the
// given prefix, by incrementing the last rune. It reports false when the last
// rune cannot be incremented.
func successor(prefix string) (string, bool) {
	r, size := utf8.DecodeLastRuneInString(prefix)
	if r == utf8.RuneError || r >= utf8.MaxRune {
		return "", false
	}
	next := r + 1
	if next >= 0xD800 && next <= 0xDFFF {
		next = 0xE000
	}
	return prefix[:len(prefix)-size] + string(next), true
}
