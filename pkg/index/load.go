package index

import (
	"context"
	"fmt"
)

// Loader stages a full replacement of a corpus. Entries written with Put
// stay invisible to searches until Commit swaps them in; Abort discards
// them and leaves the corpus as it was.
type Loader interface {
	Put(ctx context.Context, entries []Entry) error
	// Commit replaces the corpus with the staged entries in one transaction
	// and returns how many it now holds.
	Commit(ctx context.Context) (int, error)
	// Abort is a no-op after Commit.
	Abort(ctx context.Context) error
}

type stagedLoad struct {
	store   *Store
	staging string
	done    bool
}

// BeginLoad starts a replacement of the corpus. A staging table left by an
// interrupted load is discarded.
func (s *Store) BeginLoad(ctx context.Context) (Loader, error) {
	staging := s.table + "_staging"
	if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS `+staging); err != nil {
		return nil, fmt.Errorf("drop %s: %w", staging, err)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE `+staging+tableSchema); err != nil {
		return nil, fmt.Errorf("create %s: %w", staging, err)
	}
	return &stagedLoad{store: s, staging: staging}, nil
}

func (l *stagedLoad) Put(ctx context.Context, entries []Entry) error {
	if l.done {
		return fmt.Errorf("load of %s already finished", l.store.table)
	}
	return l.store.put(ctx, l.staging, entries)
}

func (l *stagedLoad) Commit(ctx context.Context) (int, error) {
	if l.done {
		return 0, fmt.Errorf("load of %s already finished", l.store.table)
	}
	table := l.store.table
	tx, err := l.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin swap %s: %w", table, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
		return 0, fmt.Errorf("clear %s: %w", table, err)
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO `+table+` (key_with_id, ordered_key, source)
		SELECT key_with_id, ordered_key, source FROM `+l.staging)
	if err != nil {
		return 0, fmt.Errorf("swap %s: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, `DROP TABLE `+l.staging); err != nil {
		return 0, fmt.Errorf("drop %s: %w", l.staging, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit swap %s: %w", table, err)
	}
	l.done = true
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (l *stagedLoad) Abort(ctx context.Context) error {
	if l.done {
		return nil
	}
	l.done = true
	if _, err := l.store.db.ExecContext(ctx, `DROP TABLE IF EXISTS `+l.staging); err != nil {
		return fmt.Errorf("drop %s: %w", l.staging, err)
	}
	return nil
}
