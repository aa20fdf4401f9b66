package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/schedmap/internal/record"
)

// Row is the write handle for one record. All its statements run inside a
// single transaction that Commit makes durable.
type Row struct {
	table *Table
	tx    *sql.Tx
	entry int64
	done  bool
}

// BeginRow starts a record: opens its transaction, inserts a row with only
// ObjectType set and advances the entry sequence.
func (t *Table) BeginRow(ctx context.Context, kind record.Kind) (*Row, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("begin row: unknown kind %q", kind)
	}

	tx, err := t.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin row: begin tx: %w", err)
	}

	entry := t.entry + 1
	_, err = tx.ExecContext(ctx,
		`INSERT INTO `+t.quoted+` (Entry, ObjectType) VALUES (?, ?)`,
		entry, string(kind),
	)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("begin row: insert: %w", err)
	}
	t.entry = entry

	return &Row{table: t, tx: tx, entry: entry}, nil
}

// Entry returns the row's Entry number.
func (r *Row) Entry() int64 {
	return r.entry
}

// Set writes exactly one column of this row.
// A UNIQUE violation (only possible for ID) is reported as ErrUniqueViolation
// and leaves the transaction usable.
func (r *Row) Set(ctx context.Context, f record.Field, v record.Value) error {
	if r.done {
		return fmt.Errorf("set %s: row %d already finished", f, r.entry)
	}
	col, err := columnFor(f)
	if err != nil {
		return fmt.Errorf("set %s: %w", f, err)
	}

	_, err = r.tx.ExecContext(ctx,
		`UPDATE `+r.table.quoted+` SET `+col+` = ? WHERE Entry = ?`,
		record.SQLValue(v), r.entry,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("set %s: %w: %v", f, ErrUniqueViolation, err)
		}
		return fmt.Errorf("set %s: %w", f, err)
	}
	return nil
}

// AssignPlaceholderID writes the next placeholder into the ID column and
// returns it. The counter moves down on every use, including placeholders
// skipped because the source document already used that negative ID.
func (r *Row) AssignPlaceholderID(ctx context.Context) (int64, error) {
	t := r.table
	for {
		id := t.placeholder
		t.placeholder--

		err := r.Set(ctx, record.FieldID, record.Int(id))
		if errors.Is(err, ErrUniqueViolation) {
			continue
		}
		if err != nil {
			return 0, err
		}
		t.placeholders = append(t.placeholders, id)
		return id, nil
	}
}

// ParentOnError returns the OnError column of the row whose ID is parentID,
// as seen by this record's transaction. Returns ErrParentNotFound when no
// row has that ID. A parent with NULL OnError yields Valid=false.
func (r *Row) ParentOnError(ctx context.Context, parentID int64) (sql.NullString, error) {
	var onError sql.NullString
	err := r.tx.QueryRowContext(ctx,
		`SELECT OnError FROM `+r.table.quoted+` WHERE ID = ?`, parentID,
	).Scan(&onError)
	if errors.Is(err, sql.ErrNoRows) {
		return sql.NullString{}, fmt.Errorf("parent ID %d in %q: %w", parentID, r.table.name, ErrParentNotFound)
	}
	if err != nil {
		return sql.NullString{}, fmt.Errorf("lookup parent ID %d: %w", parentID, err)
	}
	return onError, nil
}

// SetNullableText writes a text column that may be NULL.
func (r *Row) SetNullableText(ctx context.Context, f record.Field, v sql.NullString) error {
	if v.Valid {
		return r.Set(ctx, f, record.Text(v.String))
	}
	return r.Set(ctx, f, nil)
}

// Commit makes the record durable.
func (r *Row) Commit() error {
	if r.done {
		return fmt.Errorf("commit: row %d already finished", r.entry)
	}
	r.done = true
	if err := r.tx.Commit(); err != nil {
		return fmt.Errorf("commit row %d: %w", r.entry, err)
	}
	return nil
}

// Rollback discards the record. Safe to call after Commit (no-op).
func (r *Row) Rollback() error {
	if r.done {
		return nil
	}
	r.done = true
	if err := r.tx.Rollback(); err != nil {
		return fmt.Errorf("rollback row %d: %w", r.entry, err)
	}
	return nil
}
