package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/schedmap/internal/record"
)

// ImportsTable is the reserved name of the import log.
const ImportsTable = "schedmap_imports"

// Table is one document's table together with the per-document counters
// the row writer owns: the entry sequence and the placeholder ID counter.
//
// A Table is not safe for concurrent use; exactly one document is mapped
// at a time.
type Table struct {
	store  *Store
	name   string
	quoted string

	// entry is the last Entry handed out; the first row gets 1.
	entry int64

	// placeholder is the next synthetic ID; starts at -1 and only decreases.
	placeholder int64

	// placeholders records every placeholder handed out, in order.
	placeholders []int64
}

// ValidateTableName rejects names that cannot hold a document table.
func ValidateTableName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty name", ErrInvalidTableName)
	case strings.HasPrefix(strings.ToLower(name), "sqlite_"):
		return fmt.Errorf("%w: %q uses the reserved sqlite_ prefix", ErrInvalidTableName, name)
	case strings.EqualFold(name, ImportsTable):
		return fmt.Errorf("%w: %q is reserved for the import log", ErrInvalidTableName, name)
	}
	return nil
}

// quoteIdent quotes an SQL identifier, doubling embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// TableExists reports whether a table with the given name exists.
func (s *Store) TableExists(ctx context.Context, name string) (bool, error) {
	var found string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, name,
	).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check table %q: %w", name, err)
	}
	return true, nil
}

// DropTable removes a document table. Missing tables are not an error.
func (s *Store) DropTable(ctx context.Context, name string) error {
	if err := ValidateTableName(name); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS `+quoteIdent(name)); err != nil {
		return fmt.Errorf("drop table %q: %w", name, err)
	}
	return nil
}

// CreateTable creates the document table and returns a handle with fresh
// counters. It fails if the table already exists; callers decide about
// overrides before calling it.
func (s *Store) CreateTable(ctx context.Context, name string) (*Table, error) {
	if err := ValidateTableName(name); err != nil {
		return nil, err
	}

	quoted := quoteIdent(name)
	_, err := s.db.ExecContext(ctx, `CREATE TABLE `+quoted+` (
		Entry        INTEGER PRIMARY KEY,
		ObjectType   TEXT,
		Name         TEXT,
		Description  TEXT,
		ID           INTEGER UNIQUE,
		Enabled      INTEGER,
		Command      TEXT,
		ParentObject INTEGER,
		TriggerRules TEXT,
		Triggers     TEXT,
		Dependencies TEXT,
		OnError      TEXT
	)`)
	if err != nil {
		return nil, fmt.Errorf("create table %q: %w", name, err)
	}

	return &Table{
		store:       s,
		name:        name,
		quoted:      quoted,
		placeholder: -1,
	}, nil
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// Entries returns the number of rows begun so far.
func (t *Table) Entries() int64 {
	return t.entry
}

// Placeholders returns the placeholder IDs assigned so far, in order.
func (t *Table) Placeholders() []int64 {
	out := make([]int64, len(t.placeholders))
	copy(out, t.placeholders)
	return out
}

// columnFor maps a record field to its column, quoted for SQL.
func columnFor(f record.Field) (string, error) {
	for _, known := range record.Fields {
		if known == f {
			return quoteIdent(f.Column()), nil
		}
	}
	return "", fmt.Errorf("unknown field %v", f)
}
