package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/schedmap/internal/record"
)

// StoredRow is one persisted Job/Plan row. Nullable columns use sql.Null*.
type StoredRow struct {
	Entry        int64
	ObjectType   string
	Name         sql.NullString
	Description  sql.NullString
	ID           sql.NullInt64
	Enabled      sql.NullInt64
	Command      sql.NullString
	ParentObject sql.NullInt64
	TriggerRules sql.NullString
	Triggers     sql.NullString
	Dependencies sql.NullString
	OnError      sql.NullString
}

// Columns returns the row as column name -> value, with NULL as nil.
// Keys use the table's column spelling.
func (r StoredRow) Columns() map[string]any {
	return map[string]any{
		"Entry":        r.Entry,
		"ObjectType":   r.ObjectType,
		"Name":         nullString(r.Name),
		"Description":  nullString(r.Description),
		"ID":           nullInt(r.ID),
		"Enabled":      nullInt(r.Enabled),
		"Command":      nullString(r.Command),
		"ParentObject": nullInt(r.ParentObject),
		"TriggerRules": nullString(r.TriggerRules),
		"Triggers":     nullString(r.Triggers),
		"Dependencies": nullString(r.Dependencies),
		"OnError":      nullString(r.OnError),
	}
}

func nullString(v sql.NullString) any {
	if !v.Valid {
		return nil
	}
	return v.String
}

func nullInt(v sql.NullInt64) any {
	if !v.Valid {
		return nil
	}
	return v.Int64
}

// Rows returns every row of a document table ordered by Entry.
// Returns an empty slice (not nil) for an empty table.
func (s *Store) Rows(ctx context.Context, table string) ([]StoredRow, error) {
	if err := ValidateTableName(table); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT Entry, ObjectType, Name, Description, ID, Enabled, Command,
		       ParentObject, TriggerRules, Triggers, Dependencies, OnError
		FROM `+quoteIdent(table)+`
		ORDER BY Entry ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query rows of %q: %w", table, err)
	}
	defer rows.Close()

	out := []StoredRow{}
	for rows.Next() {
		var (
			r          StoredRow
			objectType sql.NullString
		)
		if err := rows.Scan(
			&r.Entry, &objectType, &r.Name, &r.Description, &r.ID, &r.Enabled, &r.Command,
			&r.ParentObject, &r.TriggerRules, &r.Triggers, &r.Dependencies, &r.OnError,
		); err != nil {
			return nil, fmt.Errorf("scan row of %q: %w", table, err)
		}
		r.ObjectType = objectType.String
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows of %q: %w", table, err)
	}

	return out, nil
}

// Tables lists document tables in name order, excluding the import log.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%' AND name != ?
		ORDER BY name COLLATE BINARY ASC
	`, ImportsTable)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return names, nil
}

// documentColumns are the columns every document table has.
func documentColumns() []string {
	cols := []string{"Entry", "ObjectType"}
	for _, f := range record.Fields {
		cols = append(cols, f.Column())
	}
	return cols
}

// IsDocumentTable reports whether table has the document table columns.
// Tables created by other tools in the same database do not.
func (s *Store) IsDocumentTable(ctx context.Context, table string) (bool, error) {
	if err := ValidateTableName(table); err != nil {
		return false, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return false, fmt.Errorf("columns of %q: %w", table, err)
	}
	defer rows.Close()

	have := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false, fmt.Errorf("scan column of %q: %w", table, err)
		}
		have[name] = true
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("iterate columns of %q: %w", table, err)
	}

	for _, col := range documentColumns() {
		if !have[col] {
			return false, nil
		}
	}
	return true, nil
}

// CountRows returns the number of rows in table.
func (s *Store) CountRows(ctx context.Context, table string) (int, error) {
	if err := ValidateTableName(table); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+quoteIdent(table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rows of %q: %w", table, err)
	}
	return n, nil
}
