package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ImportRecord is one line of the import log.
type ImportRecord struct {
	RunID         string    `json:"run_id"`
	Table         string    `json:"table"`
	SourcePath    string    `json:"source_path"`
	Plans         int       `json:"plans"`
	Jobs          int       `json:"jobs"`
	Placeholders  []int64   `json:"placeholders,omitempty"`
	SkippedFields []string  `json:"skipped_fields,omitempty"`
	ImportedAt    time.Time `json:"imported_at"`
}

// RecordImport appends a line to the import log.
func (s *Store) RecordImport(ctx context.Context, rec ImportRecord) error {
	placeholders := make([]string, len(rec.Placeholders))
	for i, p := range rec.Placeholders {
		placeholders[i] = strconv.FormatInt(p, 10)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO schedmap_imports
		(run_id, table_name, source_path, plans, jobs, placeholders, skipped_fields, imported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.RunID,
		rec.Table,
		rec.SourcePath,
		rec.Plans,
		rec.Jobs,
		strings.Join(placeholders, ","),
		strings.Join(rec.SkippedFields, ","),
		rec.ImportedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record import: %w", err)
	}
	return nil
}

// Imports returns the import log, oldest first. A non-empty table filters
// to that document table.
func (s *Store) Imports(ctx context.Context, table string) ([]ImportRecord, error) {
	query := `
		SELECT run_id, table_name, source_path, plans, jobs, placeholders, skipped_fields, imported_at
		FROM schedmap_imports`
	var args []any
	if table != "" {
		query += ` WHERE table_name = ?`
		args = append(args, table)
	}
	query += ` ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query imports: %w", err)
	}
	defer rows.Close()

	out := []ImportRecord{}
	for rows.Next() {
		var (
			rec                   ImportRecord
			placeholders, skipped string
			importedAt            string
		)
		if err := rows.Scan(&rec.RunID, &rec.Table, &rec.SourcePath, &rec.Plans, &rec.Jobs,
			&placeholders, &skipped, &importedAt); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}

		if placeholders != "" {
			for _, p := range strings.Split(placeholders, ",") {
				n, err := strconv.ParseInt(p, 10, 64)
				if err != nil {
					return nil, fmt.Errorf("parse placeholder %q: %w", p, err)
				}
				rec.Placeholders = append(rec.Placeholders, n)
			}
		}
		if skipped != "" {
			rec.SkippedFields = strings.Split(skipped, ",")
		}
		rec.ImportedAt, err = time.Parse(time.RFC3339, importedAt)
		if err != nil {
			return nil, fmt.Errorf("parse imported_at %q: %w", importedAt, err)
		}

		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate imports: %w", err)
	}
	return out, nil
}
