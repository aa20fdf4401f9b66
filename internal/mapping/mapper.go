package mapping

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/schedmap/internal/store"
)

// DocumentExt is the required extension of source documents.
const DocumentExt = ".xml"

// State is the Mapper's position within one document.
type State int

const (
	StateExtractRecords State = iota
	StateMapPlans
	StateMapJobs
	StateDone
)

func (s State) String() string {
	switch s {
	case StateExtractRecords:
		return "ExtractRecords"
	case StateMapPlans:
		return "MapPlans"
	case StateMapJobs:
		return "MapJobs"
	case StateDone:
		return "Done"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Summary describes what happened to one document.
type Summary struct {
	RunID  string `json:"run_id"`
	Table  string `json:"table"`
	Source string `json:"source"`

	// Declined is true when the table existed and the operator kept it.
	Declined bool `json:"declined,omitempty"`

	// Final is the state reached; StateDone unless mapping stopped early.
	Final State `json:"-"`

	Plans         int             `json:"plans"`
	Jobs          int             `json:"jobs"`
	Placeholders  []int64         `json:"placeholders,omitempty"`
	SkippedFields []string        `json:"skipped_fields,omitempty"`
	Notices       []*MappingError `json:"-"`
}

// Rows returns the number of rows written.
func (s *Summary) Rows() int {
	return s.Plans + s.Jobs
}

// Mapper maps documents into one store. It keeps no state between
// documents apart from the run id.
type Mapper struct {
	store  *store.Store
	op     Operator
	logger *slog.Logger
	runID  string
	now    func() time.Time
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Mapper) { m.logger = l }
}

// WithRunID fixes the run id recorded in the import log.
func WithRunID(id string) Option {
	return func(m *Mapper) { m.runID = id }
}

// WithClock overrides the import timestamp source.
func WithClock(now func() time.Time) Option {
	return func(m *Mapper) { m.now = now }
}

// NewRunID returns a time-sortable UUIDv7 run identifier.
func NewRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// New creates a Mapper writing to st and asking op.
func New(st *store.Store, op Operator, opts ...Option) *Mapper {
	m := &Mapper{
		store:  st,
		op:     op,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.runID == "" {
		m.runID = NewRunID()
	}
	return m
}

// RunID returns the identifier recorded for every document of this run.
func (m *Mapper) RunID() string {
	return m.runID
}

// ValidateDocumentPath checks that path names an existing .xml file.
func ValidateDocumentPath(path string) error {
	if !strings.HasSuffix(path, DocumentExt) {
		return fmt.Errorf("%w: the file extension must be %q: %s", ErrInvalidDocument, DocumentExt, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: file not found: %s", ErrInvalidDocument, path)
		}
		return fmt.Errorf("%w: stat %s: %v", ErrInvalidDocument, path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrInvalidDocument, path)
	}
	return nil
}

// TableName derives the table name from a document path: the base name
// without its extension.
func TableName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// MapFile maps the document at path into the table named after it.
func (m *Mapper) MapFile(ctx context.Context, path string) (*Summary, error) {
	if err := ValidateDocumentPath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer f.Close()

	return m.MapDocument(ctx, TableName(path), path, f)
}

// MapDocument maps one document read from r into table.
//
// The document is parsed completely before the database is touched, so a
// malformed document changes nothing. If the table exists the operator is
// asked once whether to override it. Plans are mapped before Jobs; every
// record is committed on its own.
//
// On ErrAborted or a parent lookup failure the record in progress is rolled
// back, records already committed stay, and the partial summary is returned
// alongside the error.
func (m *Mapper) MapDocument(ctx context.Context, table, source string, r io.Reader) (*Summary, error) {
	sum := &Summary{RunID: m.runID, Table: table, Source: source, Final: StateExtractRecords}
	logger := m.logger.With("table", table, "run_id", m.runID)

	if err := store.ValidateTableName(table); err != nil {
		return nil, err
	}

	doc, err := Parse(r)
	if err != nil {
		var me *MappingError
		if errors.As(err, &me) {
			me.Table = table
		}
		return nil, err
	}
	logger.Info("document parsed", "source", source, "plans", len(doc.Plans), "jobs", len(doc.Jobs))

	proceed, err := m.prepareTable(ctx, table, logger)
	if err != nil {
		return nil, err
	}
	if !proceed {
		sum.Declined = true
		logger.Info("existing table kept, document skipped")
		return sum, nil
	}

	tbl, err := m.store.CreateTable(ctx, table)
	if err != nil {
		return nil, err
	}

	norm := NewNormalizer(table, m.op, logger)
	groups := []struct {
		state    State
		elements []Element
		count    *int
	}{
		{StateMapPlans, doc.Plans, &sum.Plans},
		{StateMapJobs, doc.Jobs, &sum.Jobs},
	}

	for _, g := range groups {
		sum.Final = g.state
		for _, el := range g.elements {
			skipped, err := m.mapElement(ctx, tbl, norm, el)
			sum.SkippedFields = append(sum.SkippedFields, skipped...)
			if err != nil {
				sum.Placeholders = tbl.Placeholders()
				sum.Notices = norm.Notices()
				logger.Error("document stopped", "state", g.state.String(), "entry", tbl.Entries(), "error", err)
				return sum, err
			}
			*g.count++
		}
	}

	sum.Final = StateDone
	sum.Placeholders = tbl.Placeholders()
	sum.Notices = norm.Notices()

	err = m.store.RecordImport(ctx, store.ImportRecord{
		RunID:         m.runID,
		Table:         table,
		SourcePath:    source,
		Plans:         sum.Plans,
		Jobs:          sum.Jobs,
		Placeholders:  sum.Placeholders,
		SkippedFields: sum.SkippedFields,
		ImportedAt:    m.now(),
	})
	if err != nil {
		return sum, err
	}

	logger.Info("document mapped",
		"rows", sum.Rows(),
		"placeholders", len(sum.Placeholders),
		"skipped_fields", len(sum.SkippedFields),
	)
	return sum, nil
}

// prepareTable asks about an existing table and drops it on override.
func (m *Mapper) prepareTable(ctx context.Context, table string, logger *slog.Logger) (bool, error) {
	exists, err := m.store.TableExists(ctx, table)
	if err != nil {
		return false, err
	}
	if !exists {
		return true, nil
	}

	override, err := m.op.ConfirmOverride(ctx, table)
	if err != nil {
		return false, fmt.Errorf("confirm override of %q: %w", table, err)
	}
	if !override {
		return false, nil
	}

	logger.Info("overriding existing table")
	if err := m.store.DropTable(ctx, table); err != nil {
		return false, err
	}
	return true, nil
}

// mapElement writes one record and commits it. It returns the tags the
// operator skipped.
func (m *Mapper) mapElement(ctx context.Context, tbl *store.Table, norm *Normalizer, el Element) ([]string, error) {
	row, err := tbl.BeginRow(ctx, el.Kind)
	if err != nil {
		return nil, err
	}
	defer row.Rollback()

	d := NewDraft(el.Kind, row)
	d.Line = el.Line
	if err := norm.Normalize(ctx, d, el.Children); err != nil {
		return d.Record.Skipped, err
	}

	if err := row.Commit(); err != nil {
		return d.Record.Skipped, err
	}
	return d.Record.Skipped, nil
}

var _ RowWriter = (*store.Row)(nil)
