package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/schedmap/internal/mapping"
	"github.com/roach88/schedmap/internal/store"
	"github.com/roach88/schedmap/internal/testutil"
)

// Result is the outcome of one scenario run.
type Result struct {
	Summary *mapping.Summary
	Rows    []store.StoredRow
	Events  []mapping.Event

	// Err is the error MapDocument returned, if any.
	Err error
}

// ErrorCode classifies Err with mapping.Code.
func (r *Result) ErrorCode() string {
	return mapping.Code(r.Err)
}

// Run maps the scenario's document into a fresh database and returns what
// happened. Scenario assertions are not evaluated; see Check.
//
// The returned error covers harness failures only (temp files, opening the
// store); mapping errors are reported in Result.Err.
func Run(s *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "schedmap-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	st, err := store.Open(filepath.Join(dir, "scenario.db"))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := testutil.NewSteppingClock()
	table := mapping.TableName(s.DocumentName())

	if s.Existing != "" {
		seed := mapping.New(st, mapping.Policy{Override: true, Unknown: mapping.DecisionSkip},
			mapping.WithLogger(logger),
			mapping.WithRunID("seed-"+s.Name),
			mapping.WithClock(clock.Now),
		)
		if _, err := seed.MapDocument(ctx, table, s.DocumentName(), strings.NewReader(s.Existing)); err != nil {
			return nil, fmt.Errorf("map existing document: %w", err)
		}
	}

	rec := &mapping.Recorder{Next: newScriptedOperator(s.Answers)}
	m := mapping.New(st, rec,
		mapping.WithLogger(logger),
		mapping.WithRunID("scenario-"+s.Name),
		mapping.WithClock(clock.Now),
	)

	sum, mapErr := m.MapDocument(ctx, table, s.DocumentName(), strings.NewReader(s.XML))

	result := &Result{Summary: sum, Events: rec.Events, Err: mapErr}
	exists, err := st.TableExists(ctx, table)
	if err != nil {
		return nil, err
	}
	if exists {
		result.Rows, err = st.Rows(ctx, table)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// scriptedOperator answers from a scenario's Answers.
type scriptedOperator struct {
	override bool
	unknown  []mapping.Decision
}

func newScriptedOperator(a Answers) *scriptedOperator {
	op := &scriptedOperator{override: true}
	if a.Override != nil {
		op.override = *a.Override
	}
	for _, answer := range a.UnknownField {
		// validateScenario has already parsed every answer.
		d, _ := mapping.ParseDecision(answer)
		op.unknown = append(op.unknown, d)
	}
	return op
}

func (o *scriptedOperator) ConfirmOverride(context.Context, string) (bool, error) {
	return o.override, nil
}

func (o *scriptedOperator) ResolveUnknownField(context.Context, *mapping.MappingError) (mapping.Decision, error) {
	if len(o.unknown) == 0 {
		return mapping.DecisionAbort, nil
	}
	d := o.unknown[0]
	o.unknown = o.unknown[1:]
	return d, nil
}

func (o *scriptedOperator) Acknowledge(context.Context, *mapping.MappingError) error {
	return nil
}
