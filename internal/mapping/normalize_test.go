package mapping

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/schedmap/internal/record"
	"github.com/roach88/schedmap/internal/store"
)

// fakeRow records writes in order and serves parent lookups from a map.
type fakeRow struct {
	entry   int64
	writes  []string
	parents map[int64]sql.NullString
	next    int64
	taken   map[int64]bool
}

func newFakeRow() *fakeRow {
	return &fakeRow{entry: 1, next: -1, parents: map[int64]sql.NullString{}, taken: map[int64]bool{}}
}

func (f *fakeRow) Entry() int64 { return f.entry }

func (f *fakeRow) Set(_ context.Context, fld record.Field, v record.Value) error {
	if fld == record.FieldID {
		if n, ok := v.(record.Int); ok && f.taken[int64(n)] {
			return store.ErrUniqueViolation
		}
	}
	f.writes = append(f.writes, fld.Column()+"="+record.Format(v))
	return nil
}

func (f *fakeRow) SetNullableText(ctx context.Context, fld record.Field, v sql.NullString) error {
	if !v.Valid {
		return f.Set(ctx, fld, nil)
	}
	return f.Set(ctx, fld, record.Text(v.String))
}

func (f *fakeRow) AssignPlaceholderID(ctx context.Context) (int64, error) {
	id := f.next
	f.next--
	return id, f.Set(ctx, record.FieldID, record.Int(id))
}

func (f *fakeRow) ParentOnError(_ context.Context, id int64) (sql.NullString, error) {
	v, ok := f.parents[id]
	if !ok {
		return sql.NullString{}, store.ErrParentNotFound
	}
	return v, nil
}

func TestNormalize_WritesFieldAtATimeInDocumentOrder(t *testing.T) {
	row := newFakeRow()
	row.parents[1] = sql.NullString{String: "retry", Valid: true}
	d := NewDraft(record.KindJob, row)

	n := NewNormalizer("t", Policy{Unknown: DecisionSkip}, nil)
	err := n.Normalize(context.Background(), d, []Child{
		{Tag: "Command", Fragments: []string{"run.sh"}},
		{Tag: "ID", Fragments: []string{"4"}},
		{Tag: "Triggers", Fragments: []string{"x"}},
		{Tag: "ParentObject", Fragments: []string{"1"}},
		{Tag: "Name", Fragments: []string{"nightly"}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		`Command="run.sh"`,
		`ID=4`,
		`ParentObject=1`,
		`Name="nightly"`,
		`OnError="retry"`,
	}, row.writes)
	assert.Equal(t, "retry", d.Record.Text(record.FieldOnError))
	assert.Empty(t, n.Notices())
}

func TestNormalize_DeferredOnError(t *testing.T) {
	row := newFakeRow()
	row.parents[9] = sql.NullString{String: "alert", Valid: true}
	d := NewDraft(record.KindJob, row)

	n := NewNormalizer("t", Policy{}, nil)
	err := n.Normalize(context.Background(), d, []Child{
		{Tag: "OnError", Fragments: []string{}},
		{Tag: "ParentObject", Fragments: []string{"9"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{`ParentObject=9`, `OnError="alert"`}, row.writes)
}

func TestNormalize_DuplicateIDAcknowledged(t *testing.T) {
	row := newFakeRow()
	row.taken[5] = true
	d := NewDraft(record.KindJob, row)
	op := &Recorder{Next: Policy{}}

	n := NewNormalizer("t", op, nil)
	err := n.Normalize(context.Background(), d, []Child{
		{Tag: "Name", Fragments: []string{"dup"}},
		{Tag: "ID", Fragments: []string{"5"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{`Name="dup"`, `ID=-1`}, row.writes)

	require.Len(t, n.Notices(), 1)
	notice := n.Notices()[0]
	assert.Equal(t, ErrCodeDuplicateOrInvalidID, notice.Code)
	assert.Equal(t, int64(-1), notice.Placeholder)
	assert.Equal(t, record.FieldID, notice.Field)
	assert.Equal(t, `Job "dup" (ID 5)`, notice.Record)
	require.Len(t, op.Events, 1)
}

func TestNormalize_AbortStopsBeforeLaterFields(t *testing.T) {
	row := newFakeRow()
	d := NewDraft(record.KindPlan, row)

	n := NewNormalizer("t", Policy{Unknown: DecisionAbort}, nil)
	err := n.Normalize(context.Background(), d, []Child{
		{Tag: "Name", Fragments: []string{"p"}},
		{Tag: "Owner", Fragments: []string{"ops"}},
		{Tag: "ID", Fragments: []string{"1"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAborted)
	assert.Equal(t, []string{`Name="p"`}, row.writes)
}

// failingOperator errors on every question.
type failingOperator struct{}

var errOperatorGone = errors.New("operator gone")

func (failingOperator) ConfirmOverride(context.Context, string) (bool, error) {
	return false, errOperatorGone
}

func (failingOperator) ResolveUnknownField(context.Context, *MappingError) (Decision, error) {
	return 0, errOperatorGone
}

func (failingOperator) Acknowledge(context.Context, *MappingError) error {
	return errOperatorGone
}

func TestNormalize_OperatorErrorsPropagate(t *testing.T) {
	n := NewNormalizer("t", failingOperator{}, nil)

	err := n.Normalize(context.Background(), NewDraft(record.KindJob, newFakeRow()),
		[]Child{{Tag: "Foo"}})
	assert.ErrorIs(t, err, errOperatorGone)

	err = n.Normalize(context.Background(), NewDraft(record.KindJob, newFakeRow()),
		[]Child{{Tag: "ID"}})
	assert.ErrorIs(t, err, errOperatorGone)
}

func TestNormalize_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n := NewNormalizer("t", Policy{}, nil)
	err := n.Normalize(ctx, NewDraft(record.KindJob, newFakeRow()),
		[]Child{{Tag: "Name", Fragments: []string{"x"}}})
	assert.ErrorIs(t, err, context.Canceled)
}
