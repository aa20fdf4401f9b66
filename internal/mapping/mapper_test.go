package mapping

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/schedmap/internal/testutil"
)

var (
	el       = testutil.Element
	schedule = testutil.Schedule
)

func TestMapDocument_IDsVerbatim(t *testing.T) {
	st := newTestStore(t)

	sum, err := mapXML(t, st, skipUnknown(), "jobs", schedule(
		el("Job", "Name", "a", "ID", "10"),
		el("Job", "Name", "b", "ID", "20"),
		el("Job", "Name", "c", "ID", "30"),
	))
	require.NoError(t, err)
	assert.Equal(t, StateDone, sum.Final)
	assert.Equal(t, 3, sum.Jobs)
	assert.Empty(t, sum.Placeholders)

	rows := rowsOf(t, st, "jobs")
	require.Len(t, rows, 3)
	for i, want := range []int64{10, 20, 30} {
		assert.True(t, rows[i].ID.Valid)
		assert.Equal(t, want, rows[i].ID.Int64)
	}
}

func TestMapDocument_OnErrorInheritedFromPlan(t *testing.T) {
	st := newTestStore(t)

	// The Job comes first in the document; Plans are still mapped first.
	_, err := mapXML(t, st, skipUnknown(), "sched", schedule(
		el("Job", "ParentObject", "1", "ID", "2"),
		el("Plan", "ID", "1", "OnError", "retry"),
	))
	require.NoError(t, err)

	rows := rowsOf(t, st, "sched")
	require.Len(t, rows, 2)
	assert.Equal(t, "Plan", rows[0].ObjectType)
	assert.Equal(t, "Job", rows[1].ObjectType)
	assert.Equal(t, int64(2), rows[1].Entry)
	assert.Equal(t, "retry", rows[1].OnError.String)
	assert.True(t, rows[1].OnError.Valid)
}

func TestMapDocument_OnErrorChain(t *testing.T) {
	st := newTestStore(t)

	_, err := mapXML(t, st, skipUnknown(), "chain", schedule(
		el("Plan", "ID", "1", "OnError", "retry"),
		el("Job", "ID", "2", "ParentObject", "1"),
		el("Job", "ID", "3", "ParentObject", "2", "OnError", ""),
		el("Job", "ID", "4", "ParentObject", "1", "OnError", "page on-call"),
		el("Job", "ID", "5", "OnError", "", "ParentObject", "4"),
	))
	require.NoError(t, err)

	rows := rowsOf(t, st, "chain")
	require.Len(t, rows, 5)
	got := []string{}
	for _, r := range rows {
		got = append(got, r.OnError.String)
	}
	assert.Equal(t, []string{"retry", "retry", "retry", "page on-call", "page on-call"}, got)
}

func TestMapDocument_OnErrorNullParent(t *testing.T) {
	st := newTestStore(t)

	_, err := mapXML(t, st, skipUnknown(), "nulls", schedule(
		el("Plan", "ID", "1"),
		el("Job", "ID", "2", "ParentObject", "1"),
		el("Job", "ID", "3"),
	))
	require.NoError(t, err)

	rows := rowsOf(t, st, "nulls")
	for _, r := range rows {
		assert.False(t, r.OnError.Valid, "entry %d", r.Entry)
	}
}

func TestMapDocument_ParentLookupFailure(t *testing.T) {
	tests := map[string]string{
		"missing parent row":          el("Job", "ID", "2", "ParentObject", "99"),
		"empty OnError and no parent": el("Job", "ID", "2", "OnError", ""),
	}
	for name, job := range tests {
		t.Run(name, func(t *testing.T) {
			st := newTestStore(t)

			sum, err := mapXML(t, st, skipUnknown(), "orphans", schedule(
				el("Plan", "ID", "1", "OnError", "retry"),
				job,
			))
			require.Error(t, err)
			assert.True(t, hasCode(err, ErrCodeParentLookupFailure))
			require.NotNil(t, sum)
			assert.Equal(t, StateMapJobs, sum.Final)
			assert.Equal(t, 1, sum.Plans)
			assert.Equal(t, 0, sum.Jobs)

			var me *MappingError
			require.ErrorAs(t, err, &me)
			assert.Equal(t, "orphans", me.Table)
			assert.Equal(t, int64(2), me.Entry)

			// The failing record is rolled back; the Plan stays.
			rows := rowsOf(t, st, "orphans")
			require.Len(t, rows, 1)
			assert.Equal(t, "Plan", rows[0].ObjectType)

			imports, err := st.Imports(context.Background(), "orphans")
			require.NoError(t, err)
			assert.Empty(t, imports)
		})
	}
}

func TestMapDocument_DuplicateIDsGetDecreasingPlaceholders(t *testing.T) {
	st := newTestStore(t)
	op := skipUnknown()

	sum, err := mapXML(t, st, op, "dups", schedule(
		el("Job", "Name", "first", "ID", "5"),
		el("Job", "Name", "second", "ID", "5"),
		el("Job", "Name", "third", "ID", "abc"),
		el("Job", "Name", "fourth", "ID", "5"),
		el("Job", "Name", "fifth", "ID", "6"),
	))
	require.NoError(t, err)
	assert.Equal(t, []int64{-1, -2, -3}, sum.Placeholders)

	rows := rowsOf(t, st, "dups")
	ids := []int64{}
	for _, r := range rows {
		ids = append(ids, r.ID.Int64)
	}
	assert.Equal(t, []int64{5, -1, -2, -3, 6}, ids)
	assert.Equal(t, "second", rows[1].Name.String)

	require.Len(t, op.Events, 3)
	for i, ev := range op.Events {
		assert.Equal(t, "acknowledge", ev.Type)
		assert.Equal(t, ErrCodeDuplicateOrInvalidID, ev.Code)
		assert.Equal(t, "ID", ev.Tag)
		assert.Equal(t, int64(i+2), ev.Entry)
	}

	require.Len(t, sum.Notices, 3)
	assert.Equal(t, int64(-1), sum.Notices[0].Placeholder)
	assert.Contains(t, sum.Notices[1].Message, `"abc" is not an integer`)
}

func TestMapDocument_PlaceholdersResetPerDocument(t *testing.T) {
	st := newTestStore(t)
	doc := schedule(el("Job", "ID", "1"), el("Job", "ID", "1"))

	for _, table := range []string{"a", "b"} {
		sum, err := mapXML(t, st, skipUnknown(), table, doc)
		require.NoError(t, err)
		assert.Equal(t, []int64{-1}, sum.Placeholders, table)
	}
}

func TestMapDocument_UnknownFieldSkip(t *testing.T) {
	st := newTestStore(t)
	op := skipUnknown()

	sum, err := mapXML(t, st, op, "extra", schedule(
		el("Job", "Name", "backup", "Foo", "bar", "ID", "4", "Command", "backup.sh"),
	))
	require.NoError(t, err)
	assert.Equal(t, []string{"Foo"}, sum.SkippedFields)

	rows := rowsOf(t, st, "extra")
	require.Len(t, rows, 1)
	assert.Equal(t, "backup", rows[0].Name.String)
	assert.Equal(t, int64(4), rows[0].ID.Int64)
	assert.Equal(t, "backup.sh", rows[0].Command.String)
	for col, v := range rows[0].Columns() {
		if s, ok := v.(string); ok {
			assert.NotContains(t, s, "bar", col)
		}
	}

	require.Len(t, op.Events, 1)
	assert.Equal(t, Event{
		Type: "unknown_field", Table: "extra", Entry: 1,
		Code: ErrCodeUnknownField, Tag: "Foo", Answer: "skip",
	}, op.Events[0])
}

func TestMapDocument_UnknownFieldAbort(t *testing.T) {
	st := newTestStore(t)
	op := &Recorder{Next: Policy{Unknown: DecisionAbort}}

	sum, err := mapXML(t, st, op, "abort", schedule(
		el("Plan", "ID", "1", "Name", "ok"),
		el("Job", "ID", "2", "Foo", "bar", "Name", "never"),
		el("Job", "ID", "3"),
	))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAborted))
	assert.Equal(t, StateMapJobs, sum.Final)
	assert.Equal(t, 0, sum.Jobs)

	rows := rowsOf(t, st, "abort")
	require.Len(t, rows, 1)
	assert.Equal(t, "ok", rows[0].Name.String)

	imports, err := st.Imports(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, imports)
}

func TestMapDocument_EntriesContiguousPlansFirst(t *testing.T) {
	st := newTestStore(t)

	sum, err := mapXML(t, st, skipUnknown(), "order", schedule(
		el("Job", "Name", "j1"),
		el("Plan", "Name", "p1"),
		el("Job", "Name", "j2"),
		el("Plan", "Name", "p2"),
		el("Job", "Name", "j3"),
	))
	require.NoError(t, err)
	assert.Equal(t, 5, sum.Rows())

	rows := rowsOf(t, st, "order")
	var names []string
	for i, r := range rows {
		assert.Equal(t, int64(i+1), r.Entry)
		names = append(names, r.ObjectType+":"+r.Name.String)
	}
	assert.Equal(t, []string{"Plan:p1", "Plan:p2", "Job:j1", "Job:j2", "Job:j3"}, names)
}

func TestMapDocument_MissingAndInvalidValues(t *testing.T) {
	st := newTestStore(t)
	op := skipUnknown()

	_, err := mapXML(t, st, op, "gaps", schedule(
		el("Job", "Name", "no id", "ID", "", "Enabled", "", "Command", "run"),
		el("Job", "Name", "bad enabled", "ID", "7", "Enabled", "yes", "ParentObject", "x", "Dependencies", "<Dep>1</Dep><Dep>two</Dep>"),
	))
	require.NoError(t, err)

	rows := rowsOf(t, st, "gaps")
	require.Len(t, rows, 2)
	assert.False(t, rows[0].ID.Valid)
	assert.False(t, rows[0].Enabled.Valid)
	assert.Equal(t, "run", rows[0].Command.String)
	assert.Equal(t, int64(7), rows[1].ID.Int64)
	assert.False(t, rows[1].Enabled.Valid)
	assert.False(t, rows[1].ParentObject.Valid)
	assert.False(t, rows[1].Dependencies.Valid)

	codes := []ErrorCode{}
	for _, ev := range op.Events {
		codes = append(codes, ev.Code)
	}
	assert.Equal(t, []ErrorCode{
		ErrCodeMissingRequiredValue, ErrCodeMissingRequiredValue,
		ErrCodeInvalidValue, ErrCodeInvalidValue, ErrCodeInvalidValue,
	}, codes)
}

func TestMapDocument_FieldParsing(t *testing.T) {
	st := newTestStore(t)

	_, err := mapXML(t, st, skipUnknown(), "fields", schedule(
		el("Job",
			"name", "nightly",
			"Description", "Runs <b>every</b> night",
			"ID", "12",
			"ENABLED", "1",
			"Command", "backup.sh --full",
			"TriggerRules", "Daily<At>02:00</At>",
			"Triggers", "<Trigger>ignored</Trigger>",
			"Dependencies", "<Dep>3</Dep><Dep>7</Dep>",
			"OnError", "stop",
		),
	))
	require.NoError(t, err)

	rows := rowsOf(t, st, "fields")
	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, "Job", r.ObjectType)
	assert.Equal(t, "nightly", r.Name.String)
	assert.Equal(t, "Runs every night", r.Description.String)
	assert.Equal(t, int64(12), r.ID.Int64)
	assert.Equal(t, int64(1), r.Enabled.Int64)
	assert.Equal(t, "backup.sh --full", r.Command.String)
	assert.Equal(t, "Daily: 02:00", r.TriggerRules.String)
	assert.False(t, r.Triggers.Valid)
	assert.Equal(t, "3, 7", r.Dependencies.String)
	assert.Equal(t, "stop", r.OnError.String)
	assert.False(t, r.ParentObject.Valid)
}

func TestMapDocument_Override(t *testing.T) {
	st := newTestStore(t)
	first := schedule(el("Job", "Name", "old", "ID", "1"))
	second := schedule(el("Job", "Name", "new", "ID", "1"), el("Job", "Name", "extra", "ID", "2"))

	_, err := mapXML(t, st, skipUnknown(), "sched", first)
	require.NoError(t, err)

	keep := &Recorder{Next: Policy{Override: false}}
	sum, err := mapXML(t, st, keep, "sched", second)
	require.NoError(t, err)
	assert.True(t, sum.Declined)
	assert.Equal(t, []Event{{Type: "override", Table: "sched", Answer: "keep"}}, keep.Events)
	rows := rowsOf(t, st, "sched")
	require.Len(t, rows, 1)
	assert.Equal(t, "old", rows[0].Name.String)

	sum, err = mapXML(t, st, skipUnknown(), "sched", second)
	require.NoError(t, err)
	assert.False(t, sum.Declined)
	rows = rowsOf(t, st, "sched")
	require.Len(t, rows, 2)
	assert.Equal(t, "new", rows[0].Name.String)
	assert.Equal(t, int64(1), rows[0].Entry)
}

func TestMapDocument_MalformedTouchesNothing(t *testing.T) {
	st := newTestStore(t)

	sum, err := mapXML(t, st, skipUnknown(), "broken", "<Schedule><Job></Schedule>")
	require.Error(t, err)
	assert.Nil(t, sum)
	assert.True(t, IsMalformedDocument(err))

	exists, err := st.TableExists(context.Background(), "broken")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMapDocument_ReservedTableName(t *testing.T) {
	st := newTestStore(t)
	_, err := mapXML(t, st, skipUnknown(), "schedmap_imports", schedule())
	require.Error(t, err)
}

func TestMapDocument_RecordsImport(t *testing.T) {
	st := newTestStore(t)

	_, err := mapXML(t, st, skipUnknown(), "logged", schedule(
		el("Plan", "ID", "1"),
		el("Job", "ID", "1", "Foo", ""),
		el("Job", "ID", "2"),
	))
	require.NoError(t, err)

	imports, err := st.Imports(context.Background(), "logged")
	require.NoError(t, err)
	require.Len(t, imports, 1)
	rec := imports[0]
	assert.Equal(t, "run-test", rec.RunID)
	assert.Equal(t, "logged.xml", rec.SourcePath)
	assert.Equal(t, 1, rec.Plans)
	assert.Equal(t, 2, rec.Jobs)
	assert.Equal(t, []int64{-1}, rec.Placeholders)
	assert.Equal(t, []string{"Foo"}, rec.SkippedFields)
	assert.True(t, rec.ImportedAt.Equal(testutil.Epoch))
}

func TestMapFile(t *testing.T) {
	st := newTestStore(t)
	dir := t.TempDir()
	path := testutil.WriteDocument(t, dir, "nightly.xml", schedule(el("Job", "ID", "1")))

	m := newTestMapper(st, skipUnknown())
	sum, err := m.MapFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "nightly", sum.Table)
	assert.Equal(t, path, sum.Source)
	assert.Equal(t, "run-test", m.RunID())
	assert.Len(t, rowsOf(t, st, "nightly"), 1)
}

func TestValidateDocumentPath(t *testing.T) {
	dir := t.TempDir()
	good := testutil.WriteDocument(t, dir, "ok.xml", "<a/>")
	txt := testutil.WriteDocument(t, dir, "notes.txt", "<a/>")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "folder.xml"), 0o755))

	assert.NoError(t, ValidateDocumentPath(good))

	err := ValidateDocumentPath(txt)
	require.ErrorIs(t, err, ErrInvalidDocument)
	assert.Contains(t, err.Error(), ".xml")

	err = ValidateDocumentPath(filepath.Join(dir, "missing.xml"))
	require.ErrorIs(t, err, ErrInvalidDocument)
	assert.Contains(t, err.Error(), "not found")

	assert.ErrorIs(t, ValidateDocumentPath(filepath.Join(dir, "folder.xml")), ErrInvalidDocument)
}

func TestMapDocument_NoticesCarryLine(t *testing.T) {
	st := newTestStore(t)

	sum, err := mapXML(t, st, skipUnknown(), "lines", `<Schedule>
  <Job><ID>1</ID></Job>

  <Job><ID>1</ID></Job>
</Schedule>`)
	require.NoError(t, err)
	require.Len(t, sum.Notices, 1)
	assert.Equal(t, ErrCodeDuplicateOrInvalidID, sum.Notices[0].Code)
	assert.Equal(t, 4, sum.Notices[0].Line)
}

func TestMapDocument_InlineSpaceKept(t *testing.T) {
	st := newTestStore(t)

	_, err := mapXML(t, st, skipUnknown(), "names", schedule(
		el("Job", "ID", "1", "Name", "<First>John</First> <Last>Doe</Last>"),
	))
	require.NoError(t, err)

	rows := rowsOf(t, st, "names")
	require.Len(t, rows, 1)
	assert.Equal(t, "John Doe", rows[0].Name.String)
}

func TestMapDocument_LogsTableOnce(t *testing.T) {
	st := newTestStore(t)
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	m := New(st, skipUnknown(), WithRunID("run-test"), WithLogger(logger))
	_, err := m.MapDocument(context.Background(), "logged", "logged.xml", strings.NewReader(schedule(
		el("Job", "ID", "1", "Foo", "x"),
		el("Job", "ID", "1", "Enabled", "yes"),
	)))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	for _, line := range lines {
		assert.Equal(t, 1, strings.Count(line, "table="), line)
	}
	assert.Contains(t, buf.String(), "unknown field skipped")
	assert.Contains(t, buf.String(), "recovered field error")
	assert.Contains(t, buf.String(), "field written")
}

func TestTableName(t *testing.T) {
	assert.Equal(t, "nightly", TableName("/data/nightly.xml"))
	assert.Equal(t, "a.b", TableName("a.b.xml"))
	assert.Equal(t, "plain", TableName("plain"))
}

func TestNewRunID(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
	assert.True(t, strings.Count(a, "-") == 4)

	m := New(newTestStore(t), Policy{})
	assert.Len(t, m.RunID(), 36)
}
