package mapping

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/schedmap/internal/store"
	"github.com/roach88/schedmap/internal/testutil"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func newTestMapper(st *store.Store, op Operator) *Mapper {
	return New(st, op,
		WithRunID("run-test"),
		WithClock(testutil.NewSteppingClock().Now),
	)
}

func mapXML(t *testing.T, st *store.Store, op Operator, table, xml string) (*Summary, error) {
	t.Helper()
	m := newTestMapper(st, op)
	return m.MapDocument(context.Background(), table, table+".xml", strings.NewReader(xml))
}

func rowsOf(t *testing.T, st *store.Store, table string) []store.StoredRow {
	t.Helper()
	rows, err := st.Rows(context.Background(), table)
	require.NoError(t, err)
	return rows
}

func skipUnknown() *Recorder {
	return &Recorder{Next: Policy{Override: true, Unknown: DecisionSkip}}
}
