package harness

import (
	"bytes"
	"fmt"
	"strconv"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/schedmap/internal/mapping"
	"github.com/roach88/schedmap/internal/record"
	"github.com/roach88/schedmap/internal/store"
)

// Snapshot renders a result as stable text: one line per row with its
// non-NULL columns, one line per operator event, and the outcome.
//
//	rows:
//	  1 Plan ID=1 OnError="retry"
//	events:
//	  acknowledge entry=2 code=DUPLICATE_OR_INVALID_ID tag=ID
//	result: ok
func Snapshot(r *Result) []byte {
	var b bytes.Buffer

	b.WriteString("rows:\n")
	for _, row := range r.Rows {
		fmt.Fprintf(&b, "  %s\n", formatRow(row))
	}

	b.WriteString("events:\n")
	for _, ev := range r.Events {
		fmt.Fprintf(&b, "  %s\n", formatEvent(ev))
	}

	outcome := r.ErrorCode()
	if outcome == "" {
		outcome = "ok"
	}
	fmt.Fprintf(&b, "result: %s\n", outcome)
	return b.Bytes()
}

// RunWithGolden executes a scenario, checks its assertions and compares
// its snapshot against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	for _, failure := range Check(scenario, result) {
		t.Error(failure)
	}
	AssertGolden(t, scenario.Name, result)
	return nil
}

// AssertGolden compares a result's snapshot against a golden file.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Snapshot(result))
}

func formatRow(row store.StoredRow) string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%d %s", row.Entry, row.ObjectType)
	cols := row.Columns()
	for _, f := range record.Fields {
		v := cols[f.Column()]
		if v == nil {
			continue
		}
		fmt.Fprintf(&b, " %s=%s", f.Column(), formatCell(v))
	}
	return b.String()
}

func formatCell(v any) string {
	switch c := v.(type) {
	case nil:
		return "NULL"
	case string:
		return strconv.Quote(c)
	case int64:
		return strconv.FormatInt(c, 10)
	}
	return fmt.Sprintf("%v", v)
}

func formatEvent(ev mapping.Event) string {
	var b bytes.Buffer
	b.WriteString(ev.Type)
	if ev.Entry > 0 {
		fmt.Fprintf(&b, " entry=%d", ev.Entry)
	}
	if ev.Code != "" {
		fmt.Fprintf(&b, " code=%s", ev.Code)
	}
	if ev.Tag != "" {
		fmt.Fprintf(&b, " tag=%s", ev.Tag)
	}
	if ev.Answer != "" {
		fmt.Fprintf(&b, " answer=%s", ev.Answer)
	}
	return b.String()
}
