package harness

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/schedmap/internal/mapping"
	"github.com/roach88/schedmap/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes the mapped rows to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Rows     []store.StoredRow
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Rows) > 0 {
		fmt.Fprintf(&buf, "\nRows:\n")
		for _, row := range e.Rows {
			fmt.Fprintf(&buf, "  %s\n", formatRow(row))
		}
	}
	return buf.String()
}

// Check evaluates every assertion of s against r and returns the failures.
// An unexpected mapping error is itself a failure.
func Check(s *Scenario, r *Result) []error {
	var errs []error
	expectsError := false

	for _, a := range s.Assertions {
		if a.Type == AssertError {
			expectsError = true
		}
		if err := evaluate(a, r); err != nil {
			errs = append(errs, err)
		}
	}

	if !expectsError && r.Err != nil {
		errs = append(errs, &AssertionError{
			Type:     "no_error",
			Expected: "document mapped without error",
			Actual:   r.Err.Error(),
			Rows:     r.Rows,
		})
	}
	return errs
}

func evaluate(a Assertion, r *Result) error {
	switch a.Type {
	case AssertRowCount:
		return assertRowCount(r, *a.Count)
	case AssertRow:
		return assertRow(r, a.Entry, a.Expect)
	case AssertPlaceholders:
		return assertPlaceholders(r, a.Placeholders)
	case AssertSkippedFields:
		return assertSkippedFields(r, a.Tags)
	case AssertEvent:
		return assertEvent(r, *a.Event)
	case AssertError:
		return assertErrorCode(r, a.Code)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func assertRowCount(r *Result, want int) error {
	if len(r.Rows) == want {
		return nil
	}
	return &AssertionError{
		Type:     AssertRowCount,
		Expected: fmt.Sprintf("%d rows", want),
		Actual:   fmt.Sprintf("%d rows", len(r.Rows)),
		Rows:     r.Rows,
	}
}

func assertRow(r *Result, entry int64, expect map[string]any) error {
	for _, row := range r.Rows {
		if row.Entry != entry {
			continue
		}
		cols := row.Columns()
		for col, want := range expect {
			got := cols[col]
			if !valuesEqual(want, got) {
				return &AssertionError{
					Type:     AssertRow,
					Expected: fmt.Sprintf("entry %d %s = %s", entry, col, formatCell(normalizeExpected(want))),
					Actual:   fmt.Sprintf("entry %d %s = %s", entry, col, formatCell(got)),
					Rows:     r.Rows,
				}
			}
		}
		return nil
	}
	return &AssertionError{
		Type:     AssertRow,
		Expected: fmt.Sprintf("row with entry %d", entry),
		Actual:   "no such row",
		Rows:     r.Rows,
	}
}

func assertPlaceholders(r *Result, want []int64) error {
	var got []int64
	if r.Summary != nil {
		got = r.Summary.Placeholders
	}
	if len(got) == 0 && len(want) == 0 {
		return nil
	}
	if reflect.DeepEqual(got, want) {
		return nil
	}
	return &AssertionError{
		Type:     AssertPlaceholders,
		Expected: fmt.Sprintf("%v", want),
		Actual:   fmt.Sprintf("%v", got),
		Rows:     r.Rows,
	}
}

func assertSkippedFields(r *Result, want []string) error {
	var got []string
	if r.Summary != nil {
		got = r.Summary.SkippedFields
	}
	if len(got) == 0 && len(want) == 0 {
		return nil
	}
	if reflect.DeepEqual(got, want) {
		return nil
	}
	return &AssertionError{
		Type:     AssertSkippedFields,
		Expected: fmt.Sprintf("%v", want),
		Actual:   fmt.Sprintf("%v", got),
	}
}

func assertEvent(r *Result, want mapping.Event) error {
	for _, ev := range r.Events {
		if eventMatches(ev, want) {
			return nil
		}
	}
	actual := make([]string, len(r.Events))
	for i, ev := range r.Events {
		actual[i] = formatEvent(ev)
	}
	return &AssertionError{
		Type:     AssertEvent,
		Expected: formatEvent(want),
		Actual:   "[" + strings.Join(actual, "; ") + "]",
	}
}

// eventMatches reports whether ev has every non-empty field of want.
func eventMatches(ev, want mapping.Event) bool {
	if want.Type != "" && ev.Type != want.Type {
		return false
	}
	if want.Table != "" && ev.Table != want.Table {
		return false
	}
	if want.Entry != 0 && ev.Entry != want.Entry {
		return false
	}
	if want.Code != "" && ev.Code != want.Code {
		return false
	}
	if want.Tag != "" && ev.Tag != want.Tag {
		return false
	}
	if want.Answer != "" && ev.Answer != want.Answer {
		return false
	}
	return true
}

func assertErrorCode(r *Result, want string) error {
	got := r.ErrorCode()
	if got == want {
		return nil
	}
	actual := "no error"
	if r.Err != nil {
		actual = fmt.Sprintf("%s (%v)", got, r.Err)
	}
	return &AssertionError{
		Type:     AssertError,
		Expected: want,
		Actual:   actual,
		Rows:     r.Rows,
	}
}

// valuesEqual compares a YAML-decoded expectation with a stored column
// value. YAML integers decode as int; the store yields int64.
func valuesEqual(want, got any) bool {
	return reflect.DeepEqual(normalizeExpected(want), got)
}

func normalizeExpected(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case uint64:
		return int64(n)
	}
	return v
}
