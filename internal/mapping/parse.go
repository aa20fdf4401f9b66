package mapping

import (
	"strconv"
	"strings"

	"github.com/roach88/schedmap/internal/record"
)

// parseText concatenates all fragments, keeping inline separators.
func parseText(fragments []string) (record.Value, error) {
	return record.Text(strings.Join(fragments, "")), nil
}

// parseTriggerRules keeps the element/sub-element structure as "a: b: c".
func parseTriggerRules(fragments []string) (record.Value, error) {
	return record.Text(strings.Join(record.Content(fragments), ": ")), nil
}

// parseTriggers accepts the element and stores nothing.
// Triggers is part of the schema but carries no data yet.
func parseTriggers([]string) (record.Value, error) {
	return nil, nil
}

// parseID reads the first fragment as an integer. Text that is not an
// integer is kept as Invalid so the writer can substitute a placeholder.
func parseID(fragments []string) (record.Value, error) {
	fragments = record.Content(fragments)
	if len(fragments) == 0 {
		return nil, newMissingValue()
	}
	raw := strings.TrimSpace(fragments[0])
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return record.Invalid{Raw: raw}, nil
	}
	return record.Int(n), nil
}

// parseRequiredInt reads the first fragment as an integer; no fragment is
// a missing required value.
func parseRequiredInt(fragments []string) (record.Value, error) {
	fragments = record.Content(fragments)
	if len(fragments) == 0 {
		return nil, newMissingValue()
	}
	return atoi(fragments[0])
}

// parseOptionalInt is parseRequiredInt without the missing-value report.
func parseOptionalInt(fragments []string) (record.Value, error) {
	fragments = record.Content(fragments)
	if len(fragments) == 0 {
		return nil, nil
	}
	return atoi(fragments[0])
}

// parseDependencies converts every fragment to an integer and joins them
// as "3, 7".
func parseDependencies(fragments []string) (record.Value, error) {
	fragments = record.Content(fragments)
	deps := make([]string, 0, len(fragments))
	for _, f := range fragments {
		v, err := atoi(f)
		if err != nil {
			return nil, err
		}
		deps = append(deps, strconv.FormatInt(int64(v.(record.Int)), 10))
	}
	return record.Text(strings.Join(deps, ", ")), nil
}

func atoi(fragment string) (record.Value, error) {
	raw := strings.TrimSpace(fragment)
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, newInvalidValue(raw, err)
	}
	return record.Int(n), nil
}
