package mapping

import (
	"context"
	"strings"

	"github.com/roach88/schedmap/internal/record"
)

// ParseFunc converts the text fragments of one child element into a value.
// A nil value with a nil error means "recognized, nothing to store".
type ParseFunc func(fragments []string) (record.Value, error)

// WriteFunc stores a parsed value into the draft's row.
type WriteFunc func(ctx context.Context, d *Draft, v record.Value) error

// FieldSpec binds a field to its parse and write rules.
type FieldSpec struct {
	Field record.Field
	Parse ParseFunc
	Write WriteFunc
}

var specs = []FieldSpec{
	{record.FieldName, parseText, writeColumn(record.FieldName)},
	{record.FieldDescription, parseText, writeColumn(record.FieldDescription)},
	{record.FieldID, parseID, writeID},
	{record.FieldEnabled, parseRequiredInt, writeColumn(record.FieldEnabled)},
	{record.FieldCommand, parseText, writeColumn(record.FieldCommand)},
	{record.FieldParentObject, parseOptionalInt, writeColumn(record.FieldParentObject)},
	{record.FieldTriggerRules, parseTriggerRules, writeColumn(record.FieldTriggerRules)},
	{record.FieldTriggers, parseTriggers, writeColumn(record.FieldTriggers)},
	{record.FieldDependencies, parseDependencies, writeColumn(record.FieldDependencies)},
	{record.FieldOnError, parseText, writeOnError},
}

// registry is keyed by the lower-cased tag name.
var registry = func() map[string]FieldSpec {
	m := make(map[string]FieldSpec, len(specs))
	for _, s := range specs {
		m[s.Field.Key()] = s
	}
	return m
}()

// Lookup returns the FieldSpec for an XML tag, matched case-insensitively.
// An unregistered tag yields a *MappingError with ErrCodeUnknownField.
func Lookup(tag string) (FieldSpec, error) {
	spec, ok := registry[strings.ToLower(tag)]
	if !ok {
		return FieldSpec{}, newUnknownField(tag)
	}
	return spec, nil
}
