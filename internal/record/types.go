package record

import (
	"fmt"
	"strings"
)

// Kind distinguishes the two schedulable record types.
// It is stored verbatim in the ObjectType column.
type Kind string

const (
	KindJob  Kind = "Job"
	KindPlan Kind = "Plan"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindJob || k == KindPlan
}

// Field identifies one semantic column of a Job/Plan row.
type Field int

const (
	FieldName Field = iota + 1
	FieldDescription
	FieldID
	FieldEnabled
	FieldCommand
	FieldParentObject
	FieldTriggerRules
	FieldTriggers
	FieldDependencies
	FieldOnError
)

// Fields lists every recognized field in table column order.
var Fields = []Field{
	FieldName,
	FieldDescription,
	FieldID,
	FieldEnabled,
	FieldCommand,
	FieldParentObject,
	FieldTriggerRules,
	FieldTriggers,
	FieldDependencies,
	FieldOnError,
}

var fieldColumns = map[Field]string{
	FieldName:         "Name",
	FieldDescription:  "Description",
	FieldID:           "ID",
	FieldEnabled:      "Enabled",
	FieldCommand:      "Command",
	FieldParentObject: "ParentObject",
	FieldTriggerRules: "TriggerRules",
	FieldTriggers:     "Triggers",
	FieldDependencies: "Dependencies",
	FieldOnError:      "OnError",
}

// Column returns the table column the field is stored in.
// Column names double as the canonical spelling of the XML tag.
func (f Field) Column() string {
	if c, ok := fieldColumns[f]; ok {
		return c
	}
	return fmt.Sprintf("Field(%d)", int(f))
}

func (f Field) String() string {
	return f.Column()
}

// Key returns the lower-cased lookup key used to match XML tags.
func (f Field) Key() string {
	return strings.ToLower(f.Column())
}

// Record is one Job or Plan definition being mapped.
//
// Values holds only the fields resolved so far. A field absent from the map
// was either not present in the element or was left unset after a recovered
// error. Both end as NULL.
type Record struct {
	Kind   Kind
	Values map[Field]Value

	// Skipped lists XML tags the operator chose to skip for this record.
	Skipped []string
}

// New creates an empty record of the given kind.
func New(kind Kind) *Record {
	return &Record{
		Kind:   kind,
		Values: make(map[Field]Value),
	}
}

// Set stores a resolved value.
func (r *Record) Set(f Field, v Value) {
	r.Values[f] = v
}

// Int returns the integer value of f.
// The second result is false when f is unset or not an Int.
func (r *Record) Int(f Field) (int64, bool) {
	v, ok := r.Values[f].(Int)
	return int64(v), ok
}

// Text returns the text value of f, or "" when unset or not Text.
func (r *Record) Text(f Field) string {
	v, _ := r.Values[f].(Text)
	return string(v)
}

// Label returns a short human description used in operator prompts.
func (r *Record) Label() string {
	name := r.Text(FieldName)
	if id, ok := r.Int(FieldID); ok {
		if name != "" {
			return fmt.Sprintf("%s %q (ID %d)", r.Kind, name, id)
		}
		return fmt.Sprintf("%s with ID %d", r.Kind, id)
	}
	if name != "" {
		return fmt.Sprintf("%s %q", r.Kind, name)
	}
	return string(r.Kind)
}
