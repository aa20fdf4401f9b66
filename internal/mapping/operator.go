package mapping

import (
	"context"
	"fmt"
	"strings"
)

// Decision is the operator's answer to an unknown child tag.
type Decision int

const (
	// DecisionSkip drops the one field and continues the record.
	DecisionSkip Decision = iota + 1

	// DecisionAbort stops the whole run.
	DecisionAbort
)

func (d Decision) String() string {
	switch d {
	case DecisionSkip:
		return "skip"
	case DecisionAbort:
		return "abort"
	}
	return fmt.Sprintf("Decision(%d)", int(d))
}

// ParseDecision parses "skip" or "abort".
func ParseDecision(s string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "skip":
		return DecisionSkip, nil
	case "abort":
		return DecisionAbort, nil
	}
	return 0, fmt.Errorf("invalid decision %q: must be skip or abort", s)
}

// Operator is the person (or policy) answering questions during a run.
// Every call blocks the pipeline until it returns.
type Operator interface {
	// ConfirmOverride is asked once per document whose table already exists.
	// false skips the document.
	ConfirmOverride(ctx context.Context, table string) (bool, error)

	// ResolveUnknownField decides what happens to an unregistered child tag.
	ResolveUnknownField(ctx context.Context, err *MappingError) (Decision, error)

	// Acknowledge reports a recovered condition and returns when the
	// operator has seen it.
	Acknowledge(ctx context.Context, err *MappingError) error
}

// Policy is a non-interactive Operator that answers every question the
// same way.
type Policy struct {
	Override bool
	Unknown  Decision
}

// ConfirmOverride implements Operator.
func (p Policy) ConfirmOverride(context.Context, string) (bool, error) {
	return p.Override, nil
}

// ResolveUnknownField implements Operator. A zero Unknown aborts.
func (p Policy) ResolveUnknownField(context.Context, *MappingError) (Decision, error) {
	if p.Unknown == 0 {
		return DecisionAbort, nil
	}
	return p.Unknown, nil
}

// Acknowledge implements Operator.
func (p Policy) Acknowledge(context.Context, *MappingError) error {
	return nil
}

// Event is one question put to an operator and the answer given.
type Event struct {
	Type   string    `yaml:"type" json:"type"` // "override", "unknown_field" or "acknowledge"
	Table  string    `yaml:"table" json:"table"`
	Entry  int64     `yaml:"entry,omitempty" json:"entry,omitempty"`
	Code   ErrorCode `yaml:"code,omitempty" json:"code,omitempty"`
	Tag    string    `yaml:"tag,omitempty" json:"tag,omitempty"`
	Answer string    `yaml:"answer,omitempty" json:"answer,omitempty"`
}

// Recorder wraps an Operator and keeps every exchange in Events.
type Recorder struct {
	Next   Operator
	Events []Event
}

// ConfirmOverride implements Operator.
func (r *Recorder) ConfirmOverride(ctx context.Context, table string) (bool, error) {
	ok, err := r.Next.ConfirmOverride(ctx, table)
	if err != nil {
		return false, err
	}
	answer := "keep"
	if ok {
		answer = "override"
	}
	r.Events = append(r.Events, Event{Type: "override", Table: table, Answer: answer})
	return ok, nil
}

// ResolveUnknownField implements Operator.
func (r *Recorder) ResolveUnknownField(ctx context.Context, me *MappingError) (Decision, error) {
	d, err := r.Next.ResolveUnknownField(ctx, me)
	if err != nil {
		return 0, err
	}
	r.Events = append(r.Events, Event{
		Type: "unknown_field", Table: me.Table, Entry: me.Entry,
		Code: me.Code, Tag: me.Tag, Answer: d.String(),
	})
	return d, nil
}

// Acknowledge implements Operator.
func (r *Recorder) Acknowledge(ctx context.Context, me *MappingError) error {
	if err := r.Next.Acknowledge(ctx, me); err != nil {
		return err
	}
	r.Events = append(r.Events, Event{
		Type: "acknowledge", Table: me.Table, Entry: me.Entry,
		Code: me.Code, Tag: me.Tag,
	})
	return nil
}
