package mapping

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/schedmap/internal/record"
)

// Normalizer resolves the children of one element through the field
// registry and writes each field as soon as it is parsed.
type Normalizer struct {
	op     Operator
	logger *slog.Logger
	table  string

	// notices collects every condition reported to the operator.
	notices []*MappingError
}

// NewNormalizer creates a normalizer for one document table.
func NewNormalizer(table string, op Operator, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{op: op, logger: logger, table: table}
}

// Notices returns the conditions reported so far, in order.
func (n *Normalizer) Notices() []*MappingError {
	return n.notices
}

// Normalize maps the children of one element into d, in document order,
// then resolves pending OnError inheritance.
//
// Recoverable conditions are acknowledged and mapping continues. The
// returned error is ErrAborted (wrapped) when the operator aborts on an
// unknown tag, a *MappingError for a parent lookup failure, or a storage
// error.
func (n *Normalizer) Normalize(ctx context.Context, d *Draft, children []Child) error {
	for _, child := range children {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := n.mapChild(ctx, d, child); err != nil {
			return err
		}
	}

	if err := finishOnError(ctx, d); err != nil {
		var me *MappingError
		if errors.As(err, &me) {
			return n.annotate(d, record.FieldOnError.Column(), me)
		}
		return fmt.Errorf("%s entry %d: resolve OnError: %w", n.table, d.Row.Entry(), err)
	}
	return nil
}

func (n *Normalizer) mapChild(ctx context.Context, d *Draft, child Child) error {
	spec, err := Lookup(child.Tag)
	if err != nil {
		return n.unknownField(ctx, d, child.Tag, err.(*MappingError))
	}

	v, err := spec.Parse(child.Fragments)
	if err != nil {
		return n.recover(ctx, d, child.Tag, spec.Field, err)
	}
	if v != nil {
		d.Record.Set(spec.Field, v)
	}

	if err := spec.Write(ctx, d, v); err != nil {
		return n.recover(ctx, d, child.Tag, spec.Field, err)
	}

	n.logger.Debug("field written",
		"entry", d.Row.Entry(),
		"field", spec.Field.Column(),
		"value", record.Format(v),
	)
	return nil
}

func (n *Normalizer) unknownField(ctx context.Context, d *Draft, tag string, me *MappingError) error {
	n.annotate(d, tag, me)

	decision, err := n.op.ResolveUnknownField(ctx, me)
	if err != nil {
		return fmt.Errorf("resolve unknown field <%s>: %w", tag, err)
	}
	n.notices = append(n.notices, me)

	if decision != DecisionSkip {
		n.logger.Warn("unknown field, aborting",
			"entry", d.Row.Entry(), "tag", tag)
		return fmt.Errorf("%w: %v", ErrAborted, me)
	}

	n.logger.Warn("unknown field skipped",
		"entry", d.Row.Entry(), "tag", tag)
	d.Record.Skipped = append(d.Record.Skipped, tag)
	return nil
}

// recover acknowledges a recoverable error and returns nil, or returns the
// error annotated with its location.
func (n *Normalizer) recover(ctx context.Context, d *Draft, tag string, f record.Field, err error) error {
	var me *MappingError
	if !errors.As(err, &me) {
		return fmt.Errorf("%s %s entry %d: %w", n.table, f, d.Row.Entry(), err)
	}
	me.Field = f
	n.annotate(d, tag, me)

	if !me.Recoverable() {
		return me
	}

	n.logger.Warn("recovered field error",
		"entry", d.Row.Entry(),
		"field", f.Column(),
		"code", string(me.Code),
		"placeholder", me.Placeholder,
	)
	n.notices = append(n.notices, me)
	if err := n.op.Acknowledge(ctx, me); err != nil {
		return fmt.Errorf("acknowledge %s: %w", me.Code, err)
	}
	return nil
}

// annotate fills in where me happened.
func (n *Normalizer) annotate(d *Draft, tag string, me *MappingError) *MappingError {
	me.Table = n.table
	me.Entry = d.Row.Entry()
	me.Line = d.Line
	me.Record = d.Record.Label()
	if me.Tag == "" {
		me.Tag = tag
	}
	return me
}
