package mapping

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/schedmap/internal/record"
	"github.com/roach88/schedmap/internal/store"
)

// RowWriter is the row a draft is written to. *store.Row implements it.
type RowWriter interface {
	Entry() int64
	Set(ctx context.Context, f record.Field, v record.Value) error
	SetNullableText(ctx context.Context, f record.Field, v sql.NullString) error
	AssignPlaceholderID(ctx context.Context) (int64, error)
	ParentOnError(ctx context.Context, parentID int64) (sql.NullString, error)
}

// Draft is one record under construction together with its row.
type Draft struct {
	Record *record.Record
	Row    RowWriter

	// Line is where the element starts in the source document; 0 if unknown.
	Line int

	// onErrorWritten is set once the OnError column holds its final value.
	onErrorWritten bool

	// onErrorDeferred is set when an empty OnError arrived before ParentObject.
	onErrorDeferred bool
}

// NewDraft pairs a fresh record with the row it will be written to.
func NewDraft(kind record.Kind, row RowWriter) *Draft {
	return &Draft{Record: record.New(kind), Row: row}
}

// writeColumn stores v as-is. A nil value leaves the column untouched.
func writeColumn(f record.Field) WriteFunc {
	return func(ctx context.Context, d *Draft, v record.Value) error {
		if v == nil {
			return nil
		}
		return d.Row.Set(ctx, f, v)
	}
}

// writeID stores the ID, falling back to a placeholder when the value is
// not an integer or is already used in this table.
func writeID(ctx context.Context, d *Draft, v record.Value) error {
	var cause string
	switch val := v.(type) {
	case record.Int:
		err := d.Row.Set(ctx, record.FieldID, val)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrUniqueViolation) {
			return err
		}
		cause = fmt.Sprintf("ID %d is already used in this table", int64(val))
	case record.Invalid:
		cause = fmt.Sprintf("ID %q is not an integer", val.Raw)
	default:
		return nil
	}

	placeholder, err := d.Row.AssignPlaceholderID(ctx)
	if err != nil {
		return err
	}
	return &MappingError{
		Code:        ErrCodeDuplicateOrInvalidID,
		Message:     fmt.Sprintf("%s; stored %d instead", cause, placeholder),
		Field:       record.FieldID,
		Raw:         record.Format(v),
		Placeholder: placeholder,
	}
}

// writeOnError stores the record's own OnError, or inherits the parent's
// when the element is empty.
func writeOnError(ctx context.Context, d *Draft, v record.Value) error {
	if text, _ := v.(record.Text); text != "" {
		if err := d.Row.Set(ctx, record.FieldOnError, text); err != nil {
			return err
		}
		d.onErrorWritten = true
		return nil
	}

	if _, ok := d.Record.Int(record.FieldParentObject); !ok {
		// ParentObject may still follow in this element.
		d.onErrorDeferred = true
		return nil
	}
	return inheritOnError(ctx, d)
}

// finishOnError resolves inheritance left open when the element ended.
// An absent OnError with no ParentObject stays NULL.
func finishOnError(ctx context.Context, d *Draft) error {
	if d.onErrorWritten {
		return nil
	}
	if _, ok := d.Record.Int(record.FieldParentObject); ok {
		return inheritOnError(ctx, d)
	}
	if d.onErrorDeferred {
		return &MappingError{
			Code:    ErrCodeParentLookupFailure,
			Message: "OnError is empty and the record has no ParentObject to inherit from",
			Field:   record.FieldOnError,
		}
	}
	return nil
}

// inheritOnError copies OnError from the row whose ID equals this record's
// ParentObject, as that row stands now.
func inheritOnError(ctx context.Context, d *Draft) error {
	parentID, _ := d.Record.Int(record.FieldParentObject)

	onError, err := d.Row.ParentOnError(ctx, parentID)
	if errors.Is(err, store.ErrParentNotFound) {
		return &MappingError{
			Code:    ErrCodeParentLookupFailure,
			Message: fmt.Sprintf("no row with ID %d to inherit OnError from", parentID),
			Field:   record.FieldOnError,
			Raw:     fmt.Sprintf("%d", parentID),
			Err:     err,
		}
	}
	if err != nil {
		return err
	}

	if err := d.Row.SetNullableText(ctx, record.FieldOnError, onError); err != nil {
		return err
	}
	if onError.Valid {
		d.Record.Set(record.FieldOnError, record.Text(onError.String))
	}
	d.onErrorWritten = true
	return nil
}
