package mapping

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/schedmap/internal/record"
)

var (
	// ErrAborted is returned when the operator chooses to stop the run.
	ErrAborted = errors.New("mapping aborted by operator")

	// ErrInvalidDocument is returned for a document path that cannot be read
	// as a source document.
	ErrInvalidDocument = errors.New("invalid document")
)

// ErrorCode categorizes mapping errors.
type ErrorCode string

const (
	// ErrCodeUnknownField indicates a child tag with no registered field.
	ErrCodeUnknownField ErrorCode = "UNKNOWN_FIELD"

	// ErrCodeMissingRequiredValue indicates an ID or Enabled element with no text.
	ErrCodeMissingRequiredValue ErrorCode = "MISSING_REQUIRED_VALUE"

	// ErrCodeInvalidValue indicates text that could not be converted to the field's type.
	ErrCodeInvalidValue ErrorCode = "INVALID_VALUE"

	// ErrCodeDuplicateOrInvalidID indicates an ID replaced by a placeholder.
	ErrCodeDuplicateOrInvalidID ErrorCode = "DUPLICATE_OR_INVALID_ID"

	// ErrCodeParentLookupFailure indicates OnError inheritance found no parent row.
	ErrCodeParentLookupFailure ErrorCode = "PARENT_LOOKUP_FAILURE"

	// ErrCodeMalformedDocument indicates the document is not well-formed XML.
	ErrCodeMalformedDocument ErrorCode = "MALFORMED_DOCUMENT"
)

// Codes reported for run errors that carry no MappingError.
const (
	CodeAborted = "ABORTED"
	CodeOther   = "ERROR"
)

// MappingError describes one condition met while mapping a document.
// The location fields are filled in as the error travels up from the
// parse/write rules through the normalizer.
type MappingError struct {
	Code    ErrorCode
	Message string

	Table  string
	Entry  int64
	Line   int // line of the Job or Plan start tag
	Record string // human label, e.g. `Job "backup" (ID 4)`
	Tag    string
	Field  record.Field

	// Raw is the offending source text, when there is one.
	Raw string

	// Placeholder is the substituted ID for ErrCodeDuplicateOrInvalidID.
	Placeholder int64

	Err error
}

// Error implements the error interface.
func (e *MappingError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Table != "" && e.Entry > 0 {
		msg += fmt.Sprintf(" (table=%s, entry=%d)", e.Table, e.Entry)
	} else if e.Table != "" {
		msg += fmt.Sprintf(" (table=%s)", e.Table)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MappingError) Unwrap() error {
	return e.Err
}

// Recoverable reports whether mapping continues after the operator
// acknowledges this error.
func (e *MappingError) Recoverable() bool {
	switch e.Code {
	case ErrCodeMissingRequiredValue, ErrCodeInvalidValue, ErrCodeDuplicateOrInvalidID:
		return true
	}
	return false
}

// IsMalformedDocument returns true if err reports a document that is not well-formed.
func IsMalformedDocument(err error) bool {
	return hasCode(err, ErrCodeMalformedDocument)
}

// Code classifies a run error for reports: "" for nil, CodeAborted when the
// operator stopped the run or it was interrupted, the MappingError code, or
// CodeOther.
func Code(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrAborted) || errors.Is(err, context.Canceled) {
		return CodeAborted
	}
	var me *MappingError
	if errors.As(err, &me) {
		return string(me.Code)
	}
	return CodeOther
}

func hasCode(err error, code ErrorCode) bool {
	var me *MappingError
	if errors.As(err, &me) {
		return me.Code == code
	}
	return false
}

func newUnknownField(tag string) *MappingError {
	return &MappingError{
		Code:    ErrCodeUnknownField,
		Message: fmt.Sprintf("unexpected child tag <%s>", tag),
		Tag:     tag,
	}
}

func newMissingValue() *MappingError {
	return &MappingError{
		Code:    ErrCodeMissingRequiredValue,
		Message: "value not found",
	}
}

func newInvalidValue(raw string, err error) *MappingError {
	return &MappingError{
		Code:    ErrCodeInvalidValue,
		Message: fmt.Sprintf("%q is not an integer", raw),
		Raw:     raw,
		Err:     err,
	}
}
