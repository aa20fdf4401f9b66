package record

import (
	"database/sql/driver"
	"strconv"
)

// Value is a sealed interface over the typed results of field parsing.
// Only Text, Int and Invalid implement it.
type Value interface {
	recordValue()
}

// Text is a character-data value.
type Text string

func (Text) recordValue() {}

// Int is an integer value. Always int64 to match SQLite INTEGER.
type Int int64

func (Int) recordValue() {}

// Invalid carries raw text that should have been an integer but was not.
// Writers decide what to do with it; for ID it becomes a placeholder.
type Invalid struct {
	Raw string
}

func (Invalid) recordValue() {}

// SQLValue converts v to a database/sql argument.
// Invalid and nil map to NULL.
func SQLValue(v Value) driver.Value {
	switch val := v.(type) {
	case Text:
		return string(val)
	case Int:
		return int64(val)
	default:
		return nil
	}
}

// Format renders v for console and log output.
func Format(v Value) string {
	switch val := v.(type) {
	case Text:
		return strconv.Quote(string(val))
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Invalid:
		return "invalid(" + strconv.Quote(val.Raw) + ")"
	default:
		return "null"
	}
}
