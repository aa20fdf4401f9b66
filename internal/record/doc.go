// Package record defines the value object that carries one Job or Plan
// definition from the XML normalizer to the row writer.
//
// A Record is built fresh for every Job/Plan element, filled field by field
// as the element's children are resolved, and dropped once its row has been
// committed. Nothing in this package touches the database.
//
// Field values are a sealed set of variants:
//   - Text: concatenated or joined character data
//   - Int: a parsed integer (ID, Enabled, ParentObject)
//   - Invalid: raw text that failed integer conversion
//
// All text reaching a Record is NFC-normalized (see NormalizeText) so the
// same logical string is stored byte-identically regardless of how the
// source document encoded it.
package record
