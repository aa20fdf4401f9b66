// Package mapping turns Job/Plan XML documents into rows of a per-document
// table.
//
// The pipeline for one document is:
//
//	Parse         XML -> Plan and Job elements, each a list of (tag, fragments)
//	Lookup        tag -> FieldSpec (parse rule + write rule), the field registry
//	Normalizer    runs each child through its FieldSpec, one field at a time
//	Mapper        creates the table, begins one row per element, commits it
//
// Fields are written as soon as they are parsed. A later field can therefore
// see what earlier fields put in the row, and OnError inheritance reads the
// OnError of the row whose ID matches the record's ParentObject. Parents must
// appear before their children in processing order (Plans are processed
// before Jobs); this is a precondition of the input, not something the
// mapper reorders for.
//
// # Recovery
//
// Conditions the operator can recover from are returned as *MappingError
// values with Recoverable() == true and are passed to Operator.Acknowledge;
// the field is left unset (or receives a placeholder ID) and mapping goes on.
// An unknown child tag is passed to Operator.ResolveUnknownField, which picks
// between skipping that one field and aborting the run (ErrAborted).
// A failed OnError parent lookup is not recoverable and ends the document.
package mapping
