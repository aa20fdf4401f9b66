// Package store provides SQLite-backed storage for mapped scheduler documents.
//
// Every processed XML document gets its own table, named after the document,
// with a fixed column set:
//
//	Entry        INTEGER PRIMARY KEY  sequence number, 1..N per document
//	ObjectType   TEXT                 "Job" or "Plan"
//	Name         TEXT
//	Description  TEXT
//	ID           INTEGER UNIQUE       business ID, or a negative placeholder
//	Enabled      INTEGER
//	Command      TEXT
//	ParentObject INTEGER              ID of another row in the same table
//	TriggerRules TEXT
//	Triggers     TEXT
//	Dependencies TEXT
//	OnError      TEXT
//
// # Row Lifecycle
//
// Table.BeginRow opens a transaction and inserts a row holding only
// ObjectType. Fields are then written one UPDATE at a time through the
// returned Row, and Row.Commit makes the whole record durable. One
// transaction never spans more than one record.
//
// A failed UPDATE of the ID column (UNIQUE violation) is statement-scoped
// in SQLite, so the transaction stays usable and the caller can retry with
// a placeholder from Row.AssignPlaceholderID.
//
// # Import Log
//
// The schedmap_imports table records one line per completed document
// (run id, table, source path, counts). It is created by Open and versioned
// through PRAGMA user_version.
//
// # Database Configuration
//
//   - WAL mode
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
//   - a single connection; all record writes go through its transaction
package store
