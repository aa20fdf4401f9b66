// Package harness runs mapping scenarios: a document, scripted operator
// answers, and assertions about the rows and events that result.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: duplicate_ids
//	description: "Second Job with ID 5 gets placeholder -1"
//	document: schedule.xml        # optional, defaults to <name>.xml
//	existing: |                   # optional, mapped first into the same table
//	  <Schedule>...</Schedule>
//	xml: |
//	  <Schedule>
//	    <Job><Name>first</Name><ID>5</ID></Job>
//	    <Job><Name>second</Name><ID>5</ID></Job>
//	  </Schedule>
//	answers:
//	  override: true              # default true
//	  unknown_field: [skip, abort] # consumed in order; abort once exhausted
//	assertions:
//	  - type: row_count
//	    count: 2
//	  - type: row
//	    entry: 2
//	    expect: { Name: second, ID: -1 }
//	  - type: placeholders
//	    placeholders: [-1]
//	  - type: event
//	    event: { type: acknowledge, code: DUPLICATE_OR_INVALID_ID }
//	  - type: error
//	    code: ABORTED
//
// A scenario without an error assertion fails when mapping returns an error.
//
// # Determinism
//
// Every scenario maps into a fresh database with a fixed run id and the
// testutil stepping clock, so Snapshot output is stable enough for golden
// files.
package harness
