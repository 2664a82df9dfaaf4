// Package store keeps a local ledger of the results cukerail submitted to
// TestRail. The ledger is informational: reconciliation never reads it back.
package store

import "time"

// DefaultDBPath is the default relative path for the SQLite ledger.
// Open() creates the parent dir (e.g. .cukerail).
const DefaultDBPath = ".cukerail/cukerail.db"

// Submission is one bulk add_results call against a run.
type Submission struct {
	ID          int64
	PlanID      int
	PlanName    string
	EntryName   string
	RunID       int
	ConfigKey   string
	Results     int
	SubmittedAt time.Time
}

// Recorder receives a record for every submitted run.
type Recorder interface {
	RecordSubmission(s Submission) error
}

// Store is the ledger facade; implementation is SQLite or in-memory.
type Store interface {
	Recorder
	// ListSubmissions returns the most recent submissions first. limit <= 0
	// returns everything.
	ListSubmissions(limit int) ([]Submission, error)
	Close() error
}
