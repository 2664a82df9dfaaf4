package store

// schemaVersionV1 is the only ledger schema so far.
const schemaVersionV1 = 1

var schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);
CREATE TABLE IF NOT EXISTS submissions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	plan_id INTEGER NOT NULL,
	plan_name TEXT NOT NULL,
	entry_name TEXT NOT NULL,
	run_id INTEGER NOT NULL,
	config_key TEXT NOT NULL,
	results INTEGER NOT NULL,
	submitted_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_submissions_run ON submissions(run_id);
`
