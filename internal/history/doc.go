// Package history persists launch run records in SQLite.
//
// The Store tracks every request the launcher accepted or refused: where it
// ran, what arguments it carried, how it ended, and how many bytes it wrote
// back to the client. The daemon owns the writer side; the CLI may open the
// same database read-only when the daemon is down, so writes retry on busy.
//
// The database is an audit trail, not coordination state. Schema changes bump
// the version in schema.go; users delete the database to adopt a new schema.
package history
