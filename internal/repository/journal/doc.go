// Package journal records emitted alarms in a SQL database.
//
// SQLite (modernc.org/sqlite, pure Go) is meant for a single monitor host,
// PostgreSQL (lib/pq) for a shared history.
package journal
