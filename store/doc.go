// Package store reads chat messages from the record store the bot writes to.
//
// Two backends share one SQL builder: SQLiteStore over modernc.org/sqlite
// and PostgresStore over pgx. Group, user, time and substring conditions are
// evaluated in SQL; regular expressions are applied in Go while scanning so
// both backends accept the same RE2 syntax.
package store
