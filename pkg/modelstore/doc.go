/*
Package modelstore persists fitted mcm models in a SQLite database.

It stores model metadata (name, bin count, horizon, fit range) alongside
the non-zero entries of the transition matrix, so many named models can
share one database file and be reloaded without refitting. All writes
are transactional. The package works against database/sql and is driver
agnostic; both modernc.org/sqlite and mattn/go-sqlite3 are known to work.
*/
package modelstore
