// Package store contains the persistence layer for bot accounts, channels,
// sessions, chat messages, snapshots, and registration logs. All functions
// take a context and a shared *sql.DB and issue plain SQL against Postgres.
package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrConflict indicates a uniqueness violation (username, email, channel name).
	ErrConflict = errors.New("already in use")
	// ErrNotFound indicates the referenced row does not exist.
	ErrNotFound = errors.New("not found")
)

// isUniqueViolation reports whether err is a Postgres unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
