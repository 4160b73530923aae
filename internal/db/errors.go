package db

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrDuplicateKey marks a uniqueness violation. The sync engine keys its
	// conflict retry off this error.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrNotFound marks a lookup that matched no rows.
	ErrNotFound = errors.New("not found")
)

const pgUniqueViolation = "23505"

// classify maps driver errors onto the store's machine-readable kinds so
// callers never have to inspect pq internals.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
		return ErrDuplicateKey
	}
	return err
}

// IsDuplicateKey reports whether err is a uniqueness violation.
func IsDuplicateKey(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}
