package availability

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable classification of an engine failure.
type Kind string

const (
	// KindInvalidRange marks a time block whose start is not before its end.
	// Invalid blocks are dropped and reported; they never abort a sync.
	KindInvalidRange Kind = "invalid_range"
	// KindSyncConflict marks a uniqueness violation that persisted after the
	// single automatic retry. The day's sync failed; the caller must retry.
	KindSyncConflict Kind = "sync_conflict"
	// KindStoreUnavailable marks any other storage failure. No retry.
	KindStoreUnavailable Kind = "store_unavailable"
	// KindSubscriptionLost marks a realtime stream whose recovery refetch
	// failed.
	KindSubscriptionLost Kind = "subscription_lost"
)

// Error wraps an underlying failure with its kind and, where relevant, the
// day of week it concerns (-1 when not day-scoped).
type Error struct {
	Kind Kind
	Day  int
	Err  error
}

func (e *Error) Error() string {
	if e.Day >= 0 {
		return fmt.Sprintf("availability: %s (day %d): %v", e.Kind, e.Day, e.Err)
	}
	return fmt.Sprintf("availability: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, day int, err error) *Error {
	return &Error{Kind: kind, Day: day, Err: err}
}

// KindOf extracts the kind from err, or "" if err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
