package realtime

import "errors"

// ErrSubscriptionLost marks a transport disconnect. The feed handles it by
// refetching full state and resubscribing; it only surfaces to callers when
// the refetch itself fails.
var ErrSubscriptionLost = errors.New("realtime subscription lost")

// Subscription is one live event stream. Events is closed when the transport
// drops the connection or Unsubscribe is called; the stream cannot be
// restarted, a new Subscribe is required.
type Subscription struct {
	Events <-chan ChangeEvent

	cancel func()
}

// Unsubscribe tears the subscription down. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Channel is the change-notification transport scoped to calendars.
type Channel interface {
	// Subscribe opens a stream of change events for one calendar.
	Subscribe(calendarID int) (*Subscription, error)
	// Publish delivers a change event to every subscriber of the calendar.
	Publish(calendarID int, ev ChangeEvent) error
	// Close disconnects the transport and ends all subscriptions.
	Close()
}
