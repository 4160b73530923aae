package realtime

import (
	"encoding/json"

	"github.com/caldena/caldena/internal/model"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

type Table string

const (
	TableBookings  Table = "bookings"
	TableOverrides Table = "availability_overrides"
)

// ChangeEvent is one row-level change notification. Old carries the previous
// row (DELETE, UPDATE), New the current row (INSERT, UPDATE).
type ChangeEvent struct {
	Table     Table           `json:"table"`
	EventType EventType       `json:"event_type"`
	Old       json.RawMessage `json:"old,omitempty"`
	New       json.RawMessage `json:"new,omitempty"`
}

// row returns the payload that identifies the affected row: New when present,
// otherwise Old.
func (e ChangeEvent) row() json.RawMessage {
	if len(e.New) > 0 {
		return e.New
	}
	return e.Old
}

// BookingEvent builds a bookings change event. old and current may be nil
// depending on the event type.
func BookingEvent(t EventType, old, current *model.Booking) ChangeEvent {
	return ChangeEvent{
		Table:     TableBookings,
		EventType: t,
		Old:       marshalRow(old),
		New:       marshalRow(current),
	}
}

// OverrideEvent builds an availability_overrides change event.
func OverrideEvent(t EventType, old, current *model.AvailabilityOverride) ChangeEvent {
	return ChangeEvent{
		Table:     TableOverrides,
		EventType: t,
		Old:       marshalRow(old),
		New:       marshalRow(current),
	}
}

func marshalRow(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	switch row := v.(type) {
	case *model.Booking:
		if row == nil {
			return nil
		}
	case *model.AvailabilityOverride:
		if row == nil {
			return nil
		}
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return payload
}
