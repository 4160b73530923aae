package model

import "time"

const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
	BookingCompleted = "completed"
	BookingNoShow    = "no_show"
)

// Booking consumes availability capacity on a calendar. The availability
// engine only observes bookings; it never creates them.
type Booking struct {
	ID            int       `db:"id" json:"id"`
	CalendarID    int       `db:"calendar_id" json:"calendar_id"`
	ServiceTypeID *int      `db:"service_type_id" json:"service_type_id,omitempty"`
	CustomerName  string    `db:"customer_name" json:"customer_name"`
	CustomerPhone *string   `db:"customer_phone" json:"customer_phone,omitempty"`
	StartTime     time.Time `db:"start_time" json:"start_time"`
	EndTime       time.Time `db:"end_time" json:"end_time"`
	Status        string    `db:"status" json:"status"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Active reports whether the booking still occupies its slot.
func (b Booking) Active() bool {
	return b.Status != BookingCancelled && b.Status != BookingNoShow
}

// ValidBookingStatus reports whether s is one of the known status values.
func ValidBookingStatus(s string) bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted, BookingNoShow:
		return true
	}
	return false
}
