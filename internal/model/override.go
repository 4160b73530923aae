package model

import "time"

// AvailabilityOverride is a date-specific exception that supersedes the weekly
// rules for its date. A fully blocked day has IsAvailable=false and nil times;
// a partial-day override carries explicit start/end.
type AvailabilityOverride struct {
	ID          int       `db:"id" json:"id"`
	CalendarID  int       `db:"calendar_id" json:"calendar_id"`
	Date        time.Time `db:"date" json:"date"`
	IsAvailable bool      `db:"is_available" json:"is_available"`
	StartTime   *string   `db:"start_time" json:"start_time,omitempty"`
	EndTime     *string   `db:"end_time" json:"end_time,omitempty"`
	Reason      *string   `db:"reason" json:"reason,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
