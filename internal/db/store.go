// Store exposes a single interface that is passed to API controllers and the
// availability engine instead of a global connection.
package db

import (
	"time"

	"github.com/caldena/caldena/internal/model"
	"github.com/jmoiron/sqlx"
)

type Store interface {
	// user functions
	CreateUser(email, hashedPassword string, name *string) (int, error)
	GetUserByEmail(email string) (*model.User, error)
	GetUserByID(id int) (*model.User, error)
	UpdateUserProfile(id int, email string, name *string) error

	// calendar functions
	CreateCalendar(ownerID int, name, timezone string) (model.Calendar, error)
	GetCalendarByID(id int) (model.Calendar, error)
	ListCalendars(ownerID int) ([]model.Calendar, error)
	DeleteCalendar(id int) error

	// schedule + rule functions
	CreateSchedule(calendarID int, name string, isDefault bool) (model.AvailabilitySchedule, error)
	ListSchedules(calendarID int) ([]model.AvailabilitySchedule, error)
	ListRules(scheduleID int) ([]model.AvailabilityRule, error)
	ListRulesForDay(scheduleID, dayOfWeek int) ([]model.AvailabilityRule, error)
	CreateRule(scheduleID, dayOfWeek int, startTime, endTime string, isAvailable bool) (model.AvailabilityRule, error)
	DeleteRule(id int) error

	// override functions
	ListOverrides(calendarID int) ([]model.AvailabilityOverride, error)
	ListOverridesForDate(calendarID int, date time.Time) ([]model.AvailabilityOverride, error)
	CreateOverride(calendarID int, date time.Time, isAvailable bool, startTime, endTime, reason *string) (model.AvailabilityOverride, error)
	DeleteOverride(id int) error

	// booking functions
	ListBookings(calendarID int) ([]model.Booking, error)
	ListBookingsForDate(calendarID int, date time.Time) ([]model.Booking, error)
	GetBookingByID(id int) (model.Booking, error)
	CreateBooking(b model.Booking) (model.Booking, error)
	UpdateBookingStatus(id int, status string) error
}

type pgStore struct {
	db *sqlx.DB
}

// compile-time check that pgStore implements Store
var _ Store = (*pgStore)(nil)

func NewStore(conn *sqlx.DB) Store {
	return &pgStore{db: conn}
}
