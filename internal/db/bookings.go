package db

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/caldena/caldena/internal/model"
)

func (s *pgStore) ListBookings(calendarID int) ([]model.Booking, error) {
	var out []model.Booking
	const q = `
	SELECT id, calendar_id, service_type_id, customer_name, customer_phone,
	       start_time, end_time, status, created_at, updated_at
	  FROM bookings
	 WHERE calendar_id = $1
	 ORDER BY start_time, id;`
	if err := s.db.Select(&out, q, calendarID); err != nil {
		log.Error().Err(err).Int("calendar_id", calendarID).Msg("ListBookings failed")
		return nil, classify(err)
	}
	return out, nil
}

func (s *pgStore) ListBookingsForDate(calendarID int, date time.Time) ([]model.Booking, error) {
	var out []model.Booking
	const q = `
	SELECT id, calendar_id, service_type_id, customer_name, customer_phone,
	       start_time, end_time, status, created_at, updated_at
	  FROM bookings
	 WHERE calendar_id = $1 AND start_time::date = $2::date
	 ORDER BY start_time, id;`
	if err := s.db.Select(&out, q, calendarID, date); err != nil {
		log.Error().Err(err).Int("calendar_id", calendarID).Msg("ListBookingsForDate failed")
		return nil, classify(err)
	}
	return out, nil
}

func (s *pgStore) GetBookingByID(id int) (model.Booking, error) {
	var b model.Booking
	const q = `
	SELECT id, calendar_id, service_type_id, customer_name, customer_phone,
	       start_time, end_time, status, created_at, updated_at
	  FROM bookings
	 WHERE id = $1;`
	if err := s.db.Get(&b, q, id); err != nil {
		return model.Booking{}, classify(err)
	}
	return b, nil
}

func (s *pgStore) CreateBooking(b model.Booking) (model.Booking, error) {
	var out model.Booking
	const q = `
	INSERT INTO bookings (calendar_id, service_type_id, customer_name, customer_phone,
	                      start_time, end_time, status, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
	RETURNING id, calendar_id, service_type_id, customer_name, customer_phone,
	          start_time, end_time, status, created_at, updated_at;`
	err := s.db.Get(&out, q, b.CalendarID, b.ServiceTypeID, b.CustomerName, b.CustomerPhone,
		b.StartTime, b.EndTime, b.Status)
	if err != nil {
		log.Error().Err(err).Int("calendar_id", b.CalendarID).Msg("CreateBooking failed")
		return model.Booking{}, classify(err)
	}
	return out, nil
}

func (s *pgStore) UpdateBookingStatus(id int, status string) error {
	const q = `
	UPDATE bookings
	   SET status = $2, updated_at = now()
	 WHERE id = $1;`
	res, err := s.db.Exec(q, id, status)
	if err != nil {
		log.Error().Err(err).Int("booking_id", id).Msg("UpdateBookingStatus failed")
		return classify(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
