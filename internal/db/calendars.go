package db

import (
	"github.com/rs/zerolog/log"

	"github.com/caldena/caldena/internal/model"
)

func (s *pgStore) CreateCalendar(ownerID int, name, timezone string) (model.Calendar, error) {
	var c model.Calendar
	const q = `
	INSERT INTO calendars (owner_id, name, timezone, created_at, updated_at)
	VALUES ($1, $2, $3, now(), now())
	RETURNING id, owner_id, name, timezone, created_at, updated_at;`
	if err := s.db.Get(&c, q, ownerID, name, timezone); err != nil {
		log.Error().Err(err).Msg("CreateCalendar failed")
		return model.Calendar{}, classify(err)
	}
	return c, nil
}

func (s *pgStore) GetCalendarByID(id int) (model.Calendar, error) {
	var c model.Calendar
	const q = `
	SELECT id, owner_id, name, timezone, created_at, updated_at
	  FROM calendars
	 WHERE id = $1;`
	if err := s.db.Get(&c, q, id); err != nil {
		return model.Calendar{}, classify(err)
	}
	return c, nil
}

func (s *pgStore) ListCalendars(ownerID int) ([]model.Calendar, error) {
	var out []model.Calendar
	const q = `
	SELECT id, owner_id, name, timezone, created_at, updated_at
	  FROM calendars
	 WHERE owner_id = $1
	 ORDER BY id;`
	if err := s.db.Select(&out, q, ownerID); err != nil {
		log.Error().Err(err).Msg("ListCalendars failed")
		return nil, classify(err)
	}
	return out, nil
}

// DeleteCalendar removes the calendar; schedules, rules, overrides and
// bookings cascade at the database level.
func (s *pgStore) DeleteCalendar(id int) error {
	_, err := s.db.Exec(`DELETE FROM calendars WHERE id = $1;`, id)
	if err != nil {
		log.Error().Err(err).Int("calendar_id", id).Msg("DeleteCalendar failed")
	}
	return classify(err)
}
