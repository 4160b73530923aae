package db

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/caldena/caldena/internal/model"
)

func (s *pgStore) ListOverrides(calendarID int) ([]model.AvailabilityOverride, error) {
	var out []model.AvailabilityOverride
	const q = `
	SELECT id, calendar_id, date, is_available, start_time, end_time, reason, created_at
	  FROM availability_overrides
	 WHERE calendar_id = $1
	 ORDER BY date, id;`
	if err := s.db.Select(&out, q, calendarID); err != nil {
		log.Error().Err(err).Int("calendar_id", calendarID).Msg("ListOverrides failed")
		return nil, classify(err)
	}
	return out, nil
}

func (s *pgStore) ListOverridesForDate(calendarID int, date time.Time) ([]model.AvailabilityOverride, error) {
	var out []model.AvailabilityOverride
	const q = `
	SELECT id, calendar_id, date, is_available, start_time, end_time, reason, created_at
	  FROM availability_overrides
	 WHERE calendar_id = $1 AND date = $2::date
	 ORDER BY id;`
	if err := s.db.Select(&out, q, calendarID, date); err != nil {
		log.Error().Err(err).Int("calendar_id", calendarID).Msg("ListOverridesForDate failed")
		return nil, classify(err)
	}
	return out, nil
}

func (s *pgStore) CreateOverride(calendarID int, date time.Time, isAvailable bool, startTime, endTime, reason *string) (model.AvailabilityOverride, error) {
	var o model.AvailabilityOverride
	const q = `
	INSERT INTO availability_overrides (calendar_id, date, is_available, start_time, end_time, reason, created_at)
	VALUES ($1, $2::date, $3, $4, $5, $6, now())
	RETURNING id, calendar_id, date, is_available, start_time, end_time, reason, created_at;`
	if err := s.db.Get(&o, q, calendarID, date, isAvailable, startTime, endTime, reason); err != nil {
		log.Error().Err(err).Int("calendar_id", calendarID).Msg("CreateOverride failed")
		return model.AvailabilityOverride{}, classify(err)
	}
	return o, nil
}

func (s *pgStore) DeleteOverride(id int) error {
	_, err := s.db.Exec(`DELETE FROM availability_overrides WHERE id = $1;`, id)
	if err != nil {
		log.Error().Err(err).Int("override_id", id).Msg("DeleteOverride failed")
	}
	return classify(err)
}
