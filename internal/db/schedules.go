package db

import (
	"github.com/rs/zerolog/log"

	"github.com/caldena/caldena/internal/model"
)

func (s *pgStore) CreateSchedule(calendarID int, name string, isDefault bool) (model.AvailabilitySchedule, error) {
	var sched model.AvailabilitySchedule
	const q = `
	INSERT INTO availability_schedules (calendar_id, name, is_default, created_at)
	VALUES ($1, $2, $3, now())
	RETURNING id, calendar_id, name, is_default, created_at;`
	if err := s.db.Get(&sched, q, calendarID, name, isDefault); err != nil {
		log.Error().Err(err).Int("calendar_id", calendarID).Msg("CreateSchedule failed")
		return model.AvailabilitySchedule{}, classify(err)
	}
	return sched, nil
}

func (s *pgStore) ListSchedules(calendarID int) ([]model.AvailabilitySchedule, error) {
	var out []model.AvailabilitySchedule
	const q = `
	SELECT id, calendar_id, name, is_default, created_at
	  FROM availability_schedules
	 WHERE calendar_id = $1
	 ORDER BY id;`
	if err := s.db.Select(&out, q, calendarID); err != nil {
		log.Error().Err(err).Int("calendar_id", calendarID).Msg("ListSchedules failed")
		return nil, classify(err)
	}
	return out, nil
}

func (s *pgStore) ListRules(scheduleID int) ([]model.AvailabilityRule, error) {
	var out []model.AvailabilityRule
	const q = `
	SELECT id, schedule_id, day_of_week, start_time, end_time, is_available, created_at
	  FROM availability_rules
	 WHERE schedule_id = $1
	 ORDER BY day_of_week, start_time;`
	if err := s.db.Select(&out, q, scheduleID); err != nil {
		log.Error().Err(err).Int("schedule_id", scheduleID).Msg("ListRules failed")
		return nil, classify(err)
	}
	return out, nil
}

func (s *pgStore) ListRulesForDay(scheduleID, dayOfWeek int) ([]model.AvailabilityRule, error) {
	var out []model.AvailabilityRule
	const q = `
	SELECT id, schedule_id, day_of_week, start_time, end_time, is_available, created_at
	  FROM availability_rules
	 WHERE schedule_id = $1 AND day_of_week = $2
	 ORDER BY start_time;`
	if err := s.db.Select(&out, q, scheduleID, dayOfWeek); err != nil {
		log.Error().Err(err).Int("schedule_id", scheduleID).Int("day_of_week", dayOfWeek).Msg("ListRulesForDay failed")
		return nil, classify(err)
	}
	return out, nil
}

// CreateRule inserts one day-of-week rule. The unique index on
// (schedule_id, day_of_week, start_time) surfaces as ErrDuplicateKey.
func (s *pgStore) CreateRule(scheduleID, dayOfWeek int, startTime, endTime string, isAvailable bool) (model.AvailabilityRule, error) {
	var r model.AvailabilityRule
	const q = `
	INSERT INTO availability_rules (schedule_id, day_of_week, start_time, end_time, is_available, created_at)
	VALUES ($1, $2, $3, $4, $5, now())
	RETURNING id, schedule_id, day_of_week, start_time, end_time, is_available, created_at;`
	if err := s.db.Get(&r, q, scheduleID, dayOfWeek, startTime, endTime, isAvailable); err != nil {
		log.Error().Err(err).
			Int("schedule_id", scheduleID).
			Int("day_of_week", dayOfWeek).
			Str("start_time", startTime).
			Msg("CreateRule failed")
		return model.AvailabilityRule{}, classify(err)
	}
	return r, nil
}

func (s *pgStore) DeleteRule(id int) error {
	_, err := s.db.Exec(`DELETE FROM availability_rules WHERE id = $1;`, id)
	if err != nil {
		log.Error().Err(err).Int("rule_id", id).Msg("DeleteRule failed")
	}
	return classify(err)
}
