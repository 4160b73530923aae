package model

import "time"

// AvailabilitySchedule is a named weekly availability template for a calendar.
// At most one schedule per calendar is the default. The schedule row itself is
// immutable after creation; only its rules change.
type AvailabilitySchedule struct {
	ID         int       `db:"id" json:"id"`
	CalendarID int       `db:"calendar_id" json:"calendar_id"`
	Name       string    `db:"name" json:"name"`
	IsDefault  bool      `db:"is_default" json:"is_default"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AvailabilityRule is one day-of-week time range within a schedule.
// Times are local "HH:MM" strings; day_of_week is 0=Sunday .. 6=Saturday.
// When IsAvailable is false the row is a placeholder marking the whole day
// blocked and its time values carry no meaning.
type AvailabilityRule struct {
	ID          int       `db:"id" json:"id"`
	ScheduleID  int       `db:"schedule_id" json:"schedule_id"`
	DayOfWeek   int       `db:"day_of_week" json:"day_of_week"`
	StartTime   string    `db:"start_time" json:"start_time"`
	EndTime     string    `db:"end_time" json:"end_time"`
	IsAvailable bool      `db:"is_available" json:"is_available"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// TimeBlock is an in-memory "HH:MM" range. The fixed-width format makes
// lexicographic comparison equivalent to time comparison.
type TimeBlock struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DayAvailability is the desired state for one weekday, as edited upstream.
type DayAvailability struct {
	Enabled    bool        `json:"enabled"`
	TimeBlocks []TimeBlock `json:"time_blocks"`
}

// WeeklyAvailability maps day keys ("monday".."sunday") to their availability.
type WeeklyAvailability map[string]DayAvailability

var dayKeys = [7]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// DayKey returns the lowercase day name for a 0=Sunday..6=Saturday index,
// or "" for an out-of-range day.
func DayKey(dayOfWeek int) string {
	if dayOfWeek < 0 || dayOfWeek > 6 {
		return ""
	}
	return dayKeys[dayOfWeek]
}

// DayIndex is the inverse of DayKey. Returns -1 for an unknown key.
func DayIndex(key string) int {
	for i, k := range dayKeys {
		if k == key {
			return i
		}
	}
	return -1
}
