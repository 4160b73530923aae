package availability

import (
	"time"

	"github.com/caldena/caldena/internal/model"
)

// ForDate computes the bookable blocks for one calendar date: date-specific
// overrides take precedence over the weekly rules for that weekday, and
// active bookings are subtracted from whatever remains.
//
// Enabled reflects whether the day accepts bookings at all; a fully booked
// day stays Enabled with zero free blocks.
func ForDate(date time.Time, rules []model.AvailabilityRule, overrides []model.AvailabilityOverride, bookings []model.Booking) model.DayAvailability {
	weekday := int(date.Weekday())

	base := make([]model.TimeBlock, 0, 4)
	for _, r := range rules {
		if r.DayOfWeek == weekday && r.IsAvailable {
			base = append(base, model.TimeBlock{Start: r.StartTime, End: r.EndTime})
		}
	}

	var overrideBlocks []model.TimeBlock
	for _, o := range overrides {
		if !sameDate(o.Date, date) {
			continue
		}
		if !o.IsAvailable {
			return model.DayAvailability{Enabled: false, TimeBlocks: []model.TimeBlock{}}
		}
		if o.StartTime != nil && o.EndTime != nil {
			overrideBlocks = append(overrideBlocks, model.TimeBlock{Start: *o.StartTime, End: *o.EndTime})
		}
	}
	if len(overrideBlocks) > 0 {
		base = overrideBlocks
	}

	base, _ = NormalizeBlocks(base)
	if len(base) == 0 {
		return model.DayAvailability{Enabled: false, TimeBlocks: []model.TimeBlock{}}
	}

	busy := make([]model.TimeBlock, 0, len(bookings))
	for _, b := range bookings {
		if !b.Active() || !sameDate(b.StartTime, date) {
			continue
		}
		busy = append(busy, model.TimeBlock{
			Start: b.StartTime.Format("15:04"),
			End:   b.EndTime.Format("15:04"),
		})
	}

	free := subtractBlocks(base, busy)
	return model.DayAvailability{Enabled: true, TimeBlocks: free}
}

// Fits reports whether the [start, end) range lies entirely inside one of the
// day's free blocks.
func Fits(day model.DayAvailability, start, end string) bool {
	if !day.Enabled || start >= end {
		return false
	}
	for _, b := range day.TimeBlocks {
		if b.Start <= start && end <= b.End {
			return true
		}
	}
	return false
}

// subtractBlocks removes every busy interval from the free set, splitting
// blocks where a busy range lands in the middle.
func subtractBlocks(free, busy []model.TimeBlock) []model.TimeBlock {
	out := free
	for _, b := range busy {
		next := make([]model.TimeBlock, 0, len(out)+1)
		for _, f := range out {
			if b.End <= f.Start || f.End <= b.Start {
				next = append(next, f)
				continue
			}
			if f.Start < b.Start {
				next = append(next, model.TimeBlock{Start: f.Start, End: b.Start})
			}
			if b.End < f.End {
				next = append(next, model.TimeBlock{Start: b.End, End: f.End})
			}
		}
		out = next
	}
	return out
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
