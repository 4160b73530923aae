package availability

import (
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/caldena/caldena/internal/model"
)

// NormalizeBlocks cleans one day's desired time blocks: exact duplicates are
// removed, blocks are sorted ascending by start time, and blocks that are
// malformed or have start >= end are dropped and returned separately so the
// caller can warn. Overlapping-but-distinct ranges are a caller error and
// pass through untouched; they are not merged here.
//
// Times are fixed-width "HH:MM", so lexicographic comparison is time
// comparison.
func NormalizeBlocks(blocks []model.TimeBlock) (valid, dropped []model.TimeBlock) {
	seen := make(map[model.TimeBlock]struct{}, len(blocks))
	for _, b := range blocks {
		if !validBlock(b) {
			log.Warn().
				Str("start", b.Start).
				Str("end", b.End).
				Msg("dropping invalid time block")
			dropped = append(dropped, b)
			continue
		}
		if _, dup := seen[b]; dup {
			continue
		}
		seen[b] = struct{}{}
		valid = append(valid, b)
	}

	sort.Slice(valid, func(i, j int) bool {
		if valid[i].Start != valid[j].Start {
			return valid[i].Start < valid[j].Start
		}
		return valid[i].End < valid[j].End
	})
	return valid, dropped
}

func validBlock(b model.TimeBlock) bool {
	return ValidClock(b.Start) && ValidClock(b.End) && b.Start < b.End
}

// ValidClock reports whether s is a well-formed 24h "HH:MM" string.
func ValidClock(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	for _, i := range [4]int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	hour := int(s[0]-'0')*10 + int(s[1]-'0')
	minute := int(s[3]-'0')*10 + int(s[4]-'0')
	return hour < 24 && minute < 60
}
