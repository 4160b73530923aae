package availability

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/caldena/caldena/internal/db"
	"github.com/caldena/caldena/internal/model"
)

// Placeholder range written on a fully blocked day. The times carry no
// meaning when is_available is false; the row only marks the day blocked.
const (
	placeholderStart = "09:00"
	placeholderEnd   = "17:00"
)

const conflictBackoff = 2 * time.Second

// RuleStore is the slice of the persistence layer the sync engine mutates.
// Create must surface uniqueness violations as db.ErrDuplicateKey.
type RuleStore interface {
	ListRulesForDay(scheduleID, dayOfWeek int) ([]model.AvailabilityRule, error)
	CreateRule(scheduleID, dayOfWeek int, startTime, endTime string, isAvailable bool) (model.AvailabilityRule, error)
	DeleteRule(id int) error
}

// SyncResult is the normalized outcome of one day's sync. The engine never
// panics or leaks raw errors across this boundary.
type SyncResult struct {
	Day     int    `json:"day"`
	Success bool   `json:"success"`
	// Skipped means another sync for the same day was already in flight and
	// this call was a no-op. The caller should re-invoke once state settles.
	Skipped bool              `json:"skipped,omitempty"`
	Dropped []model.TimeBlock `json:"dropped_blocks,omitempty"`
	Error   string            `json:"error,omitempty"`
	Kind    Kind              `json:"error_kind,omitempty"`
}

// SyncEngine reconciles desired per-day availability against persisted rules
// with minimal create/delete operations. Syncs for distinct days may run
// concurrently; syncs for the same day are mutually exclusive.
type SyncEngine struct {
	scheduleID int
	store      RuleStore
	backoff    time.Duration
	onChange   func(dayOfWeek int)

	mu   sync.Mutex
	busy map[int]struct{}
}

// NewSyncEngine builds an engine for one schedule. onChange, if non-nil, is
// invoked after every successful sync, before SyncDay returns; its result is
// ignored.
func NewSyncEngine(scheduleID int, store RuleStore, onChange func(dayOfWeek int)) *SyncEngine {
	return &SyncEngine{
		scheduleID: scheduleID,
		store:      store,
		backoff:    conflictBackoff,
		onChange:   onChange,
		busy:       make(map[int]struct{}),
	}
}

// SyncDay reconciles one weekday. Mutations run sequentially to avoid
// uniqueness races on (schedule_id, day_of_week, start_time); a duplicate-key
// failure gets exactly one retry after the backoff window.
func (e *SyncEngine) SyncDay(dayOfWeek int, desired model.DayAvailability) SyncResult {
	if dayOfWeek < 0 || dayOfWeek > 6 {
		return SyncResult{
			Day:   dayOfWeek,
			Error: fmt.Sprintf("day_of_week %d out of range", dayOfWeek),
			Kind:  KindInvalidRange,
		}
	}

	if !e.tryAcquire(dayOfWeek) {
		log.Info().
			Int("schedule_id", e.scheduleID).
			Int("day_of_week", dayOfWeek).
			Msg("sync already in flight for day, skipping")
		return SyncResult{Day: dayOfWeek, Skipped: true}
	}
	defer e.release(dayOfWeek)

	blocks, dropped := NormalizeBlocks(desired.TimeBlocks)
	enabled := desired.Enabled && len(blocks) > 0

	err := e.syncOnce(dayOfWeek, enabled, blocks)
	if err != nil && db.IsDuplicateKey(err) {
		log.Warn().
			Int("schedule_id", e.scheduleID).
			Int("day_of_week", dayOfWeek).
			Dur("backoff", e.backoff).
			Msg("rule conflict during sync, retrying once")
		time.Sleep(e.backoff)
		err = e.syncOnce(dayOfWeek, enabled, blocks)
	}

	if err != nil {
		kind := KindStoreUnavailable
		if db.IsDuplicateKey(err) {
			kind = KindSyncConflict
		}
		wrapped := newError(kind, dayOfWeek, err)
		log.Error().Err(wrapped).Int("schedule_id", e.scheduleID).Msg("day sync failed")
		return SyncResult{
			Day:     dayOfWeek,
			Dropped: dropped,
			Error:   wrapped.Error(),
			Kind:    kind,
		}
	}

	if e.onChange != nil {
		// Run before returning so a read racing the result cannot observe
		// pre-sync derived state (a stale cached weekly view, for example).
		e.onChange(dayOfWeek)
	}
	return SyncResult{Day: dayOfWeek, Success: true, Dropped: dropped}
}

// syncOnce performs one reconciliation pass. Rules that exactly match a
// desired block are left untouched; only the symmetric difference is written.
func (e *SyncEngine) syncOnce(dayOfWeek int, enabled bool, blocks []model.TimeBlock) error {
	existing, err := e.store.ListRulesForDay(e.scheduleID, dayOfWeek)
	if err != nil {
		return err
	}

	if !enabled {
		return e.syncBlockedDay(dayOfWeek, existing)
	}

	desired := make(map[model.TimeBlock]struct{}, len(blocks))
	for _, b := range blocks {
		desired[b] = struct{}{}
	}

	kept := make(map[model.TimeBlock]struct{}, len(blocks))
	for _, rule := range existing {
		block := model.TimeBlock{Start: rule.StartTime, End: rule.EndTime}
		_, wanted := desired[block]
		_, already := kept[block]
		if rule.IsAvailable && wanted && !already {
			kept[block] = struct{}{}
			continue
		}
		// Stale range, blocked-day placeholder, or duplicate row.
		if err := e.store.DeleteRule(rule.ID); err != nil {
			return err
		}
	}

	for _, b := range blocks {
		if _, ok := kept[b]; ok {
			continue
		}
		if _, err := e.store.CreateRule(e.scheduleID, dayOfWeek, b.Start, b.End, true); err != nil {
			return err
		}
	}
	return nil
}

// syncBlockedDay ensures exactly one is_available=false rule remains for the
// day: stale available rules and redundant placeholders are deleted, and a
// placeholder is created only when none exists.
func (e *SyncEngine) syncBlockedDay(dayOfWeek int, existing []model.AvailabilityRule) error {
	havePlaceholder := false
	for _, rule := range existing {
		if !rule.IsAvailable && !havePlaceholder {
			havePlaceholder = true
			continue
		}
		if err := e.store.DeleteRule(rule.ID); err != nil {
			return err
		}
	}
	if havePlaceholder {
		return nil
	}
	_, err := e.store.CreateRule(e.scheduleID, dayOfWeek, placeholderStart, placeholderEnd, false)
	return err
}

func (e *SyncEngine) tryAcquire(dayOfWeek int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, inFlight := e.busy[dayOfWeek]; inFlight {
		return false
	}
	e.busy[dayOfWeek] = struct{}{}
	return true
}

func (e *SyncEngine) release(dayOfWeek int) {
	e.mu.Lock()
	delete(e.busy, dayOfWeek)
	e.mu.Unlock()
}
