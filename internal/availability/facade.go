package availability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/caldena/caldena/internal/model"
	"github.com/caldena/caldena/internal/realtime"
	"github.com/caldena/caldena/internal/redis"
)

const weeklyCacheTTL = 5 * time.Minute

// Store is everything the facade needs from persistence. db.Store satisfies
// it; tests inject fakes.
type Store interface {
	RuleStore
	realtime.Snapshot

	ListSchedules(calendarID int) ([]model.AvailabilitySchedule, error)
	ListRules(scheduleID int) ([]model.AvailabilityRule, error)
	ListOverridesForDate(calendarID int, date time.Time) ([]model.AvailabilityOverride, error)
	ListBookingsForDate(calendarID int, date time.Time) ([]model.Booking, error)
}

// Facade is the public availability surface for one calendar: weekly view
// reads, per-day sync writes, and the live change feed. Lifecycle of the
// injected store, cache and channel belongs to the caller.
type Facade struct {
	calendarID int
	scheduleID int
	store      Store
	engine     *SyncEngine
	cache      *redis.Cache
	channel    realtime.Channel

	mu   sync.Mutex
	feed *realtime.Feed
}

// NewFacade resolves the calendar's schedule (the default one, or the first
// listed when none is marked default) and wires the sync engine to it. cache
// and channel may be nil; the facade then skips caching and refuses live
// subscriptions.
func NewFacade(calendarID int, store Store, cache *redis.Cache, channel realtime.Channel) (*Facade, error) {
	schedules, err := store.ListSchedules(calendarID)
	if err != nil {
		return nil, newError(KindStoreUnavailable, -1, err)
	}
	if len(schedules) == 0 {
		return nil, fmt.Errorf("calendar %d has no availability schedule", calendarID)
	}

	selected := schedules[0]
	for _, s := range schedules {
		if s.IsDefault {
			selected = s
			break
		}
	}

	f := &Facade{
		calendarID: calendarID,
		scheduleID: selected.ID,
		store:      store,
		cache:      cache,
		channel:    channel,
	}
	f.engine = NewSyncEngine(selected.ID, store, func(int) { f.invalidate() })
	return f, nil
}

func (f *Facade) ScheduleID() int { return f.scheduleID }

func (f *Facade) cacheKey() string {
	return fmt.Sprintf("availability:%d", f.calendarID)
}

func (f *Facade) invalidate() {
	f.cache.Delete(context.Background(), f.cacheKey())
}

// GetWeeklyAvailability returns the derived weekly view, one entry per day
// key "sunday".."saturday", rebuilt from the persisted rules (cached between
// syncs).
func (f *Facade) GetWeeklyAvailability(ctx context.Context) (model.WeeklyAvailability, error) {
	var cached model.WeeklyAvailability
	if f.cache.GetJSON(ctx, f.cacheKey(), &cached) {
		return cached, nil
	}

	rules, err := f.store.ListRules(f.scheduleID)
	if err != nil {
		return nil, newError(KindStoreUnavailable, -1, err)
	}

	week := make(model.WeeklyAvailability, 7)
	for day := 0; day < 7; day++ {
		week[model.DayKey(day)] = model.DayAvailability{TimeBlocks: []model.TimeBlock{}}
	}
	for _, r := range rules {
		key := model.DayKey(r.DayOfWeek)
		if key == "" || !r.IsAvailable {
			continue
		}
		entry := week[key]
		entry.Enabled = true
		entry.TimeBlocks = append(entry.TimeBlocks, model.TimeBlock{Start: r.StartTime, End: r.EndTime})
		week[key] = entry
	}

	f.cache.SetJSON(ctx, f.cacheKey(), week, weeklyCacheTTL)
	return week, nil
}

// SetDayAvailability reconciles one day's desired state into the rule store.
// Failure is reported through the returned SyncResult, never panicked or
// thrown across this boundary.
func (f *Facade) SetDayAvailability(dayOfWeek int, desired model.DayAvailability) SyncResult {
	return f.engine.SyncDay(dayOfWeek, desired)
}

// AvailabilityForDate layers date overrides over the weekly rules and
// subtracts active bookings for the given date.
func (f *Facade) AvailabilityForDate(date time.Time) (model.DayAvailability, error) {
	rules, err := f.store.ListRules(f.scheduleID)
	if err != nil {
		return model.DayAvailability{}, newError(KindStoreUnavailable, -1, err)
	}
	overrides, err := f.store.ListOverridesForDate(f.calendarID, date)
	if err != nil {
		return model.DayAvailability{}, newError(KindStoreUnavailable, -1, err)
	}
	bookings, err := f.store.ListBookingsForDate(f.calendarID, date)
	if err != nil {
		return model.DayAvailability{}, newError(KindStoreUnavailable, -1, err)
	}
	return ForDate(date, rules, overrides, bookings), nil
}

// SubscribeToLiveChanges opens the calendar's realtime feed. The returned
// function unsubscribes; after calling it a fresh subscription is required.
func (f *Facade) SubscribeToLiveChanges(handlers realtime.Handlers) (func(), error) {
	if f.channel == nil {
		return nil, fmt.Errorf("calendar %d has no realtime channel configured", f.calendarID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.feed != nil {
		return nil, fmt.Errorf("calendar %d already has a live subscription", f.calendarID)
	}

	feed := realtime.NewFeed(f.calendarID, f.channel, f.store, handlers)
	if err := feed.Start(); err != nil {
		return nil, newError(KindSubscriptionLost, -1, err)
	}
	f.feed = feed

	return func() {
		f.mu.Lock()
		if f.feed == feed {
			f.feed = nil
		}
		f.mu.Unlock()
		feed.Close()
	}, nil
}

// LiveBookings returns the feed's reconciled bookings when a subscription is
// active, falling back to a direct store read otherwise.
func (f *Facade) LiveBookings() ([]model.Booking, error) {
	f.mu.Lock()
	feed := f.feed
	f.mu.Unlock()
	if feed != nil {
		return feed.Bookings(), nil
	}
	return f.store.ListBookings(f.calendarID)
}

// LiveOverrides is the override counterpart of LiveBookings.
func (f *Facade) LiveOverrides() ([]model.AvailabilityOverride, error) {
	f.mu.Lock()
	feed := f.feed
	f.mu.Unlock()
	if feed != nil {
		return feed.Overrides(), nil
	}
	return f.store.ListOverrides(f.calendarID)
}
