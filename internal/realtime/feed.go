package realtime

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/caldena/caldena/internal/model"
)

// Snapshot is the read side used to rebuild full state after a transport
// disconnect, since missed events cannot be replayed.
type Snapshot interface {
	ListBookings(calendarID int) ([]model.Booking, error)
	ListOverrides(calendarID int) ([]model.AvailabilityOverride, error)
}

// Handlers receive per-row notifications after an event has been applied to
// the feed's local state. All fields are optional.
type Handlers struct {
	OnBookingChange  func(EventType, model.Booking)
	OnOverrideChange func(EventType, model.AvailabilityOverride)
	// OnNotice receives a human-readable line per applied event, for UI toasts.
	OnNotice func(string)
	// OnError receives terminal feed errors (a refetch failing after a
	// disconnect). The feed stops after reporting one.
	OnError func(error)
}

// Recovery window after a transport drop. The transport may still be
// reconnecting when the stream ends, so a failed recovery attempt gets a few
// delayed retries before the feed gives up.
const (
	recoverAttempts = 5
	recoverDelay    = 2 * time.Second
)

// Feed reconciles a live change stream into an in-memory view of one
// calendar's bookings and overrides. Application is idempotent and keyed by
// row id, so duplicate delivery and races with optimistic local writes
// resolve as last-write-wins.
type Feed struct {
	calendarID int
	channel    Channel
	snapshot   Snapshot
	handlers   Handlers

	retryAttempts int
	retryDelay    time.Duration

	mu        sync.RWMutex
	bookings  map[int]model.Booking
	overrides map[int]model.AvailabilityOverride
	sub       *Subscription
	closed    bool
}

func NewFeed(calendarID int, channel Channel, snapshot Snapshot, handlers Handlers) *Feed {
	return &Feed{
		calendarID:    calendarID,
		channel:       channel,
		snapshot:      snapshot,
		handlers:      handlers,
		retryAttempts: recoverAttempts,
		retryDelay:    recoverDelay,
		bookings:      make(map[int]model.Booking),
		overrides:     make(map[int]model.AvailabilityOverride),
	}
}

// Start fetches the current full state, subscribes, and begins applying
// events in delivery order.
func (f *Feed) Start() error {
	if err := f.refetch(); err != nil {
		return err
	}
	sub, err := f.channel.Subscribe(f.calendarID)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.sub = sub
	f.mu.Unlock()

	go f.run(sub.Events)
	return nil
}

// Close ends the subscription. The feed's last known state stays readable.
func (f *Feed) Close() {
	f.mu.Lock()
	f.closed = true
	sub := f.sub
	f.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}

func (f *Feed) run(events <-chan ChangeEvent) {
	for ev := range events {
		f.Apply(ev)
	}

	if f.isClosed() {
		return
	}

	// The transport dropped the stream. Refetch before resubscribing: there
	// is no cursor, so incremental application alone would miss events. The
	// transport may itself still be reconnecting, so failed attempts are
	// retried a bounded number of times before the loss is surfaced.
	log.Warn().Int("calendar_id", f.calendarID).Msg("change stream ended, refetching state")
	var err error
	for attempt := 1; attempt <= f.retryAttempts; attempt++ {
		if attempt > 1 {
			time.Sleep(f.retryDelay)
			if f.isClosed() {
				return
			}
		}
		if err = f.resubscribe(); err == nil {
			return
		}
		log.Warn().Err(err).
			Int("calendar_id", f.calendarID).
			Int("attempt", attempt).
			Msg("change stream recovery failed")
	}

	log.Error().Err(err).Int("calendar_id", f.calendarID).Msg("could not recover change stream")
	if f.handlers.OnError != nil {
		f.handlers.OnError(fmt.Errorf("%w: %w", ErrSubscriptionLost, err))
	}
}

func (f *Feed) isClosed() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.closed
}

func (f *Feed) resubscribe() error {
	if err := f.refetch(); err != nil {
		return err
	}
	sub, err := f.channel.Subscribe(f.calendarID)
	if err != nil {
		return err
	}
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		sub.Unsubscribe()
		return nil
	}
	f.sub = sub
	f.mu.Unlock()

	go f.run(sub.Events)
	return nil
}

// refetch rebuilds both collections from the snapshot source. The swap is
// atomic with respect to readers.
func (f *Feed) refetch() error {
	bookings, err := f.snapshot.ListBookings(f.calendarID)
	if err != nil {
		return err
	}
	overrides, err := f.snapshot.ListOverrides(f.calendarID)
	if err != nil {
		return err
	}

	nextBookings := make(map[int]model.Booking, len(bookings))
	for _, b := range bookings {
		nextBookings[b.ID] = b
	}
	nextOverrides := make(map[int]model.AvailabilityOverride, len(overrides))
	for _, o := range overrides {
		nextOverrides[o.ID] = o
	}

	f.mu.Lock()
	f.bookings = nextBookings
	f.overrides = nextOverrides
	f.mu.Unlock()
	return nil
}

// Apply merges one change event into local state. Unknown tables are logged
// and skipped. Within one event the collection update is atomic to readers.
func (f *Feed) Apply(ev ChangeEvent) {
	switch ev.Table {
	case TableBookings:
		f.applyBooking(ev)
	case TableOverrides:
		f.applyOverride(ev)
	default:
		log.Warn().Str("table", string(ev.Table)).Msg("change event for unknown table")
	}
}

func (f *Feed) applyBooking(ev ChangeEvent) {
	var row model.Booking
	if err := json.Unmarshal(ev.row(), &row); err != nil {
		log.Error().Err(err).Msg("dropping undecodable booking event")
		return
	}

	f.mu.Lock()
	applied := true
	switch ev.EventType {
	case EventInsert:
		// Guard against duplicate delivery or an optimistic local insert
		// already reflected in state.
		if _, exists := f.bookings[row.ID]; exists {
			applied = false
		} else {
			f.bookings[row.ID] = row
		}
	case EventUpdate:
		// Missing rows are treated as inserts.
		f.bookings[row.ID] = row
	case EventDelete:
		if _, exists := f.bookings[row.ID]; !exists {
			applied = false
		}
		delete(f.bookings, row.ID)
	default:
		applied = false
	}
	f.mu.Unlock()

	if !applied {
		return
	}
	if f.handlers.OnBookingChange != nil {
		f.handlers.OnBookingChange(ev.EventType, row)
	}
	f.notice(bookingNotice(ev.EventType, row))
}

func (f *Feed) applyOverride(ev ChangeEvent) {
	var row model.AvailabilityOverride
	if err := json.Unmarshal(ev.row(), &row); err != nil {
		log.Error().Err(err).Msg("dropping undecodable override event")
		return
	}

	f.mu.Lock()
	applied := true
	switch ev.EventType {
	case EventInsert:
		if _, exists := f.overrides[row.ID]; exists {
			applied = false
		} else {
			f.overrides[row.ID] = row
		}
	case EventUpdate:
		f.overrides[row.ID] = row
	case EventDelete:
		if _, exists := f.overrides[row.ID]; !exists {
			applied = false
		}
		delete(f.overrides, row.ID)
	default:
		applied = false
	}
	f.mu.Unlock()

	if !applied {
		return
	}
	if f.handlers.OnOverrideChange != nil {
		f.handlers.OnOverrideChange(ev.EventType, row)
	}
	f.notice(overrideNotice(ev.EventType, row))
}

func (f *Feed) notice(msg string) {
	if f.handlers.OnNotice != nil && msg != "" {
		f.handlers.OnNotice(msg)
	}
}

func bookingNotice(t EventType, b model.Booking) string {
	switch t {
	case EventInsert:
		return fmt.Sprintf("new booking from %s", b.CustomerName)
	case EventUpdate:
		return fmt.Sprintf("booking %d is now %s", b.ID, b.Status)
	case EventDelete:
		return fmt.Sprintf("booking %d removed", b.ID)
	}
	return ""
}

func overrideNotice(t EventType, o model.AvailabilityOverride) string {
	day := o.Date.Format("2006-01-02")
	switch t {
	case EventInsert:
		if !o.IsAvailable {
			return fmt.Sprintf("%s blocked", day)
		}
		return fmt.Sprintf("availability changed for %s", day)
	case EventUpdate:
		return fmt.Sprintf("availability changed for %s", day)
	case EventDelete:
		return fmt.Sprintf("override for %s removed", day)
	}
	return ""
}

// Bookings returns the current bookings ordered by id.
func (f *Feed) Bookings() []model.Booking {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]model.Booking, 0, len(f.bookings))
	for _, b := range f.bookings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Overrides returns the current overrides ordered by id.
func (f *Feed) Overrides() []model.AvailabilityOverride {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]model.AvailabilityOverride, 0, len(f.overrides))
	for _, o := range f.overrides {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
