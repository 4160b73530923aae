package endpoints_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caldena/caldena/internal/db"
	"github.com/caldena/caldena/internal/http/api"
	authapi "github.com/caldena/caldena/internal/http/api/auth/endpoints"
	bookingapi "github.com/caldena/caldena/internal/http/api/booking/endpoints"
	"github.com/caldena/caldena/internal/http/middleware"
	"github.com/caldena/caldena/internal/model"
)

// memStore is an in-memory db.Store for router tests. ruleListDelay slows
// down rule listing to widen sync windows in concurrency tests.
type memStore struct {
	mu            sync.Mutex
	seq           int
	ruleListDelay time.Duration
	users         map[int]model.User
	calendars     map[int]model.Calendar
	schedules     map[int]model.AvailabilitySchedule
	rules         map[int]model.AvailabilityRule
	overrides     map[int]model.AvailabilityOverride
	bookings      map[int]model.Booking
}

var _ db.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		users:     make(map[int]model.User),
		calendars: make(map[int]model.Calendar),
		schedules: make(map[int]model.AvailabilitySchedule),
		rules:     make(map[int]model.AvailabilityRule),
		overrides: make(map[int]model.AvailabilityOverride),
		bookings:  make(map[int]model.Booking),
	}
}

func (s *memStore) nextID() int {
	s.seq++
	return s.seq
}

func (s *memStore) CreateUser(email, hashedPassword string, name *string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID()
	s.users[id] = model.User{ID: id, Email: email, HashedPassword: hashedPassword, Name: name}
	return id, nil
}

func (s *memStore) GetUserByEmail(email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, db.ErrNotFound
}

func (s *memStore) GetUserByID(id int) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	out := u
	return &out, nil
}

func (s *memStore) UpdateUserProfile(id int, email string, name *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return db.ErrNotFound
	}
	u.Email = email
	u.Name = name
	s.users[id] = u
	return nil
}

func (s *memStore) CreateCalendar(ownerID int, name, timezone string) (model.Calendar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := model.Calendar{ID: s.nextID(), OwnerID: ownerID, Name: name, Timezone: timezone}
	s.calendars[c.ID] = c
	return c, nil
}

func (s *memStore) GetCalendarByID(id int) (model.Calendar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calendars[id]
	if !ok {
		return model.Calendar{}, db.ErrNotFound
	}
	return c, nil
}

func (s *memStore) ListCalendars(ownerID int) ([]model.Calendar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Calendar, 0)
	for _, c := range s.calendars {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) DeleteCalendar(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.calendars, id)
	return nil
}

func (s *memStore) CreateSchedule(calendarID int, name string, isDefault bool) (model.AvailabilitySchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sched := model.AvailabilitySchedule{ID: s.nextID(), CalendarID: calendarID, Name: name, IsDefault: isDefault}
	s.schedules[sched.ID] = sched
	return sched, nil
}

func (s *memStore) ListSchedules(calendarID int) ([]model.AvailabilitySchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.AvailabilitySchedule, 0)
	for _, sched := range s.schedules {
		if sched.CalendarID == calendarID {
			out = append(out, sched)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) ListRules(scheduleID int) ([]model.AvailabilityRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.AvailabilityRule, 0)
	for _, r := range s.rules {
		if r.ScheduleID == scheduleID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DayOfWeek != out[j].DayOfWeek {
			return out[i].DayOfWeek < out[j].DayOfWeek
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (s *memStore) ListRulesForDay(scheduleID, dayOfWeek int) ([]model.AvailabilityRule, error) {
	if s.ruleListDelay > 0 {
		time.Sleep(s.ruleListDelay)
	}
	rules, _ := s.ListRules(scheduleID)
	out := make([]model.AvailabilityRule, 0)
	for _, r := range rules {
		if r.DayOfWeek == dayOfWeek {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) CreateRule(scheduleID, dayOfWeek int, startTime, endTime string, isAvailable bool) (model.AvailabilityRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rules {
		if r.ScheduleID == scheduleID && r.DayOfWeek == dayOfWeek && r.StartTime == startTime {
			return model.AvailabilityRule{}, db.ErrDuplicateKey
		}
	}
	r := model.AvailabilityRule{
		ID: s.nextID(), ScheduleID: scheduleID, DayOfWeek: dayOfWeek,
		StartTime: startTime, EndTime: endTime, IsAvailable: isAvailable,
	}
	s.rules[r.ID] = r
	return r, nil
}

func (s *memStore) DeleteRule(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rules, id)
	return nil
}

func (s *memStore) ListOverrides(calendarID int) ([]model.AvailabilityOverride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.AvailabilityOverride, 0)
	for _, o := range s.overrides {
		if o.CalendarID == calendarID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) ListOverridesForDate(calendarID int, date time.Time) ([]model.AvailabilityOverride, error) {
	all, _ := s.ListOverrides(calendarID)
	out := make([]model.AvailabilityOverride, 0)
	for _, o := range all {
		if o.Date.Format("2006-01-02") == date.Format("2006-01-02") {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *memStore) CreateOverride(calendarID int, date time.Time, isAvailable bool, startTime, endTime, reason *string) (model.AvailabilityOverride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := model.AvailabilityOverride{
		ID: s.nextID(), CalendarID: calendarID, Date: date,
		IsAvailable: isAvailable, StartTime: startTime, EndTime: endTime, Reason: reason,
	}
	s.overrides[o.ID] = o
	return o, nil
}

func (s *memStore) DeleteOverride(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.overrides, id)
	return nil
}

func (s *memStore) ListBookings(calendarID int) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Booking, 0)
	for _, b := range s.bookings {
		if b.CalendarID == calendarID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) ListBookingsForDate(calendarID int, date time.Time) ([]model.Booking, error) {
	all, _ := s.ListBookings(calendarID)
	out := make([]model.Booking, 0)
	for _, b := range all {
		if b.StartTime.Format("2006-01-02") == date.Format("2006-01-02") {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *memStore) GetBookingByID(id int) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return model.Booking{}, db.ErrNotFound
	}
	return b, nil
}

func (s *memStore) CreateBooking(b model.Booking) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = s.nextID()
	s.bookings[b.ID] = b
	return b, nil
}

func (s *memStore) UpdateBookingStatus(id int, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return db.ErrNotFound
	}
	b.Status = status
	s.bookings[id] = b
	return nil
}

const testSecret = "supersecret"

func setupRouter(store db.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api.MountGroup(r, api.GroupConfig{Prefix: "/api"},
		authapi.AuthPublicModule(testSecret, store),
	)
	api.MountGroup(r, api.GroupConfig{
		Prefix:    "/api",
		Auth:      true,
		SecretKey: testSecret,
		Store:     store,
	},
		authapi.AuthSessionModule(testSecret, store),
		bookingapi.CalendarModule(store, nil, nil),
	)
	return r
}

func do(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func signupAndCalendar(t *testing.T, r *gin.Engine) (token string, calendarID int) {
	t.Helper()
	w := do(t, r, http.MethodPost, "/api/auth/signup", "", gin.H{
		"email":    "owner@example.com",
		"password": "12345678",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var signup map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &signup))
	token = signup["token"]

	w = do(t, r, http.MethodPost, "/api/calendars", token, gin.H{"name": "Studio"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var cal model.Calendar
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cal))
	return token, cal.ID
}

func TestSignupLoginAndProfile(t *testing.T) {
	r := setupRouter(newMemStore())

	w := do(t, r, http.MethodPost, "/api/auth/signup", "", gin.H{
		"email":    "test@example.com",
		"password": "12345678",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var signup map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &signup))
	token := signup["token"]
	require.NotEmpty(t, token)

	w = do(t, r, http.MethodGet, "/api/auth/current_profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, http.MethodGet, "/api/auth/current_profile", token, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "test@example.com",
		"password": "12345678",
	})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestCalendarCreationAddsDefaultSchedule(t *testing.T) {
	store := newMemStore()
	r := setupRouter(store)
	_, calendarID := signupAndCalendar(t, r)

	schedules, err := store.ListSchedules(calendarID)
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.True(t, schedules[0].IsDefault)
}

func TestCalendarOwnershipEnforced(t *testing.T) {
	r := setupRouter(newMemStore())
	_, calendarID := signupAndCalendar(t, r)

	w := do(t, r, http.MethodPost, "/api/auth/signup", "", gin.H{
		"email":    "intruder@example.com",
		"password": "12345678",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var signup map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &signup))

	w = do(t, r, http.MethodGet, fmt.Sprintf("/api/calendars/%d", calendarID), signup["token"], nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAvailabilityPutThenGet(t *testing.T) {
	r := setupRouter(newMemStore())
	token, calendarID := signupAndCalendar(t, r)

	w := do(t, r, http.MethodPut, fmt.Sprintf("/api/calendars/%d/availability/monday", calendarID), token, gin.H{
		"enabled": true,
		"time_blocks": []gin.H{
			{"start": "13:00", "end": "17:00"},
			{"start": "08:00", "end": "12:00"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result struct {
		Day     int  `json:"day"`
		Success bool `json:"success"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Day)
	assert.True(t, result.Success)

	w = do(t, r, http.MethodGet, fmt.Sprintf("/api/calendars/%d/availability", calendarID), token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var week model.WeeklyAvailability
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &week))
	assert.True(t, week["monday"].Enabled)
	require.Len(t, week["monday"].TimeBlocks, 2)
	assert.Equal(t, "08:00", week["monday"].TimeBlocks[0].Start)
	assert.False(t, week["sunday"].Enabled)
}

func TestConcurrentDayPutsShareOneInFlightGuard(t *testing.T) {
	store := newMemStore()
	store.ruleListDelay = 50 * time.Millisecond
	r := setupRouter(store)
	token, calendarID := signupAndCalendar(t, r)

	type syncOutcome struct {
		Success bool `json:"success"`
		Skipped bool `json:"skipped"`
	}
	putMonday := func(start, end string) syncOutcome {
		w := do(t, r, http.MethodPut, fmt.Sprintf("/api/calendars/%d/availability/monday", calendarID), token, gin.H{
			"enabled":     true,
			"time_blocks": []gin.H{{"start": start, "end": end}},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var out syncOutcome
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		return out
	}

	var wg sync.WaitGroup
	wg.Add(1)
	var first syncOutcome
	go func() {
		defer wg.Done()
		first = putMonday("09:00", "12:00")
	}()

	// The second request lands while the first sync still holds the day.
	time.Sleep(10 * time.Millisecond)
	second := putMonday("10:00", "13:00")
	wg.Wait()

	require.True(t, first.Success)
	assert.True(t, second.Skipped, "same-day sync must be guarded across requests")
	assert.False(t, second.Success)

	// Only the winning request's block is persisted; the day never becomes a
	// union of overlapping ranges.
	schedules, err := store.ListSchedules(calendarID)
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	rules, err := store.ListRulesForDay(schedules[0].ID, 1)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "09:00", rules[0].StartTime)
	assert.Equal(t, "12:00", rules[0].EndTime)
}

func TestAvailabilityPutRejectsBadDay(t *testing.T) {
	r := setupRouter(newMemStore())
	token, calendarID := signupAndCalendar(t, r)

	w := do(t, r, http.MethodPut, fmt.Sprintf("/api/calendars/%d/availability/funday", calendarID), token, gin.H{
		"enabled": false,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookingRespectsComputedAvailability(t *testing.T) {
	r := setupRouter(newMemStore())
	token, calendarID := signupAndCalendar(t, r)

	w := do(t, r, http.MethodPut, fmt.Sprintf("/api/calendars/%d/availability/monday", calendarID), token, gin.H{
		"enabled":     true,
		"time_blocks": []gin.H{{"start": "09:00", "end": "17:00"}},
	})
	require.Equal(t, http.StatusOK, w.Code)

	// 2026-03-02 is a Monday.
	book := func(start, end string) *httptest.ResponseRecorder {
		return do(t, r, http.MethodPost, fmt.Sprintf("/api/calendars/%d/bookings", calendarID), token, gin.H{
			"customer_name": "Ada",
			"start_time":    start,
			"end_time":      end,
		})
	}

	w = book("2026-03-02T10:00:00Z", "2026-03-02T11:00:00Z")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var created model.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, model.BookingPending, created.Status)

	// The same slot is now taken.
	w = book("2026-03-02T10:00:00Z", "2026-03-02T11:00:00Z")
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	// Outside working hours.
	w = book("2026-03-02T18:00:00Z", "2026-03-02T19:00:00Z")
	assert.Equal(t, http.StatusConflict, w.Code)

	// Cancelling frees the slot.
	w = do(t, r, http.MethodPatch,
		fmt.Sprintf("/api/calendars/%d/bookings/%d/status", calendarID, created.ID),
		token, gin.H{"status": "cancelled"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = book("2026-03-02T10:00:00Z", "2026-03-02T11:00:00Z")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestOverrideBlocksBooking(t *testing.T) {
	r := setupRouter(newMemStore())
	token, calendarID := signupAndCalendar(t, r)

	w := do(t, r, http.MethodPut, fmt.Sprintf("/api/calendars/%d/availability/monday", calendarID), token, gin.H{
		"enabled":     true,
		"time_blocks": []gin.H{{"start": "09:00", "end": "17:00"}},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodPost, fmt.Sprintf("/api/calendars/%d/overrides", calendarID), token, gin.H{
		"date":         "2026-03-02",
		"is_available": false,
		"reason":       "holiday",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var override model.AvailabilityOverride
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &override))

	w = do(t, r, http.MethodPost, fmt.Sprintf("/api/calendars/%d/bookings", calendarID), token, gin.H{
		"customer_name": "Ada",
		"start_time":    "2026-03-02T10:00:00Z",
		"end_time":      "2026-03-02T11:00:00Z",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, r, http.MethodDelete,
		fmt.Sprintf("/api/calendars/%d/overrides/%d", calendarID, override.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodPost, fmt.Sprintf("/api/calendars/%d/bookings", calendarID), token, gin.H{
		"customer_name": "Ada",
		"start_time":    "2026-03-02T10:00:00Z",
		"end_time":      "2026-03-02T11:00:00Z",
	})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestDeleteUnknownOverrideIs404(t *testing.T) {
	r := setupRouter(newMemStore())
	token, calendarID := signupAndCalendar(t, r)

	w := do(t, r, http.MethodDelete,
		fmt.Sprintf("/api/calendars/%d/overrides/999", calendarID), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMiddlewareGeneratesVerifiableTokens(t *testing.T) {
	store := newMemStore()
	r := setupRouter(store)

	id, err := store.CreateUser("direct@example.com", "hash", nil)
	require.NoError(t, err)
	token, err := middleware.GenerateJWT(id, testSecret)
	require.NoError(t, err)

	w := do(t, r, http.MethodGet, "/api/auth/current_profile", token, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}
