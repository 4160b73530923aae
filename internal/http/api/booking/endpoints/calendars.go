package endpoints

import (
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/caldena/caldena/internal/availability"
	"github.com/caldena/caldena/internal/db"
	"github.com/caldena/caldena/internal/http/api"
	"github.com/caldena/caldena/internal/http/api/booking/packets"
	"github.com/caldena/caldena/internal/model"
	"github.com/caldena/caldena/internal/realtime"
	"github.com/caldena/caldena/internal/redis"
)

const defaultScheduleName = "Working hours"

// CalendarController backs every calendar-scoped endpoint. The cache and
// channel are optional; the store is not.
type CalendarController struct {
	store   db.Store
	cache   *redis.Cache
	channel realtime.Channel

	mu      sync.Mutex
	facades map[int]*availability.Facade
}

func newCalendarController(store db.Store, cache *redis.Cache, channel realtime.Channel) *CalendarController {
	return &CalendarController{
		store:   store,
		cache:   cache,
		channel: channel,
		facades: make(map[int]*availability.Facade),
	}
}

// CalendarModule mounts calendar CRUD plus the availability, override and
// booking endpoints (JWT required).
func CalendarModule(store db.Store, cache *redis.Cache, channel realtime.Channel) api.Module {
	ctl := newCalendarController(store, cache, channel)
	return api.ModuleFunc(func(c *api.Controller) {
		c.POST("/calendars", ctl.createCalendar)
		c.GET("/calendars", ctl.listCalendars)
		c.GET("/calendars/:id", ctl.getCalendar)
		c.DELETE("/calendars/:id", ctl.deleteCalendar)

		c.GET("/calendars/:id/availability", ctl.getWeeklyAvailability)
		c.PUT("/calendars/:id/availability/:day", ctl.setDayAvailability)
		c.GET("/calendars/:id/availability/date/:date", ctl.getDateAvailability)

		c.GET("/calendars/:id/overrides", ctl.listOverrides)
		c.POST("/calendars/:id/overrides", ctl.createOverride)
		c.DELETE("/calendars/:id/overrides/:overrideID", ctl.deleteOverride)

		c.GET("/calendars/:id/bookings", ctl.listBookings)
		c.POST("/calendars/:id/bookings", ctl.createBooking)
		c.PATCH("/calendars/:id/bookings/:bookingID/status", ctl.updateBookingStatus)
	})
}

// ownedCalendar loads the :id calendar and enforces that user owns it.
func (c *CalendarController) ownedCalendar(ctx *gin.Context, user *model.User) (model.Calendar, *api.APIError) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return model.Calendar{}, &api.APIError{Code: http.StatusBadRequest, Message: "invalid calendar id"}
	}
	cal, err := c.store.GetCalendarByID(id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return model.Calendar{}, &api.APIError{Code: http.StatusNotFound, Message: "calendar not found"}
		}
		return model.Calendar{}, &api.APIError{Code: http.StatusInternalServerError, Message: "could not load calendar"}
	}
	if cal.OwnerID != user.ID {
		return model.Calendar{}, &api.APIError{Code: http.StatusForbidden, Message: "not your calendar"}
	}
	return cal, nil
}

// facade returns the availability facade for one owned calendar, building it
// on first use. Facades are cached per calendar so that the engine's per-day
// in-flight guard spans requests; a fresh engine per request would let two
// concurrent syncs for the same day both run.
func (c *CalendarController) facade(cal model.Calendar) (*availability.Facade, *api.APIError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.facades[cal.ID]; ok {
		return f, nil
	}
	f, err := availability.NewFacade(cal.ID, c.store, c.cache, c.channel)
	if err != nil {
		log.Error().Err(err).Int("calendar_id", cal.ID).Msg("could not build availability facade")
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "availability unavailable for calendar"}
	}
	c.facades[cal.ID] = f
	return f, nil
}

func (c *CalendarController) dropFacade(calendarID int) {
	c.mu.Lock()
	delete(c.facades, calendarID)
	c.mu.Unlock()
}

// POST /api/calendars
func (c *CalendarController) createCalendar(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	var request packets.CreateCalendarRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}
	if request.Timezone == "" {
		request.Timezone = "UTC"
	}

	cal, err := c.store.CreateCalendar(user.ID, request.Name, request.Timezone)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not create calendar"}
	}

	// Every calendar starts with a default schedule so the sync engine always
	// has a target.
	if _, err := c.store.CreateSchedule(cal.ID, defaultScheduleName, true); err != nil {
		log.Error().Err(err).Int("calendar_id", cal.ID).Msg("could not create default schedule")
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not create default schedule"}
	}

	return cal, nil
}

// GET /api/calendars
func (c *CalendarController) listCalendars(_ *gin.Context, user *model.User) (any, *api.APIError) {
	calendars, err := c.store.ListCalendars(user.ID)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not list calendars"}
	}
	return calendars, nil
}

// GET /api/calendars/:id
func (c *CalendarController) getCalendar(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	cal, apiErr := c.ownedCalendar(ctx, user)
	if apiErr != nil {
		return nil, apiErr
	}
	return cal, nil
}

// DELETE /api/calendars/:id
func (c *CalendarController) deleteCalendar(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	cal, apiErr := c.ownedCalendar(ctx, user)
	if apiErr != nil {
		return nil, apiErr
	}
	if err := c.store.DeleteCalendar(cal.ID); err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not delete calendar"}
	}
	c.dropFacade(cal.ID)
	return gin.H{"deleted": cal.ID}, nil
}
