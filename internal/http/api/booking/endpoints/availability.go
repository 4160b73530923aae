package endpoints

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/caldena/caldena/internal/http/api"
	"github.com/caldena/caldena/internal/http/api/booking/packets"
	"github.com/caldena/caldena/internal/model"
)

// parseDay accepts either the 0-6 integer (0=Sunday) or a day name
// ("monday".."sunday").
func parseDay(raw string) (int, bool) {
	if n, err := strconv.Atoi(raw); err == nil {
		if n >= 0 && n <= 6 {
			return n, true
		}
		return 0, false
	}
	if idx := model.DayIndex(raw); idx >= 0 {
		return idx, true
	}
	return 0, false
}

// GET /api/calendars/:id/availability
func (c *CalendarController) getWeeklyAvailability(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	cal, apiErr := c.ownedCalendar(ctx, user)
	if apiErr != nil {
		return nil, apiErr
	}
	f, apiErr := c.facade(cal)
	if apiErr != nil {
		return nil, apiErr
	}

	week, err := f.GetWeeklyAvailability(ctx.Request.Context())
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not load weekly availability"}
	}
	return week, nil
}

// PUT /api/calendars/:id/availability/:day
//
// The sync outcome is always reported in the body: success, skipped (another
// sync for the day was in flight), dropped invalid blocks, and the error kind
// when the day's sync failed.
func (c *CalendarController) setDayAvailability(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	cal, apiErr := c.ownedCalendar(ctx, user)
	if apiErr != nil {
		return nil, apiErr
	}

	day, ok := parseDay(ctx.Param("day"))
	if !ok {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: "invalid day"}
	}

	var request packets.SetDayAvailabilityRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}

	f, apiErr := c.facade(cal)
	if apiErr != nil {
		return nil, apiErr
	}

	result := f.SetDayAvailability(day, model.DayAvailability{
		Enabled:    request.Enabled,
		TimeBlocks: request.TimeBlocks,
	})
	return result, nil
}

// GET /api/calendars/:id/availability/date/:date
func (c *CalendarController) getDateAvailability(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	cal, apiErr := c.ownedCalendar(ctx, user)
	if apiErr != nil {
		return nil, apiErr
	}

	date, err := time.Parse("2006-01-02", ctx.Param("date"))
	if err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: "date must be YYYY-MM-DD"}
	}

	f, apiErr := c.facade(cal)
	if apiErr != nil {
		return nil, apiErr
	}

	day, err := f.AvailabilityForDate(date)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not compute availability"}
	}
	return day, nil
}
