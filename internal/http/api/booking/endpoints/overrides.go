package endpoints

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/caldena/caldena/internal/availability"
	"github.com/caldena/caldena/internal/http/api"
	"github.com/caldena/caldena/internal/http/api/booking/packets"
	"github.com/caldena/caldena/internal/model"
	"github.com/caldena/caldena/internal/realtime"
)

// GET /api/calendars/:id/overrides
func (c *CalendarController) listOverrides(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	cal, apiErr := c.ownedCalendar(ctx, user)
	if apiErr != nil {
		return nil, apiErr
	}
	overrides, err := c.store.ListOverrides(cal.ID)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not list overrides"}
	}
	return overrides, nil
}

// POST /api/calendars/:id/overrides
func (c *CalendarController) createOverride(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	cal, apiErr := c.ownedCalendar(ctx, user)
	if apiErr != nil {
		return nil, apiErr
	}

	var request packets.CreateOverrideRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}

	date, err := time.Parse("2006-01-02", request.Date)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: "date must be YYYY-MM-DD"}
	}
	if (request.StartTime == nil) != (request.EndTime == nil) {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: "start_time and end_time must be set together"}
	}
	if request.StartTime != nil {
		if !availability.ValidClock(*request.StartTime) || !availability.ValidClock(*request.EndTime) || *request.StartTime >= *request.EndTime {
			return nil, &api.APIError{Code: http.StatusBadRequest, Message: "invalid override time range"}
		}
	}

	override, err := c.store.CreateOverride(cal.ID, date, request.IsAvailable, request.StartTime, request.EndTime, request.Reason)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not create override"}
	}

	c.publish(cal.ID, realtime.OverrideEvent(realtime.EventInsert, nil, &override))
	return override, nil
}

// DELETE /api/calendars/:id/overrides/:overrideID
//
// Deleting an unknown override is a 404, but a DELETE change event for a row
// a consumer never saw is harmless: feed application treats it as a no-op.
func (c *CalendarController) deleteOverride(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	cal, apiErr := c.ownedCalendar(ctx, user)
	if apiErr != nil {
		return nil, apiErr
	}

	overrideID, err := strconv.Atoi(ctx.Param("overrideID"))
	if err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: "invalid override id"}
	}

	overrides, err := c.store.ListOverrides(cal.ID)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not load overrides"}
	}
	var found *model.AvailabilityOverride
	for i := range overrides {
		if overrides[i].ID == overrideID {
			found = &overrides[i]
			break
		}
	}
	if found == nil {
		return nil, &api.APIError{Code: http.StatusNotFound, Message: "override not found"}
	}

	if err := c.store.DeleteOverride(found.ID); err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not delete override"}
	}

	c.publish(cal.ID, realtime.OverrideEvent(realtime.EventDelete, found, nil))
	return gin.H{"deleted": found.ID}, nil
}

// publish pushes a change event to the calendar's topic. Publication is
// best-effort; the row is already persisted when this runs.
func (c *CalendarController) publish(calendarID int, ev realtime.ChangeEvent) {
	if c.channel == nil {
		return
	}
	if err := c.channel.Publish(calendarID, ev); err != nil {
		log.Error().Err(err).Int("calendar_id", calendarID).Msg("could not publish change event")
	}
}
