package endpoints

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/caldena/caldena/internal/availability"
	"github.com/caldena/caldena/internal/db"
	"github.com/caldena/caldena/internal/http/api"
	"github.com/caldena/caldena/internal/http/api/booking/packets"
	"github.com/caldena/caldena/internal/model"
	"github.com/caldena/caldena/internal/realtime"
)

// GET /api/calendars/:id/bookings
func (c *CalendarController) listBookings(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	cal, apiErr := c.ownedCalendar(ctx, user)
	if apiErr != nil {
		return nil, apiErr
	}
	bookings, err := c.store.ListBookings(cal.ID)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not list bookings"}
	}
	return bookings, nil
}

// POST /api/calendars/:id/bookings
//
// The requested slot must fit entirely inside the calendar's computed free
// time for that date (weekly rules, overrides applied, existing active
// bookings subtracted).
func (c *CalendarController) createBooking(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	cal, apiErr := c.ownedCalendar(ctx, user)
	if apiErr != nil {
		return nil, apiErr
	}

	var request packets.CreateBookingRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}

	start, err := time.Parse(time.RFC3339, request.StartTime)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: "start_time must be RFC3339"}
	}
	end, err := time.Parse(time.RFC3339, request.EndTime)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: "end_time must be RFC3339"}
	}
	if !start.Before(end) {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: "start_time must be before end_time"}
	}
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	if sy != ey || sm != em || sd != ed {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: "booking must start and end on the same date"}
	}

	f, apiErr := c.facade(cal)
	if apiErr != nil {
		return nil, apiErr
	}
	day, err := f.AvailabilityForDate(start)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not compute availability"}
	}
	if !availability.Fits(day, start.Format("15:04"), end.Format("15:04")) {
		return nil, &api.APIError{Code: http.StatusConflict, Message: "requested slot is not available"}
	}

	booking, err := c.store.CreateBooking(model.Booking{
		CalendarID:    cal.ID,
		ServiceTypeID: request.ServiceTypeID,
		CustomerName:  request.CustomerName,
		CustomerPhone: request.CustomerPhone,
		StartTime:     start,
		EndTime:       end,
		Status:        model.BookingPending,
	})
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not create booking"}
	}

	c.publish(cal.ID, realtime.BookingEvent(realtime.EventInsert, nil, &booking))
	return booking, nil
}

// PATCH /api/calendars/:id/bookings/:bookingID/status
func (c *CalendarController) updateBookingStatus(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	cal, apiErr := c.ownedCalendar(ctx, user)
	if apiErr != nil {
		return nil, apiErr
	}

	bookingID, err := strconv.Atoi(ctx.Param("bookingID"))
	if err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: "invalid booking id"}
	}

	var request packets.UpdateBookingStatusRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}
	if !model.ValidBookingStatus(request.Status) {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: "unknown booking status"}
	}

	existing, err := c.store.GetBookingByID(bookingID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, &api.APIError{Code: http.StatusNotFound, Message: "booking not found"}
		}
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not load booking"}
	}
	if existing.CalendarID != cal.ID {
		return nil, &api.APIError{Code: http.StatusNotFound, Message: "booking not found"}
	}

	if err := c.store.UpdateBookingStatus(bookingID, request.Status); err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not update booking"}
	}

	updated, err := c.store.GetBookingByID(bookingID)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not fetch updated booking"}
	}

	c.publish(cal.ID, realtime.BookingEvent(realtime.EventUpdate, &existing, &updated))
	return updated, nil
}
