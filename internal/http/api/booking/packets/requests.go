package packets

import "github.com/caldena/caldena/internal/model"

type CreateCalendarRequest struct {
	Name     string `json:"name" binding:"required"`
	Timezone string `json:"timezone"`
}

type SetDayAvailabilityRequest struct {
	Enabled    bool              `json:"enabled"`
	TimeBlocks []model.TimeBlock `json:"time_blocks"`
}

type CreateOverrideRequest struct {
	Date        string  `json:"date" binding:"required"` // YYYY-MM-DD
	IsAvailable bool    `json:"is_available"`
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"`
	Reason      *string `json:"reason"`
}

type CreateBookingRequest struct {
	ServiceTypeID *int    `json:"service_type_id"`
	CustomerName  string  `json:"customer_name" binding:"required"`
	CustomerPhone *string `json:"customer_phone"`
	StartTime     string  `json:"start_time" binding:"required"` // RFC3339
	EndTime       string  `json:"end_time" binding:"required"`   // RFC3339
}

type UpdateBookingStatusRequest struct {
	Status string `json:"status" binding:"required"`
}
