package dto

// ScheduleRequest attaches date/time/location to a presentation event.
type ScheduleRequest struct {
	Date      string `json:"date" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	Campus    string `json:"campus" validate:"required"`
	Room      string `json:"room" validate:"required"`
}
