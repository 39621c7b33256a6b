package dto

// WindowView is the enrollment window as exposed to clients.
type WindowView struct {
	Open       bool `json:"open"`
	ActiveYear int  `json:"active_year"`
}

// UpdateWindowRequest opens or closes the active enrollment cycle.
type UpdateWindowRequest struct {
	Open             *bool  `json:"open" validate:"required"`
	FirstReportMonth string `json:"first_report_month"`
}
