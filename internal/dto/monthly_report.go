package dto

import "github.com/icdev-br/pic-portal-api/internal/models"

// AppendReportRequest records a monthly activity report.
type AppendReportRequest struct {
	Month       string  `json:"month" validate:"required"`
	Description string  `json:"description" validate:"required"`
	FileRef     *string `json:"file_ref,omitempty"`
}

// AddMessageRequest appends a message to a report thread.
type AddMessageRequest struct {
	Text string `json:"text" validate:"required"`
}

// ReportDetail pairs a report with its message thread.
type ReportDetail struct {
	models.MonthlyReport
	Messages []models.ReportMessage `json:"messages"`
}

// LedgerView is the monthly-report listing with computed lateness.
type LedgerView struct {
	Reports []ReportDetail             `json:"reports"`
	Slots   []models.MonthlySlotStatus `json:"slots"`
}
