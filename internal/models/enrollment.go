package models

import "time"

// EnrollmentWindow controls whether proposal intake accepts submissions for
// a program cycle and anchors the monthly-report calendar.
type EnrollmentWindow struct {
	Year             int       `db:"year" json:"year"`
	Open             bool      `db:"open" json:"open"`
	FirstReportMonth string    `db:"first_report_month" json:"first_report_month"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}
