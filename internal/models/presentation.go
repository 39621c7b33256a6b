package models

import "time"

// PresentationEvent identifies which presentation a schedule belongs to.
type PresentationEvent string

const (
	PresentationProposta PresentationEvent = "proposta"
	PresentationAmostra  PresentationEvent = "amostra"
)

// Valid reports whether the event type is known.
func (e PresentationEvent) Valid() bool {
	return e == PresentationProposta || e == PresentationAmostra
}

// PresentationSchedule holds the date/time/location of a presentation event
// plus the coordinator's evaluation outcome. Rescheduling resets the
// evaluation to pendente.
type PresentationSchedule struct {
	ID                 string            `db:"id" json:"id"`
	ProjectID          string            `db:"project_id" json:"project_id"`
	Event              PresentationEvent `db:"event" json:"event"`
	Date               string            `db:"date" json:"date"`
	StartTime          string            `db:"start_time" json:"start_time"`
	Campus             string            `db:"campus" json:"campus"`
	Room               string            `db:"room" json:"room"`
	EvaluationStatus   DecisionStatus    `db:"evaluation_status" json:"evaluation_status"`
	EvaluationFeedback *string           `db:"evaluation_feedback" json:"evaluation_feedback,omitempty"`
	EvaluatedAt        *time.Time        `db:"evaluated_at" json:"evaluated_at,omitempty"`
	CreatedAt          time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time         `db:"updated_at" json:"updated_at"`
}

// Scheduled reports whether all schedule fields are populated.
func (p *PresentationSchedule) Scheduled() bool {
	return p.Date != "" && p.StartTime != "" && p.Campus != "" && p.Room != ""
}
