package models

import "time"

// MessageRole identifies the author of a report thread message.
type MessageRole string

const (
	MessageRoleOrientador  MessageRole = "orientador"
	MessageRoleCoordenador MessageRole = "coordenador"
)

// Valid reports whether the role is known.
func (r MessageRole) Valid() bool {
	return r == MessageRoleOrientador || r == MessageRoleCoordenador
}

// MonthlyReport is an advisor-authored activity log entry for one calendar
// month. The stream is informational and never gates stage progression.
type MonthlyReport struct {
	ID          string    `db:"id" json:"id"`
	ProjectID   string    `db:"project_id" json:"project_id"`
	AdvisorID   string    `db:"advisor_id" json:"advisor_id"`
	Month       string    `db:"month" json:"month"`
	Description string    `db:"description" json:"description"`
	FileRef     *string   `db:"file_ref" json:"file_ref,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ReportMessage is one entry of the coordinator/advisor thread on a report.
type ReportMessage struct {
	ID         string      `db:"id" json:"id"`
	ReportID   string      `db:"report_id" json:"report_id"`
	AuthorRole MessageRole `db:"author_role" json:"author_role"`
	Text       string      `db:"text" json:"text"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
}

// MonthlySlotStatus is the computed lateness view of one report slot. It is
// derived from the tracker state and the ledger, never persisted.
type MonthlySlotStatus struct {
	Slot     int    `json:"slot"`
	Month    string `json:"month"`
	Reported bool   `json:"reported"`
	Late     bool   `json:"late"`
}
