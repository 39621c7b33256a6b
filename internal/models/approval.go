package models

import "time"

// DecisionStatus is the per-party outcome of an approval gate.
type DecisionStatus string

const (
	DecisionPendente  DecisionStatus = "pendente"
	DecisionAprovado  DecisionStatus = "aprovado"
	DecisionRejeitado DecisionStatus = "rejeitado"
)

// ApprovalParty identifies which reviewer a decision belongs to.
type ApprovalParty string

const (
	PartyAdvisor     ApprovalParty = "advisor"
	PartyCoordinator ApprovalParty = "coordinator"
)

// ApprovalRecord is a two-party sequential approval gate: the advisor decides
// first, the coordinator only once the advisor has approved. A rejection from
// either party is terminal for the submission it guards.
type ApprovalRecord struct {
	ID                   string         `db:"id" json:"id"`
	ProjectID            string         `db:"project_id" json:"project_id"`
	DeliverableID        *string        `db:"deliverable_id" json:"deliverable_id,omitempty"`
	AdvisorStatus        DecisionStatus `db:"advisor_status" json:"advisor_status"`
	AdvisorFeedback      *string        `db:"advisor_feedback" json:"advisor_feedback,omitempty"`
	AdvisorDecidedAt     *time.Time     `db:"advisor_decided_at" json:"advisor_decided_at,omitempty"`
	CoordinatorStatus    DecisionStatus `db:"coordinator_status" json:"coordinator_status"`
	CoordinatorFeedback  *string        `db:"coordinator_feedback" json:"coordinator_feedback,omitempty"`
	CoordinatorDecidedAt *time.Time     `db:"coordinator_decided_at" json:"coordinator_decided_at,omitempty"`
	CreatedAt            time.Time      `db:"created_at" json:"created_at"`
}

// Accepted reports whether both parties approved.
func (a *ApprovalRecord) Accepted() bool {
	return a.AdvisorStatus == DecisionAprovado && a.CoordinatorStatus == DecisionAprovado
}

// Rejected reports whether either party rejected.
func (a *ApprovalRecord) Rejected() bool {
	return a.AdvisorStatus == DecisionRejeitado || a.CoordinatorStatus == DecisionRejeitado
}

// Terminal reports whether no further decision is possible on this record.
func (a *ApprovalRecord) Terminal() bool {
	return a.Accepted() || a.Rejected()
}

// Open reports whether the record still awaits a decision.
func (a *ApprovalRecord) Open() bool {
	return !a.Terminal()
}
