package models

import "time"

// Audit actions recorded by the portal.
const (
	AuditActionLogin                = "auth.login"
	AuditActionLogout               = "auth.logout"
	AuditActionProposalSubmit       = "proposal.submit"
	AuditActionProposalDecide       = "proposal.decide"
	AuditActionProjectReset         = "project.reset"
	AuditActionStageOverride        = "stage.override"
	AuditActionStageBulkOverride    = "stage.bulk_override"
	AuditActionPresentationSchedule = "presentation.schedule"
	AuditActionPresentationEvaluate = "presentation.evaluate"
	AuditActionDeliverableSubmit    = "deliverable.submit"
	AuditActionDeliverableReview    = "deliverable.review"
	AuditActionReportAppend         = "monthlyreport.append"
	AuditActionReportMessage        = "monthlyreport.message"
	AuditActionCertificateIssue     = "certificate.issue"
	AuditActionWindowUpdate         = "enrollment.window_update"
)

// AuditLog records a sensitive action for traceability.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
