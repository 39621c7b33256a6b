package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/icdev-br/pic-portal-api/internal/models"
)

const approvalColumns = `id, project_id, deliverable_id, advisor_status, advisor_feedback, advisor_decided_at,
       coordinator_status, coordinator_feedback, coordinator_decided_at, created_at`

// ApprovalRepository persists approval gate records.
type ApprovalRepository struct {
	db *sqlx.DB
}

// NewApprovalRepository constructs the repository.
func NewApprovalRepository(db *sqlx.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

func insertApproval(ctx context.Context, tx *sqlx.Tx, approval *models.ApprovalRecord) error {
	if approval.ID == "" {
		approval.ID = uuid.NewString()
	}
	if approval.AdvisorStatus == "" {
		approval.AdvisorStatus = models.DecisionPendente
	}
	if approval.CoordinatorStatus == "" {
		approval.CoordinatorStatus = models.DecisionPendente
	}
	if approval.CreatedAt.IsZero() {
		approval.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO approval_records
	(id, project_id, deliverable_id, advisor_status, advisor_feedback, advisor_decided_at, coordinator_status, coordinator_feedback, coordinator_decided_at, created_at)
	VALUES (:id, :project_id, :deliverable_id, :advisor_status, :advisor_feedback, :advisor_decided_at, :coordinator_status, :coordinator_feedback, :coordinator_decided_at, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, approval); err != nil {
		return fmt.Errorf("create approval record: %w", err)
	}
	return nil
}

// GetByID fetches an approval record.
func (r *ApprovalRepository) GetByID(ctx context.Context, id string) (*models.ApprovalRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM approval_records WHERE id = $1 LIMIT 1`, approvalColumns)
	var record models.ApprovalRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find approval by id: %w", err)
	}
	return &record, nil
}

// LatestProposalGate returns the most recent proposal gate for a project.
// Resubmissions open fresh records, so only the newest one is live.
func (r *ApprovalRepository) LatestProposalGate(ctx context.Context, projectID string) (*models.ApprovalRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM approval_records
	WHERE project_id = $1 AND deliverable_id IS NULL
	ORDER BY created_at DESC LIMIT 1`, approvalColumns)
	var record models.ApprovalRecord
	if err := r.db.GetContext(ctx, &record, query, projectID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find proposal gate: %w", err)
	}
	return &record, nil
}

// GetByDeliverableID returns the gate embedded in a deliverable.
func (r *ApprovalRepository) GetByDeliverableID(ctx context.Context, deliverableID string) (*models.ApprovalRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM approval_records WHERE deliverable_id = $1 LIMIT 1`, approvalColumns)
	var record models.ApprovalRecord
	if err := r.db.GetContext(ctx, &record, query, deliverableID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find approval by deliverable: %w", err)
	}
	return &record, nil
}

// DecideAdvisor records the advisor decision. The pending check rides in the
// UPDATE so racing decisions cannot both land; sql.ErrNoRows signals the
// record was no longer awaiting the advisor.
func (r *ApprovalRepository) DecideAdvisor(ctx context.Context, id string, status models.DecisionStatus, feedback *string, decidedAt time.Time) error {
	const query = `UPDATE approval_records
	SET advisor_status = $2, advisor_feedback = $3, advisor_decided_at = $4
	WHERE id = $1 AND advisor_status = $5`
	result, err := r.db.ExecContext(ctx, query, id, status, feedback, decidedAt, models.DecisionPendente)
	if err != nil {
		return fmt.Errorf("decide advisor: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check advisor decision rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DecideCoordinator records the coordinator decision; only legal once the
// advisor approved and while the coordinator is still pending.
func (r *ApprovalRepository) DecideCoordinator(ctx context.Context, id string, status models.DecisionStatus, feedback *string, decidedAt time.Time) error {
	const query = `UPDATE approval_records
	SET coordinator_status = $2, coordinator_feedback = $3, coordinator_decided_at = $4
	WHERE id = $1 AND advisor_status = $5 AND coordinator_status = $6`
	result, err := r.db.ExecContext(ctx, query, id, status, feedback, decidedAt, models.DecisionAprovado, models.DecisionPendente)
	if err != nil {
		return fmt.Errorf("decide coordinator: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check coordinator decision rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
