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

const deliverableColumns = `id, project_id, kind, file_ref, description, submitted_at`

// DeliverableRepository persists reviewable artifact submissions.
type DeliverableRepository struct {
	db *sqlx.DB
}

// NewDeliverableRepository constructs the repository.
func NewDeliverableRepository(db *sqlx.DB) *DeliverableRepository {
	return &DeliverableRepository{db: db}
}

// CreateWithApproval inserts a deliverable and its approval gate in one
// transaction. The insert is guarded against an existing open submission of
// the same kind (advisor not rejeitado, coordinator still pendente);
// sql.ErrNoRows signals the duplicate open submission.
func (r *DeliverableRepository) CreateWithApproval(ctx context.Context, deliverable *models.Deliverable, approval *models.ApprovalRecord) error {
	if deliverable.ID == "" {
		deliverable.ID = uuid.NewString()
	}
	if deliverable.SubmittedAt.IsZero() {
		deliverable.SubmittedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create deliverable: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insert = `INSERT INTO deliverables (id, project_id, kind, file_ref, description, submitted_at)
	SELECT $1, $2, $3, $4, $5, $6
	WHERE NOT EXISTS (
		SELECT 1 FROM deliverables d
		JOIN approval_records a ON a.deliverable_id = d.id
		WHERE d.project_id = $2 AND d.kind = $3
		  AND a.advisor_status <> $7 AND a.coordinator_status = $8
	)`
	result, err := tx.ExecContext(ctx, insert,
		deliverable.ID, deliverable.ProjectID, deliverable.Kind, deliverable.FileRef,
		deliverable.Description, deliverable.SubmittedAt,
		models.DecisionRejeitado, models.DecisionPendente,
	)
	if err != nil {
		return fmt.Errorf("create deliverable: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deliverable insert rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	approval.ProjectID = deliverable.ProjectID
	approval.DeliverableID = &deliverable.ID
	if err := insertApproval(ctx, tx, approval); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create deliverable: %w", err)
	}
	return nil
}

// GetByID fetches a deliverable by identifier.
func (r *DeliverableRepository) GetByID(ctx context.Context, id string) (*models.Deliverable, error) {
	query := fmt.Sprintf(`SELECT %s FROM deliverables WHERE id = $1 LIMIT 1`, deliverableColumns)
	var deliverable models.Deliverable
	if err := r.db.GetContext(ctx, &deliverable, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find deliverable by id: %w", err)
	}
	return &deliverable, nil
}

// ListByProject returns the submission history for a project, newest first.
func (r *DeliverableRepository) ListByProject(ctx context.Context, projectID string) ([]models.Deliverable, error) {
	query := fmt.Sprintf(`SELECT %s FROM deliverables WHERE project_id = $1 ORDER BY submitted_at DESC`, deliverableColumns)
	var deliverables []models.Deliverable
	if err := r.db.SelectContext(ctx, &deliverables, query, projectID); err != nil {
		return nil, fmt.Errorf("list deliverables: %w", err)
	}
	return deliverables, nil
}

// LatestByKind returns the most recent submission of a kind for a project.
func (r *DeliverableRepository) LatestByKind(ctx context.Context, projectID string, kind models.DeliverableKind) (*models.Deliverable, error) {
	query := fmt.Sprintf(`SELECT %s FROM deliverables WHERE project_id = $1 AND kind = $2 ORDER BY submitted_at DESC LIMIT 1`, deliverableColumns)
	var deliverable models.Deliverable
	if err := r.db.GetContext(ctx, &deliverable, query, projectID, kind); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find latest deliverable: %w", err)
	}
	return &deliverable, nil
}
