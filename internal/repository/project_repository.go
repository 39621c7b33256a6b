package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/icdev-br/pic-portal-api/internal/models"
)

const projectColumns = `id, student_id, advisor_id, title, area, summary, objectives, methodology,
       proposal_file_ref, stage, status, proposal_status, enrollment_year, campus, created_at, updated_at`

// ProjectRepository persists the project aggregate.
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository constructs the repository.
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// CreateWithApproval inserts a project and its initial proposal gate in one
// transaction. The insert is guarded so a student cannot hold two
// non-terminal projects for the same cycle; sql.ErrNoRows signals the
// duplicate.
func (r *ProjectRepository) CreateWithApproval(ctx context.Context, project *models.Project, approval *models.ApprovalRecord) error {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}
	project.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create project: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insert = `INSERT INTO projects
	(id, student_id, advisor_id, title, area, summary, objectives, methodology, proposal_file_ref, stage, status, proposal_status, enrollment_year, campus, created_at, updated_at)
	SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
	WHERE NOT EXISTS (
		SELECT 1 FROM projects
		WHERE student_id = $2 AND enrollment_year = $13 AND status <> $17 AND stage <> $18
	)`
	result, err := tx.ExecContext(ctx, insert,
		project.ID, project.StudentID, project.AdvisorID, project.Title, project.Area,
		project.Summary, project.Objectives, project.Methodology, project.ProposalFileRef,
		project.Stage, project.Status, project.ProposalStatus, project.EnrollmentYear,
		project.Campus, project.CreatedAt, project.UpdatedAt,
		models.ProjectStatusEncerrado, models.StageConcluido,
	)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check project insert rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	approval.ProjectID = project.ID
	if err := insertApproval(ctx, tx, approval); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create project: %w", err)
	}
	return nil
}

// GetByID fetches a project by identifier.
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	query := fmt.Sprintf(`SELECT %s FROM projects WHERE id = $1 LIMIT 1`, projectColumns)
	var project models.Project
	if err := r.db.GetContext(ctx, &project, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find project by id: %w", err)
	}
	return &project, nil
}

// List returns projects matching the filter with total count.
func (r *ProjectRepository) List(ctx context.Context, filter models.ProjectFilter) ([]models.Project, int, error) {
	baseQuery := `FROM projects WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.AdvisorID != "" {
		conditions = append(conditions, fmt.Sprintf("advisor_id = $%d", len(args)+1))
		args = append(args, filter.AdvisorID)
	}
	if filter.Stage != "" {
		conditions = append(conditions, fmt.Sprintf("stage = $%d", len(args)+1))
		args = append(args, filter.Stage)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Year > 0 {
		conditions = append(conditions, fmt.Sprintf("enrollment_year = $%d", len(args)+1))
		args = append(args, filter.Year)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"created_at":      true,
		"updated_at":      true,
		"title":           true,
		"enrollment_year": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}

	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", projectColumns, baseQuery, sortBy, sortOrder, pageSize, offset)

	var projects []models.Project
	if err := r.db.SelectContext(ctx, &projects, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list projects: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count projects: %w", err)
	}

	return projects, total, nil
}

// AdvanceStage moves a project from an expected stage to the next one. The
// stage check rides in the UPDATE itself so two racing writers cannot both
// advance; sql.ErrNoRows signals the project was not at the expected stage.
func (r *ProjectRepository) AdvanceStage(ctx context.Context, id string, from, to models.Stage) error {
	const query = `UPDATE projects SET stage = $3, updated_at = $4 WHERE id = $1 AND stage = $2`
	result, err := r.db.ExecContext(ctx, query, id, from, to, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("advance project stage: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check stage advance rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetStage force-sets a stage (administrative override). Idempotent.
func (r *ProjectRepository) SetStage(ctx context.Context, id string, stage models.Stage) error {
	const query = `UPDATE projects SET stage = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, stage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set project stage: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check stage set rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetProposalStatus records the derived proposal gate outcome and the
// matching administrative sub-status.
func (r *ProjectRepository) SetProposalStatus(ctx context.Context, id string, decision models.DecisionStatus, status models.ProjectStatus) error {
	const query = `UPDATE projects SET proposal_status = $2, status = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, decision, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("set proposal status: %w", err)
	}
	return nil
}

// SetStatus records the administrative sub-status only.
func (r *ProjectRepository) SetStatus(ctx context.Context, id string, status models.ProjectStatus) error {
	const query = `UPDATE projects SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("set project status: %w", err)
	}
	return nil
}

// UpdateProposalFields rewrites the mutable proposal fields together with a
// fresh approval gate in one transaction (resubmission path). The update is
// guarded on the rejected sub-status; sql.ErrNoRows signals a state race.
func (r *ProjectRepository) UpdateProposalFields(ctx context.Context, project *models.Project, approval *models.ApprovalRecord) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin resubmit proposal: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const update = `UPDATE projects
	SET advisor_id = $2, title = $3, area = $4, summary = $5, objectives = $6, methodology = $7,
	    proposal_file_ref = $8, status = $9, proposal_status = $10, updated_at = $11
	WHERE id = $1 AND status = $12`
	result, err := tx.ExecContext(ctx, update,
		project.ID, project.AdvisorID, project.Title, project.Area, project.Summary,
		project.Objectives, project.Methodology, project.ProposalFileRef,
		models.ProjectStatusAtivo, models.DecisionPendente, time.Now().UTC(),
		models.ProjectStatusPropostaRejeitada,
	)
	if err != nil {
		return fmt.Errorf("resubmit proposal: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check resubmit rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	approval.ProjectID = project.ID
	if err := insertApproval(ctx, tx, approval); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit resubmit proposal: %w", err)
	}
	return nil
}

// Reset releases a project whose proposal defense was rejected, clearing the
// enrollment so the student may reapply in a future cycle. sql.ErrNoRows
// signals the project was not eligible.
func (r *ProjectRepository) Reset(ctx context.Context, id string) error {
	const query = `UPDATE projects SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, id, models.ProjectStatusEncerrado, time.Now().UTC(), models.ProjectStatusApresentacaoRejeitada)
	if err != nil {
		return fmt.Errorf("reset project: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check reset rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
