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

const presentationColumns = `id, project_id, event, date, start_time, campus, room,
       evaluation_status, evaluation_feedback, evaluated_at, created_at, updated_at`

// PresentationRepository persists presentation schedules and evaluations.
type PresentationRepository struct {
	db *sqlx.DB
}

// NewPresentationRepository constructs the repository.
func NewPresentationRepository(db *sqlx.DB) *PresentationRepository {
	return &PresentationRepository{db: db}
}

// Upsert stores the schedule for a (project, event) pair. Rescheduling
// overwrites the prior slot and resets the evaluation to pendente.
func (r *PresentationRepository) Upsert(ctx context.Context, schedule *models.PresentationSchedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now
	if schedule.EvaluationStatus == "" {
		schedule.EvaluationStatus = models.DecisionPendente
	}

	const query = `INSERT INTO presentation_schedules
	(id, project_id, event, date, start_time, campus, room, evaluation_status, evaluation_feedback, evaluated_at, created_at, updated_at)
	VALUES (:id, :project_id, :event, :date, :start_time, :campus, :room, :evaluation_status, NULL, NULL, :created_at, :updated_at)
	ON CONFLICT (project_id, event) DO UPDATE SET
		date = EXCLUDED.date,
		start_time = EXCLUDED.start_time,
		campus = EXCLUDED.campus,
		room = EXCLUDED.room,
		evaluation_status = EXCLUDED.evaluation_status,
		evaluation_feedback = NULL,
		evaluated_at = NULL,
		updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("upsert presentation schedule: %w", err)
	}
	return nil
}

// Get fetches the schedule for a (project, event) pair.
func (r *PresentationRepository) Get(ctx context.Context, projectID string, event models.PresentationEvent) (*models.PresentationSchedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM presentation_schedules WHERE project_id = $1 AND event = $2 LIMIT 1`, presentationColumns)
	var schedule models.PresentationSchedule
	if err := r.db.GetContext(ctx, &schedule, query, projectID, event); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find presentation schedule: %w", err)
	}
	return &schedule, nil
}

// Evaluate records the coordinator outcome. The pendente check rides in the
// UPDATE so a decided evaluation cannot be overwritten; sql.ErrNoRows
// signals the schedule was already decided or missing.
func (r *PresentationRepository) Evaluate(ctx context.Context, projectID string, event models.PresentationEvent, status models.DecisionStatus, feedback *string, decidedAt time.Time) error {
	const query = `UPDATE presentation_schedules
	SET evaluation_status = $3, evaluation_feedback = $4, evaluated_at = $5, updated_at = $5
	WHERE project_id = $1 AND event = $2 AND evaluation_status = $6`
	result, err := r.db.ExecContext(ctx, query, projectID, event, status, feedback, decidedAt, models.DecisionPendente)
	if err != nil {
		return fmt.Errorf("evaluate presentation: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check evaluation rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
