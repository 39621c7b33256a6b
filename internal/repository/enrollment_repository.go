package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/icdev-br/pic-portal-api/internal/models"
)

// EnrollmentRepository persists enrollment window state per cycle year.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// GetWindow fetches the window row for a cycle year.
func (r *EnrollmentRepository) GetWindow(ctx context.Context, year int) (*models.EnrollmentWindow, error) {
	const query = `SELECT year, open, first_report_month, updated_at FROM enrollment_windows WHERE year = $1 LIMIT 1`
	var window models.EnrollmentWindow
	if err := r.db.GetContext(ctx, &window, query, year); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment window: %w", err)
	}
	return &window, nil
}

// UpsertWindow stores the window state for a cycle year.
func (r *EnrollmentRepository) UpsertWindow(ctx context.Context, window *models.EnrollmentWindow) error {
	window.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO enrollment_windows (year, open, first_report_month, updated_at)
	VALUES (:year, :open, :first_report_month, :updated_at)
	ON CONFLICT (year) DO UPDATE SET
		open = EXCLUDED.open,
		first_report_month = EXCLUDED.first_report_month,
		updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, window); err != nil {
		return fmt.Errorf("upsert enrollment window: %w", err)
	}
	return nil
}
