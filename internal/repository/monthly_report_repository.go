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

const reportColumns = `id, project_id, advisor_id, month, description, file_ref, created_at`

// MonthlyReportRepository persists the monthly-report ledger.
type MonthlyReportRepository struct {
	db *sqlx.DB
}

// NewMonthlyReportRepository constructs the repository.
func NewMonthlyReportRepository(db *sqlx.DB) *MonthlyReportRepository {
	return &MonthlyReportRepository{db: db}
}

// Create appends a report to the ledger.
func (r *MonthlyReportRepository) Create(ctx context.Context, report *models.MonthlyReport) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO monthly_reports (id, project_id, advisor_id, month, description, file_ref, created_at)
	VALUES (:id, :project_id, :advisor_id, :month, :description, :file_ref, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, report); err != nil {
		return fmt.Errorf("create monthly report: %w", err)
	}
	return nil
}

// GetByID fetches a report by identifier.
func (r *MonthlyReportRepository) GetByID(ctx context.Context, id string) (*models.MonthlyReport, error) {
	query := fmt.Sprintf(`SELECT %s FROM monthly_reports WHERE id = $1 LIMIT 1`, reportColumns)
	var report models.MonthlyReport
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find monthly report: %w", err)
	}
	return &report, nil
}

// ListByProject returns all reports for a project in month order.
func (r *MonthlyReportRepository) ListByProject(ctx context.Context, projectID string) ([]models.MonthlyReport, error) {
	query := fmt.Sprintf(`SELECT %s FROM monthly_reports WHERE project_id = $1 ORDER BY month ASC, created_at ASC`, reportColumns)
	var reports []models.MonthlyReport
	if err := r.db.SelectContext(ctx, &reports, query, projectID); err != nil {
		return nil, fmt.Errorf("list monthly reports: %w", err)
	}
	return reports, nil
}

// AddMessage appends a message to a report thread.
func (r *MonthlyReportRepository) AddMessage(ctx context.Context, message *models.ReportMessage) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO report_messages (id, report_id, author_role, text, created_at)
	VALUES (:id, :report_id, :author_role, :text, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, message); err != nil {
		return fmt.Errorf("create report message: %w", err)
	}
	return nil
}

// ListMessages returns the thread for a report in chronological order.
func (r *MonthlyReportRepository) ListMessages(ctx context.Context, reportID string) ([]models.ReportMessage, error) {
	const query = `SELECT id, report_id, author_role, text, created_at FROM report_messages WHERE report_id = $1 ORDER BY created_at ASC`
	var messages []models.ReportMessage
	if err := r.db.SelectContext(ctx, &messages, query, reportID); err != nil {
		return nil, fmt.Errorf("list report messages: %w", err)
	}
	return messages, nil
}
