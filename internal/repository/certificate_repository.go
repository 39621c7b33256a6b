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

// CertificateRepository persists issued certificates.
type CertificateRepository struct {
	db *sqlx.DB
}

// NewCertificateRepository constructs the repository.
func NewCertificateRepository(db *sqlx.DB) *CertificateRepository {
	return &CertificateRepository{db: db}
}

// Upsert stores the certificate for a project. A second issue replaces the
// file reference on the existing row instead of creating a duplicate; the
// returned record always carries the surviving row id.
func (r *CertificateRepository) Upsert(ctx context.Context, certificate *models.Certificate) error {
	if certificate.ID == "" {
		certificate.ID = uuid.NewString()
	}
	if certificate.IssuedAt.IsZero() {
		certificate.IssuedAt = time.Now().UTC()
	}
	const query = `INSERT INTO certificates (id, project_id, file_ref, issued_by, issued_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (project_id) DO UPDATE SET
		file_ref = EXCLUDED.file_ref,
		issued_by = EXCLUDED.issued_by,
		issued_at = EXCLUDED.issued_at
	RETURNING id`
	var id string
	if err := r.db.GetContext(ctx, &id, query, certificate.ID, certificate.ProjectID, certificate.FileRef, certificate.IssuedBy, certificate.IssuedAt); err != nil {
		return fmt.Errorf("upsert certificate: %w", err)
	}
	certificate.ID = id
	return nil
}

// GetByProject fetches the certificate for a project.
func (r *CertificateRepository) GetByProject(ctx context.Context, projectID string) (*models.Certificate, error) {
	const query = `SELECT id, project_id, file_ref, issued_by, issued_at FROM certificates WHERE project_id = $1 LIMIT 1`
	var certificate models.Certificate
	if err := r.db.GetContext(ctx, &certificate, query, projectID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find certificate: %w", err)
	}
	return &certificate, nil
}
