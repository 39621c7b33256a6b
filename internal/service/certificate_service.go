package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/icdev-br/pic-portal-api/internal/dto"
	"github.com/icdev-br/pic-portal-api/internal/models"
	appErrors "github.com/icdev-br/pic-portal-api/pkg/errors"
	"github.com/icdev-br/pic-portal-api/pkg/export"
)

type certificateStore interface {
	Upsert(ctx context.Context, certificate *models.Certificate) error
	GetByProject(ctx context.Context, projectID string) (*models.Certificate, error)
}

type certificateProjectStore interface {
	GetByID(ctx context.Context, id string) (*models.Project, error)
}

type certificateDeliverableStore interface {
	LatestByKind(ctx context.Context, projectID string, kind models.DeliverableKind) (*models.Deliverable, error)
}

type certificateGateStore interface {
	GetByDeliverableID(ctx context.Context, deliverableID string) (*models.ApprovalRecord, error)
}

type certificateUserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type certificateRenderer interface {
	Render(data export.CertificateData) ([]byte, error)
}

type certificateStorage interface {
	Save(filename string, data []byte) (string, error)
}

// CertificateConfig carries the institutional text printed on generated
// certificates.
type CertificateConfig struct {
	ProgramName string
	Institution string
}

// CertificateService issues the completion certificate of a concluded
// project. Issuing is idempotent: at most one certificate row exists per
// project and a re-issue replaces the file reference.
type CertificateService struct {
	certificates certificateStore
	projects     certificateProjectStore
	deliverables certificateDeliverableStore
	gates        certificateGateStore
	users        certificateUserStore
	renderer     certificateRenderer
	storage      certificateStorage
	audit        auditRecorder
	metrics      *MetricsService
	logger       *zap.Logger
	config       CertificateConfig
}

// NewCertificateService constructs the service.
func NewCertificateService(certificates certificateStore, projects certificateProjectStore, deliverables certificateDeliverableStore, gates certificateGateStore, users certificateUserStore, renderer certificateRenderer, storage certificateStorage, audit auditRecorder, metrics *MetricsService, logger *zap.Logger, config CertificateConfig) *CertificateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CertificateService{
		certificates: certificates,
		projects:     projects,
		deliverables: deliverables,
		gates:        gates,
		users:        users,
		renderer:     renderer,
		storage:      storage,
		audit:        audit,
		metrics:      metrics,
		logger:       logger,
		config:       config,
	}
}

// Issue creates or refreshes the certificate of a concluded project. The
// project must be at the concluded stage with a dually approved final
// article. When no file reference is supplied a standard PDF is generated.
func (s *CertificateService) Issue(ctx context.Context, projectID, issuerID string, req dto.IssueCertificateRequest) (*models.Certificate, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project")
	}
	if project.Stage != models.StageConcluido {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "project is not concluded")
	}

	if err := s.verifyFinalArticle(ctx, projectID); err != nil {
		return nil, err
	}

	fileRef := req.FileRef
	if fileRef == "" {
		fileRef, err = s.renderCertificate(ctx, project)
		if err != nil {
			return nil, err
		}
	}

	certificate := &models.Certificate{
		ProjectID: projectID,
		FileRef:   fileRef,
		IssuedBy:  issuerID,
	}
	if err := s.certificates.Upsert(ctx, certificate); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store certificate")
	}
	s.metrics.IncCertificateIssued()

	if s.audit != nil {
		entry := &models.AuditLog{
			UserID:     &issuerID,
			Action:     models.AuditActionCertificateIssue,
			Resource:   "certificate",
			ResourceID: &certificate.ID,
			CreatedAt:  time.Now().UTC(),
		}
		entry.NewValues, _ = json.Marshal(certificate)
		s.audit.Record(entry)
	}

	s.logger.Info("certificate issued",
		zap.String("project_id", projectID),
		zap.String("certificate_id", certificate.ID))
	return certificate, nil
}

// Get returns the certificate of a project.
func (s *CertificateService) Get(ctx context.Context, projectID string) (*models.Certificate, error) {
	certificate, err := s.certificates.GetByProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load certificate")
	}
	return certificate, nil
}

// verifyFinalArticle ensures the latest final article carries a dually
// approved gate. A concluded stage without one means an inconsistent
// override, so issuing is refused.
func (s *CertificateService) verifyFinalArticle(ctx context.Context, projectID string) error {
	deliverable, err := s.deliverables.LatestByKind(ctx, projectID, models.DeliverableArtigoFinal)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "final article was not submitted")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load final article")
	}

	gate, err := s.gates.GetByDeliverableID(ctx, deliverable.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "final article has no review record")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load final article gate")
	}
	if !gate.Accepted() {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "final article is not approved by both reviewers")
	}
	return nil
}

func (s *CertificateService) renderCertificate(ctx context.Context, project *models.Project) (string, error) {
	if s.renderer == nil || s.storage == nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "file_ref is required")
	}

	data := export.CertificateData{
		ProjectTitle: project.Title,
		ProgramName:  s.config.ProgramName,
		Institution:  s.config.Institution,
		Year:         project.EnrollmentYear,
		IssuedAt:     time.Now().UTC(),
	}
	if student, err := s.users.FindByID(ctx, project.StudentID); err == nil {
		data.StudentName = student.FullName
	}
	if project.AdvisorID != nil {
		if advisor, err := s.users.FindByID(ctx, *project.AdvisorID); err == nil {
			data.AdvisorName = advisor.FullName
		}
	}

	pdf, err := s.renderer.Render(data)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render certificate")
	}

	filename := fmt.Sprintf("certificates/%s.pdf", project.ID)
	ref, err := s.storage.Save(filename, pdf)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store certificate file")
	}
	return ref, nil
}
