package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/icdev-br/pic-portal-api/internal/dto"
	"github.com/icdev-br/pic-portal-api/internal/models"
	appErrors "github.com/icdev-br/pic-portal-api/pkg/errors"
)

type certificateFixture struct {
	svc          *CertificateService
	projects     *projectStoreStub
	deliverables *deliverableStoreStub
	gates        *gateStoreStub
	certificates *certificateStoreStub
	renderer     *rendererStub
	storage      *storageStub
}

func newCertificateFixture() *certificateFixture {
	gates := newGateStoreStub()
	projects := newProjectStoreStub(gates)
	deliverables := newDeliverableStoreStub(gates)
	certificates := newCertificateStoreStub()
	renderer := &rendererStub{}
	storage := newStorageStub()
	users := newUserStoreStub(
		&models.User{ID: "student-1", FullName: "Ana Souza"},
		&models.User{ID: "advisor-1", FullName: "Prof. Lima"},
	)
	svc := NewCertificateService(certificates, projects, deliverables, gates, users, renderer, storage, &auditRecorderStub{}, nil, nil, CertificateConfig{
		ProgramName: "Programa de Iniciacao Cientifica",
		Institution: "Instituto Central",
	})
	return &certificateFixture{
		svc:          svc,
		projects:     projects,
		deliverables: deliverables,
		gates:        gates,
		certificates: certificates,
		renderer:     renderer,
		storage:      storage,
	}
}

func (f *certificateFixture) concludedProject(t *testing.T) *models.Project {
	t.Helper()
	project := activeProject(f.projects, models.StageConcluido)
	deliverableID := "artigo-1"
	f.deliverables.deliverables[deliverableID] = &models.Deliverable{
		ID:        deliverableID,
		ProjectID: project.ID,
		Kind:      models.DeliverableArtigoFinal,
		FileRef:   "uploads/artigo.pdf",
	}
	f.gates.add(&models.ApprovalRecord{
		ProjectID:         project.ID,
		DeliverableID:     &deliverableID,
		AdvisorStatus:     models.DecisionAprovado,
		CoordinatorStatus: models.DecisionAprovado,
	})
	return project
}

func TestCertificateIssueRequiresConcludedStage(t *testing.T) {
	f := newCertificateFixture()
	project := activeProject(f.projects, models.StageArtigoFinal)

	_, err := f.svc.Issue(context.Background(), project.ID, "coord-1", dto.IssueCertificateRequest{})
	requireAppError(t, err, appErrors.ErrPreconditionFailed)
}

func TestCertificateIssueRequiresApprovedArticle(t *testing.T) {
	f := newCertificateFixture()
	project := activeProject(f.projects, models.StageConcluido)

	// Concluded stage without a final article submission.
	_, err := f.svc.Issue(context.Background(), project.ID, "coord-1", dto.IssueCertificateRequest{})
	requireAppError(t, err, appErrors.ErrPreconditionFailed)

	// Article present but advisor-rejected.
	deliverableID := "artigo-1"
	f.deliverables.deliverables[deliverableID] = &models.Deliverable{
		ID:        deliverableID,
		ProjectID: project.ID,
		Kind:      models.DeliverableArtigoFinal,
	}
	f.gates.add(&models.ApprovalRecord{
		ProjectID:     project.ID,
		DeliverableID: &deliverableID,
		AdvisorStatus: models.DecisionRejeitado,
	})
	_, err = f.svc.Issue(context.Background(), project.ID, "coord-1", dto.IssueCertificateRequest{})
	requireAppError(t, err, appErrors.ErrPreconditionFailed)
}

func TestCertificateIssueGeneratesPDFWhenNoFileRef(t *testing.T) {
	f := newCertificateFixture()
	project := f.concludedProject(t)

	certificate, err := f.svc.Issue(context.Background(), project.ID, "coord-1", dto.IssueCertificateRequest{})
	require.NoError(t, err)
	require.Equal(t, 1, f.renderer.calls)
	require.Equal(t, "Ana Souza", f.renderer.last.StudentName)
	require.Equal(t, "Prof. Lima", f.renderer.last.AdvisorName)
	require.Contains(t, certificate.FileRef, project.ID)
	require.NotEmpty(t, f.storage.saved[certificate.FileRef])
}

func TestCertificateIssueIsIdempotent(t *testing.T) {
	f := newCertificateFixture()
	project := f.concludedProject(t)

	first, err := f.svc.Issue(context.Background(), project.ID, "coord-1", dto.IssueCertificateRequest{FileRef: "uploads/cert-v1.pdf"})
	require.NoError(t, err)

	second, err := f.svc.Issue(context.Background(), project.ID, "coord-1", dto.IssueCertificateRequest{FileRef: "uploads/cert-v2.pdf"})
	require.NoError(t, err)

	// One row per project: the id survives, the file reference is replaced.
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "uploads/cert-v2.pdf", second.FileRef)
	require.Len(t, f.certificates.byProject, 1)

	stored, err := f.svc.Get(context.Background(), project.ID)
	require.NoError(t, err)
	require.Equal(t, "uploads/cert-v2.pdf", stored.FileRef)
}

func TestCertificateGetNotFound(t *testing.T) {
	f := newCertificateFixture()
	_, err := f.svc.Get(context.Background(), "missing")
	requireAppError(t, err, appErrors.ErrNotFound)
}
