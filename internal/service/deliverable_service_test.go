package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/icdev-br/pic-portal-api/internal/dto"
	"github.com/icdev-br/pic-portal-api/internal/models"
	appErrors "github.com/icdev-br/pic-portal-api/pkg/errors"
)

func newDeliverableFixture() (*DeliverableService, *projectStoreStub, *deliverableStoreStub, *gateStoreStub) {
	gates := newGateStoreStub()
	projects := newProjectStoreStub(gates)
	deliverables := newDeliverableStoreStub(gates)
	svc := NewDeliverableService(deliverables, gates, projects, NewApprovalService(gates, nil), &auditRecorderStub{}, nil, nil, nil)
	return svc, projects, deliverables, gates
}

func activeProject(projects *projectStoreStub, stage models.Stage) *models.Project {
	advisorID := "advisor-1"
	return projects.add(&models.Project{
		StudentID:      "student-1",
		AdvisorID:      &advisorID,
		Title:          "Sensores",
		Stage:          stage,
		Status:         models.ProjectStatusAtivo,
		EnrollmentYear: 2026,
	})
}

func TestDeliverableSubmitWrongStage(t *testing.T) {
	svc, projects, _, _ := newDeliverableFixture()
	project := activeProject(projects, models.StageRelatorioMensal3)

	_, err := svc.Submit(context.Background(), project.ID, "student-1", dto.SubmitDeliverableRequest{
		Kind:    models.DeliverableRelatorioParcial,
		FileRef: "uploads/parcial.pdf",
	})
	requireAppError(t, err, appErrors.ErrPreconditionFailed)
}

func TestDeliverableSubmitOneOpenPerKind(t *testing.T) {
	svc, projects, _, _ := newDeliverableFixture()
	project := activeProject(projects, models.StageRelatorioParcial)

	req := dto.SubmitDeliverableRequest{Kind: models.DeliverableRelatorioParcial, FileRef: "uploads/parcial.pdf"}
	detail, err := svc.Submit(context.Background(), project.ID, "student-1", req)
	require.NoError(t, err)
	require.True(t, detail.Approval.Open())

	_, err = svc.Submit(context.Background(), project.ID, "student-1", req)
	requireAppError(t, err, appErrors.ErrConflict)
}

func TestDeliverableResubmitAfterRejection(t *testing.T) {
	svc, projects, _, _ := newDeliverableFixture()
	project := activeProject(projects, models.StageRelatorioParcial)

	req := dto.SubmitDeliverableRequest{Kind: models.DeliverableRelatorioParcial, FileRef: "uploads/parcial-v1.pdf"}
	detail, err := svc.Submit(context.Background(), project.ID, "student-1", req)
	require.NoError(t, err)

	_, err = svc.Review(context.Background(), detail.ID, advisorClaims("advisor-1"), reject("missing results section"))
	require.NoError(t, err)

	// The rejected submission stays on record; a new one may open.
	req.FileRef = "uploads/parcial-v2.pdf"
	second, err := svc.Submit(context.Background(), project.ID, "student-1", req)
	require.NoError(t, err)
	require.NotEqual(t, detail.ID, second.ID)

	history, err := svc.List(context.Background(), project.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
}

func TestDeliverablePartialReportDualApprovalAdvances(t *testing.T) {
	svc, projects, _, _ := newDeliverableFixture()
	project := activeProject(projects, models.StageRelatorioParcial)

	detail, err := svc.Submit(context.Background(), project.ID, "student-1", dto.SubmitDeliverableRequest{
		Kind:    models.DeliverableRelatorioParcial,
		FileRef: "uploads/parcial.pdf",
	})
	require.NoError(t, err)

	_, err = svc.Review(context.Background(), detail.ID, advisorClaims("advisor-1"), approve())
	require.NoError(t, err)

	stored, _ := projects.GetByID(context.Background(), project.ID)
	require.Equal(t, models.StageRelatorioParcial, stored.Stage)

	reviewed, err := svc.Review(context.Background(), detail.ID, coordinatorClaims(), approve())
	require.NoError(t, err)
	require.True(t, reviewed.Approval.Accepted())

	stored, _ = projects.GetByID(context.Background(), project.ID)
	require.Equal(t, models.StageApresentacaoAmostra, stored.Stage)
}

func TestDeliverableShowcaseApprovalDoesNotAdvance(t *testing.T) {
	svc, projects, _, _ := newDeliverableFixture()
	project := activeProject(projects, models.StageApresentacaoAmostra)

	detail, err := svc.Submit(context.Background(), project.ID, "student-1", dto.SubmitDeliverableRequest{
		Kind:    models.DeliverableApresentacaoAmostra,
		FileRef: "uploads/amostra.pdf",
	})
	require.NoError(t, err)

	_, err = svc.Review(context.Background(), detail.ID, advisorClaims("advisor-1"), approve())
	require.NoError(t, err)
	_, err = svc.Review(context.Background(), detail.ID, coordinatorClaims(), approve())
	require.NoError(t, err)

	// The showcase presentation evaluation, not the material approval,
	// moves the project onward.
	stored, _ := projects.GetByID(context.Background(), project.ID)
	require.Equal(t, models.StageApresentacaoAmostra, stored.Stage)
}

func TestDeliverableFinalArticleConcludesProject(t *testing.T) {
	svc, projects, _, _ := newDeliverableFixture()
	project := activeProject(projects, models.StageArtigoFinal)

	detail, err := svc.Submit(context.Background(), project.ID, "student-1", dto.SubmitDeliverableRequest{
		Kind:    models.DeliverableArtigoFinal,
		FileRef: "uploads/artigo.pdf",
	})
	require.NoError(t, err)

	_, err = svc.Review(context.Background(), detail.ID, advisorClaims("advisor-1"), approve())
	require.NoError(t, err)
	_, err = svc.Review(context.Background(), detail.ID, coordinatorClaims(), approve())
	require.NoError(t, err)

	stored, _ := projects.GetByID(context.Background(), project.ID)
	require.Equal(t, models.StageConcluido, stored.Stage)
}

func TestDeliverableReviewOrderingInvariant(t *testing.T) {
	svc, projects, _, _ := newDeliverableFixture()
	project := activeProject(projects, models.StageArtigoFinal)

	detail, err := svc.Submit(context.Background(), project.ID, "student-1", dto.SubmitDeliverableRequest{
		Kind:    models.DeliverableArtigoFinal,
		FileRef: "uploads/artigo.pdf",
	})
	require.NoError(t, err)

	_, err = svc.Review(context.Background(), detail.ID, coordinatorClaims(), approve())
	requireAppError(t, err, appErrors.ErrConflict)

	_, err = svc.Review(context.Background(), detail.ID, advisorClaims("advisor-1"), reject("citations incomplete"))
	require.NoError(t, err)

	_, err = svc.Review(context.Background(), detail.ID, coordinatorClaims(), approve())
	requireAppError(t, err, appErrors.ErrConflict)

	stored, _ := projects.GetByID(context.Background(), project.ID)
	require.Equal(t, models.StageArtigoFinal, stored.Stage)
}

func TestDeliverableSubmitOwnershipAndStatus(t *testing.T) {
	svc, projects, _, _ := newDeliverableFixture()
	project := activeProject(projects, models.StageRelatorioParcial)

	_, err := svc.Submit(context.Background(), project.ID, "student-2", dto.SubmitDeliverableRequest{
		Kind:    models.DeliverableRelatorioParcial,
		FileRef: "uploads/parcial.pdf",
	})
	requireAppError(t, err, appErrors.ErrForbidden)

	closed := projects.add(&models.Project{
		StudentID: "student-3",
		Stage:     models.StageRelatorioParcial,
		Status:    models.ProjectStatusEncerrado,
	})
	_, err = svc.Submit(context.Background(), closed.ID, "student-3", dto.SubmitDeliverableRequest{
		Kind:    models.DeliverableRelatorioParcial,
		FileRef: "uploads/parcial.pdf",
	})
	requireAppError(t, err, appErrors.ErrPreconditionFailed)
}
