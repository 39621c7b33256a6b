package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/icdev-br/pic-portal-api/internal/dto"
	"github.com/icdev-br/pic-portal-api/internal/models"
	appErrors "github.com/icdev-br/pic-portal-api/pkg/errors"
)

func newProposalFixture(open bool) (*ProposalService, *projectStoreStub, *gateStoreStub, *auditRecorderStub) {
	gates := newGateStoreStub()
	projects := newProjectStoreStub(gates)
	audit := &auditRecorderStub{}
	window := &windowStub{window: &models.EnrollmentWindow{Year: 2026, Open: open, FirstReportMonth: "2026-04"}}
	svc := NewProposalService(projects, gates, NewApprovalService(gates, nil), window, audit, nil, nil, nil)
	return svc, projects, gates, audit
}

func submitRequest() dto.SubmitProposalRequest {
	return dto.SubmitProposalRequest{
		Title:     "Low-cost water quality sensors",
		Area:      "engenharia",
		AdvisorID: "advisor-1",
		Summary:   "Measure turbidity with off-the-shelf parts",
	}
}

func approve() dto.DecideRequest {
	yes := true
	return dto.DecideRequest{Approve: &yes}
}

func reject(feedback string) dto.DecideRequest {
	no := false
	return dto.DecideRequest{Approve: &no, Feedback: feedback}
}

func advisorClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleAdvisor}
}

func coordinatorClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "coord-1", Role: models.RoleCoordinator}
}

func TestProposalSubmitClosedWindow(t *testing.T) {
	svc, _, _, _ := newProposalFixture(false)

	_, err := svc.Submit(context.Background(), "student-1", submitRequest())
	requireAppError(t, err, appErrors.ErrEnrollmentClosed)
}

func TestProposalSubmitAndDuplicate(t *testing.T) {
	svc, projects, gates, audit := newProposalFixture(true)

	project, err := svc.Submit(context.Background(), "student-1", submitRequest())
	require.NoError(t, err)
	require.Equal(t, models.StageEnvioProposta, project.Stage)
	require.Equal(t, models.ProjectStatusAtivo, project.Status)
	require.Equal(t, 2026, project.EnrollmentYear)
	require.Len(t, audit.entries, 1)

	gate, err := gates.LatestProposalGate(context.Background(), project.ID)
	require.NoError(t, err)
	require.True(t, gate.Open())

	_, err = svc.Submit(context.Background(), "student-1", submitRequest())
	requireAppError(t, err, appErrors.ErrDuplicateEnrollment)

	// A second project for a different student is fine.
	_, err = svc.Submit(context.Background(), "student-2", submitRequest())
	require.NoError(t, err)
	require.Len(t, projects.projects, 2)
}

func TestProposalDualApprovalAdvancesToDefense(t *testing.T) {
	svc, projects, _, _ := newProposalFixture(true)
	project, err := svc.Submit(context.Background(), "student-1", submitRequest())
	require.NoError(t, err)

	gate, err := svc.Decide(context.Background(), project.ID, advisorClaims("advisor-1"), approve())
	require.NoError(t, err)
	require.False(t, gate.Terminal())

	stored, _ := projects.GetByID(context.Background(), project.ID)
	require.Equal(t, models.StageEnvioProposta, stored.Stage)

	gate, err = svc.Decide(context.Background(), project.ID, coordinatorClaims(), approve())
	require.NoError(t, err)
	require.True(t, gate.Accepted())

	stored, _ = projects.GetByID(context.Background(), project.ID)
	require.Equal(t, models.StageApresentacaoProposta, stored.Stage)
	require.Equal(t, models.DecisionAprovado, stored.ProposalStatus)
}

func TestProposalCoordinatorCannotJumpQueue(t *testing.T) {
	svc, _, _, _ := newProposalFixture(true)
	project, err := svc.Submit(context.Background(), "student-1", submitRequest())
	require.NoError(t, err)

	_, err = svc.Decide(context.Background(), project.ID, coordinatorClaims(), approve())
	requireAppError(t, err, appErrors.ErrConflict)
}

func TestProposalWrongAdvisorForbidden(t *testing.T) {
	svc, _, _, _ := newProposalFixture(true)
	project, err := svc.Submit(context.Background(), "student-1", submitRequest())
	require.NoError(t, err)

	_, err = svc.Decide(context.Background(), project.ID, advisorClaims("advisor-2"), approve())
	requireAppError(t, err, appErrors.ErrForbidden)
}

func TestProposalRejectionAndResubmission(t *testing.T) {
	svc, projects, gates, _ := newProposalFixture(true)
	project, err := svc.Submit(context.Background(), "student-1", submitRequest())
	require.NoError(t, err)

	gate, err := svc.Decide(context.Background(), project.ID, advisorClaims("advisor-1"), reject("scope is too broad"))
	require.NoError(t, err)
	require.True(t, gate.Rejected())

	stored, _ := projects.GetByID(context.Background(), project.ID)
	require.Equal(t, models.ProjectStatusPropostaRejeitada, stored.Status)
	require.Equal(t, models.StageEnvioProposta, stored.Stage)

	// No further decision can land on the rejected gate.
	_, err = svc.Decide(context.Background(), project.ID, coordinatorClaims(), approve())
	requireAppError(t, err, appErrors.ErrPreconditionFailed)

	// Resubmission re-opens review with a fresh gate; untouched fields keep
	// their previous values.
	resubmitted, err := svc.Resubmit(context.Background(), project.ID, "student-1", dto.ResubmitProposalRequest{
		Summary: "Narrowed to turbidity only",
	})
	require.NoError(t, err)
	require.Equal(t, models.ProjectStatusAtivo, resubmitted.Status)
	require.Equal(t, "Narrowed to turbidity only", resubmitted.Summary)
	require.Equal(t, "Low-cost water quality sensors", resubmitted.Title)

	fresh, err := gates.LatestProposalGate(context.Background(), project.ID)
	require.NoError(t, err)
	require.NotEqual(t, gate.ID, fresh.ID)
	require.True(t, fresh.Open())
}

func TestProposalResubmitPreconditions(t *testing.T) {
	svc, _, _, _ := newProposalFixture(true)
	project, err := svc.Submit(context.Background(), "student-1", submitRequest())
	require.NoError(t, err)

	_, err = svc.Resubmit(context.Background(), project.ID, "student-2", dto.ResubmitProposalRequest{})
	requireAppError(t, err, appErrors.ErrForbidden)

	_, err = svc.Resubmit(context.Background(), project.ID, "student-1", dto.ResubmitProposalRequest{})
	requireAppError(t, err, appErrors.ErrPreconditionFailed)
}

func TestProposalResetAfterFailedDefense(t *testing.T) {
	svc, projects, gates, _ := newProposalFixture(true)
	project := projects.add(&models.Project{
		StudentID:      "student-1",
		Stage:          models.StageApresentacaoProposta,
		Status:         models.ProjectStatusApresentacaoRejeitada,
		EnrollmentYear: 2026,
	})
	_ = gates

	require.NoError(t, svc.Reset(context.Background(), project.ID, "student-1"))

	stored, _ := projects.GetByID(context.Background(), project.ID)
	require.Equal(t, models.ProjectStatusEncerrado, stored.Status)

	// Reset is a status transition, never a delete: history survives.
	require.Len(t, projects.projects, 1)

	// Already-released projects cannot be reset again.
	err := svc.Reset(context.Background(), project.ID, "student-1")
	requireAppError(t, err, appErrors.ErrPreconditionFailed)
}

func TestProposalResetRequiresOwnership(t *testing.T) {
	svc, projects, _, _ := newProposalFixture(true)
	project := projects.add(&models.Project{
		StudentID: "student-1",
		Status:    models.ProjectStatusApresentacaoRejeitada,
	})

	err := svc.Reset(context.Background(), project.ID, "student-2")
	requireAppError(t, err, appErrors.ErrForbidden)
}

func TestProposalStudentFreedAfterReset(t *testing.T) {
	svc, projects, _, _ := newProposalFixture(true)
	released := projects.add(&models.Project{
		StudentID:      "student-1",
		Status:         models.ProjectStatusApresentacaoRejeitada,
		EnrollmentYear: 2026,
	})

	_, err := svc.Submit(context.Background(), "student-1", submitRequest())
	requireAppError(t, err, appErrors.ErrDuplicateEnrollment)

	require.NoError(t, svc.Reset(context.Background(), released.ID, "student-1"))

	_, err = svc.Submit(context.Background(), "student-1", submitRequest())
	require.NoError(t, err)
}
