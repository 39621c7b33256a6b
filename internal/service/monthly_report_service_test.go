package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/icdev-br/pic-portal-api/internal/dto"
	"github.com/icdev-br/pic-portal-api/internal/models"
	appErrors "github.com/icdev-br/pic-portal-api/pkg/errors"
)

func newReportFixture() (*MonthlyReportService, *projectStoreStub, *reportStoreStub) {
	gates := newGateStoreStub()
	projects := newProjectStoreStub(gates)
	reports := newReportStoreStub()
	window := &windowStub{window: &models.EnrollmentWindow{Year: 2026, Open: true, FirstReportMonth: "2026-04"}}
	svc := NewMonthlyReportService(reports, projects, window, &auditRecorderStub{}, nil, nil)
	return svc, projects, reports
}

func TestMonthlyReportAppendValidation(t *testing.T) {
	svc, projects, _ := newReportFixture()
	project := activeProject(projects, models.StageRelatorioMensal1)

	_, err := svc.Append(context.Background(), project.ID, "advisor-1", dto.AppendReportRequest{
		Month:       "abril",
		Description: "atividades do mes",
	})
	requireAppError(t, err, appErrors.ErrValidation)

	_, err = svc.Append(context.Background(), project.ID, "advisor-2", dto.AppendReportRequest{
		Month:       "2026-04",
		Description: "atividades do mes",
	})
	requireAppError(t, err, appErrors.ErrForbidden)
}

func TestMonthlyReportAppendIsAppendOnly(t *testing.T) {
	svc, projects, reports := newReportFixture()
	project := activeProject(projects, models.StageRelatorioMensal1)

	first, err := svc.Append(context.Background(), project.ID, "advisor-1", dto.AppendReportRequest{
		Month:       "2026-04",
		Description: "calibragem dos sensores",
	})
	require.NoError(t, err)

	// A second report for the same month is allowed.
	second, err := svc.Append(context.Background(), project.ID, "advisor-1", dto.AppendReportRequest{
		Month:       "2026-04",
		Description: "coleta em campo",
	})
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)
	require.Len(t, reports.reports, 2)
}

func TestMonthlyReportMessages(t *testing.T) {
	svc, projects, _ := newReportFixture()
	project := activeProject(projects, models.StageRelatorioMensal2)

	report, err := svc.Append(context.Background(), project.ID, "advisor-1", dto.AppendReportRequest{
		Month:       "2026-05",
		Description: "analise preliminar",
	})
	require.NoError(t, err)

	message, err := svc.AddMessage(context.Background(), report.ID, coordinatorClaims(), dto.AddMessageRequest{Text: "detalhe os resultados"})
	require.NoError(t, err)
	require.Equal(t, models.MessageRoleCoordenador, message.AuthorRole)

	message, err = svc.AddMessage(context.Background(), report.ID, advisorClaims("advisor-1"), dto.AddMessageRequest{Text: "resultados anexados"})
	require.NoError(t, err)
	require.Equal(t, models.MessageRoleOrientador, message.AuthorRole)

	// Students have no voice on the thread.
	_, err = svc.AddMessage(context.Background(), report.ID, &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent}, dto.AddMessageRequest{Text: "oi"})
	requireAppError(t, err, appErrors.ErrForbidden)

	// Nor does another advisor.
	_, err = svc.AddMessage(context.Background(), report.ID, advisorClaims("advisor-2"), dto.AddMessageRequest{Text: "oi"})
	requireAppError(t, err, appErrors.ErrForbidden)
}

func TestMonthlyReportLedgerLateness(t *testing.T) {
	svc, projects, _ := newReportFixture()
	// Project already moved past the third monthly stage.
	project := activeProject(projects, models.StageRelatorioMensal4)

	_, err := svc.Append(context.Background(), project.ID, "advisor-1", dto.AppendReportRequest{
		Month:       "2026-04",
		Description: "mes 1",
	})
	require.NoError(t, err)
	_, err = svc.Append(context.Background(), project.ID, "advisor-1", dto.AppendReportRequest{
		Month:       "2026-06",
		Description: "mes 3",
	})
	require.NoError(t, err)

	ledger, err := svc.Ledger(context.Background(), project.ID)
	require.NoError(t, err)
	require.Len(t, ledger.Reports, 2)
	require.Len(t, ledger.Slots, models.MonthlySlotCount)

	// Slot 1 (2026-04) reported, slot 2 (2026-05) skipped and passed: late.
	require.True(t, ledger.Slots[0].Reported)
	require.False(t, ledger.Slots[0].Late)
	require.False(t, ledger.Slots[1].Reported)
	require.True(t, ledger.Slots[1].Late)
	require.Equal(t, "2026-05", ledger.Slots[1].Month)
	// Slot 3 reported, slot 4 is the current stage: not yet late.
	require.True(t, ledger.Slots[2].Reported)
	require.False(t, ledger.Slots[3].Late)
	require.False(t, ledger.Slots[4].Late)
}

func TestMonthlyReportLedgerLateClearsOnBackfill(t *testing.T) {
	svc, projects, _ := newReportFixture()
	project := activeProject(projects, models.StageRelatorioParcial)

	ledger, err := svc.Ledger(context.Background(), project.ID)
	require.NoError(t, err)
	for _, slot := range ledger.Slots {
		require.True(t, slot.Late)
	}

	// Backfilling a month clears its lateness; the flag is computed, not
	// stored.
	_, err = svc.Append(context.Background(), project.ID, "advisor-1", dto.AppendReportRequest{
		Month:       "2026-05",
		Description: "entregue com atraso",
	})
	require.NoError(t, err)

	ledger, err = svc.Ledger(context.Background(), project.ID)
	require.NoError(t, err)
	require.False(t, ledger.Slots[1].Late)
	require.True(t, ledger.Slots[0].Late)
}

func TestMonthlyReportAppendClosedProject(t *testing.T) {
	svc, projects, _ := newReportFixture()
	advisorID := "advisor-1"
	closed := projects.add(&models.Project{
		StudentID: "student-1",
		AdvisorID: &advisorID,
		Stage:     models.StageRelatorioMensal1,
		Status:    models.ProjectStatusEncerrado,
	})

	_, err := svc.Append(context.Background(), closed.ID, "advisor-1", dto.AppendReportRequest{
		Month:       "2026-04",
		Description: "atividades",
	})
	requireAppError(t, err, appErrors.ErrPreconditionFailed)
}
