package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/icdev-br/pic-portal-api/internal/models"
	appErrors "github.com/icdev-br/pic-portal-api/pkg/errors"
)

func requireAppError(t *testing.T, err error, want *appErrors.Error) {
	t.Helper()
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, want.Code, appErr.Code)
	require.Equal(t, want.Status, appErr.Status)
}

func TestApprovalServiceAdvisorFirst(t *testing.T) {
	gates := newGateStoreStub()
	gate := gates.add(&models.ApprovalRecord{ProjectID: "proj-1"})
	svc := NewApprovalService(gates, nil)

	_, err := svc.Decide(context.Background(), gate, models.PartyCoordinator, true, "")
	requireAppError(t, err, appErrors.ErrConflict)

	updated, err := svc.Decide(context.Background(), gate, models.PartyAdvisor, true, "looks good")
	require.NoError(t, err)
	require.Equal(t, models.DecisionAprovado, updated.AdvisorStatus)
	require.Equal(t, models.DecisionPendente, updated.CoordinatorStatus)

	updated, err = svc.Decide(context.Background(), updated, models.PartyCoordinator, true, "")
	require.NoError(t, err)
	require.True(t, updated.Accepted())
}

func TestApprovalServiceRejectionRequiresFeedback(t *testing.T) {
	gates := newGateStoreStub()
	gate := gates.add(&models.ApprovalRecord{ProjectID: "proj-1"})
	svc := NewApprovalService(gates, nil)

	_, err := svc.Decide(context.Background(), gate, models.PartyAdvisor, false, "  ")
	requireAppError(t, err, appErrors.ErrValidation)

	updated, err := svc.Decide(context.Background(), gate, models.PartyAdvisor, false, "needs a clearer methodology")
	require.NoError(t, err)
	require.True(t, updated.Rejected())
	require.NotNil(t, updated.AdvisorFeedback)
}

func TestApprovalServiceTerminalIsImmutable(t *testing.T) {
	gates := newGateStoreStub()
	svc := NewApprovalService(gates, nil)

	rejected := gates.add(&models.ApprovalRecord{ProjectID: "proj-1", AdvisorStatus: models.DecisionRejeitado})
	_, err := svc.Decide(context.Background(), rejected, models.PartyAdvisor, true, "")
	requireAppError(t, err, appErrors.ErrConflict)
	_, err = svc.Decide(context.Background(), rejected, models.PartyCoordinator, true, "")
	requireAppError(t, err, appErrors.ErrConflict)

	accepted := gates.add(&models.ApprovalRecord{
		ProjectID:         "proj-2",
		AdvisorStatus:     models.DecisionAprovado,
		CoordinatorStatus: models.DecisionAprovado,
	})
	_, err = svc.Decide(context.Background(), accepted, models.PartyCoordinator, false, "too late")
	requireAppError(t, err, appErrors.ErrConflict)
}

func TestApprovalServiceAdvisorRejectionBlocksCoordinator(t *testing.T) {
	gates := newGateStoreStub()
	gate := gates.add(&models.ApprovalRecord{ProjectID: "proj-1", AdvisorStatus: models.DecisionRejeitado})
	svc := NewApprovalService(gates, nil)

	_, err := svc.Decide(context.Background(), gate, models.PartyCoordinator, true, "")
	requireAppError(t, err, appErrors.ErrConflict)
}

func TestApprovalServiceDoubleDecisionConflicts(t *testing.T) {
	gates := newGateStoreStub()
	gate := gates.add(&models.ApprovalRecord{ProjectID: "proj-1"})
	svc := NewApprovalService(gates, nil)

	first, err := svc.Decide(context.Background(), gate, models.PartyAdvisor, true, "")
	require.NoError(t, err)

	// A second decision on a stale copy of the record hits the guarded
	// UPDATE and surfaces as a conflict.
	stale := *gate
	stale.AdvisorStatus = models.DecisionPendente
	_, err = svc.Decide(context.Background(), &stale, models.PartyAdvisor, false, "changed my mind")
	requireAppError(t, err, appErrors.ErrConflict)

	stored, err := gates.GetByID(context.Background(), first.ID)
	require.NoError(t, err)
	require.Equal(t, models.DecisionAprovado, stored.AdvisorStatus)
}

func TestPartyForRole(t *testing.T) {
	party, ok := PartyForRole(models.RoleAdvisor)
	require.True(t, ok)
	require.Equal(t, models.PartyAdvisor, party)

	party, ok = PartyForRole(models.RoleCoordinator)
	require.True(t, ok)
	require.Equal(t, models.PartyCoordinator, party)

	_, ok = PartyForRole(models.RoleStudent)
	require.False(t, ok)
}
