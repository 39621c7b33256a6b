package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/icdev-br/pic-portal-api/internal/models"
	appErrors "github.com/icdev-br/pic-portal-api/pkg/errors"
)

type approvalStore interface {
	GetByID(ctx context.Context, id string) (*models.ApprovalRecord, error)
	DecideAdvisor(ctx context.Context, id string, status models.DecisionStatus, feedback *string, decidedAt time.Time) error
	DecideCoordinator(ctx context.Context, id string, status models.DecisionStatus, feedback *string, decidedAt time.Time) error
}

// ApprovalService enforces the two-party sequential approval gate shared by
// proposal intake and deliverable review: advisor first, coordinator only
// after advisor approval, rejection from either party terminal.
type ApprovalService struct {
	repo   approvalStore
	logger *zap.Logger
}

// NewApprovalService constructs the service.
func NewApprovalService(repo approvalStore, logger *zap.Logger) *ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApprovalService{repo: repo, logger: logger}
}

// Decide records one party's decision on the gate and returns the updated
// record. The gate rules are checked up front and the repository re-checks
// them inside the UPDATE, so two racing decisions cannot both land.
func (s *ApprovalService) Decide(ctx context.Context, gate *models.ApprovalRecord, party models.ApprovalParty, approve bool, feedback string) (*models.ApprovalRecord, error) {
	if gate == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "approval record not found")
	}

	feedback = strings.TrimSpace(feedback)
	if !approve && feedback == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "feedback is required when rejecting")
	}

	if gate.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a final decision was already recorded for this submission")
	}

	status := models.DecisionAprovado
	if !approve {
		status = models.DecisionRejeitado
	}
	var fb *string
	if feedback != "" {
		fb = &feedback
	}
	now := time.Now().UTC()

	switch party {
	case models.PartyAdvisor:
		if gate.AdvisorStatus != models.DecisionPendente {
			return nil, appErrors.Clone(appErrors.ErrConflict, "submission is not awaiting the advisor decision")
		}
		if err := s.repo.DecideAdvisor(ctx, gate.ID, status, fb, now); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrConflict, "submission is not awaiting the advisor decision")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record advisor decision")
		}
		gate.AdvisorStatus = status
		gate.AdvisorFeedback = fb
		gate.AdvisorDecidedAt = &now

	case models.PartyCoordinator:
		if gate.AdvisorStatus != models.DecisionAprovado || gate.CoordinatorStatus != models.DecisionPendente {
			return nil, appErrors.Clone(appErrors.ErrConflict, "submission is not awaiting the coordinator decision")
		}
		if err := s.repo.DecideCoordinator(ctx, gate.ID, status, fb, now); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrConflict, "submission is not awaiting the coordinator decision")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record coordinator decision")
		}
		gate.CoordinatorStatus = status
		gate.CoordinatorFeedback = fb
		gate.CoordinatorDecidedAt = &now

	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown approval party")
	}

	return gate, nil
}

// PartyForRole maps an authenticated role onto the gate party it plays.
func PartyForRole(role models.UserRole) (models.ApprovalParty, bool) {
	switch role {
	case models.RoleAdvisor:
		return models.PartyAdvisor, true
	case models.RoleCoordinator:
		return models.PartyCoordinator, true
	}
	return "", false
}
