package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/icdev-br/pic-portal-api/internal/dto"
	"github.com/icdev-br/pic-portal-api/internal/models"
	appErrors "github.com/icdev-br/pic-portal-api/pkg/errors"
)

type deliverableStore interface {
	CreateWithApproval(ctx context.Context, deliverable *models.Deliverable, approval *models.ApprovalRecord) error
	GetByID(ctx context.Context, id string) (*models.Deliverable, error)
	ListByProject(ctx context.Context, projectID string) ([]models.Deliverable, error)
}

type deliverableGateStore interface {
	GetByDeliverableID(ctx context.Context, deliverableID string) (*models.ApprovalRecord, error)
}

type deliverableProjectStore interface {
	GetByID(ctx context.Context, id string) (*models.Project, error)
	AdvanceStage(ctx context.Context, id string, from, to models.Stage) error
}

// DeliverableService handles artifact submission and dual review. The partial
// report and final article advance the project on dual approval; the showcase
// material does not, its presentation evaluation does.
type DeliverableService struct {
	deliverables deliverableStore
	gates        deliverableGateStore
	projects     deliverableProjectStore
	approvals    gateDecider
	audit        auditRecorder
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewDeliverableService constructs the service.
func NewDeliverableService(deliverables deliverableStore, gates deliverableGateStore, projects deliverableProjectStore, approvals gateDecider, audit auditRecorder, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *DeliverableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &DeliverableService{
		deliverables: deliverables,
		gates:        gates,
		projects:     projects,
		approvals:    approvals,
		audit:        audit,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
	}
}

// Submit records a deliverable for review. The project must sit at the stage
// the kind is reviewed in, and at most one open submission of a kind may
// exist per project.
func (s *DeliverableService) Submit(ctx context.Context, projectID, studentID string, req dto.SubmitDeliverableRequest) (*models.DeliverableDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid deliverable payload")
	}
	if !req.Kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown deliverable kind")
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project")
	}
	if project.StudentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "project belongs to another student")
	}
	if project.Status != models.ProjectStatusAtivo {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "project is not active")
	}

	reviewStage, _ := req.Kind.ReviewStage()
	if project.Stage != reviewStage {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "project is not at the stage this deliverable is reviewed in")
	}

	deliverable := &models.Deliverable{
		ProjectID:   projectID,
		Kind:        req.Kind,
		FileRef:     req.FileRef,
		Description: req.Description,
	}
	gate := &models.ApprovalRecord{}
	if err := s.deliverables.CreateWithApproval(ctx, deliverable, gate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "an open submission of this kind already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create deliverable")
	}

	s.recordAudit(studentID, models.AuditActionDeliverableSubmit, deliverable.ID, deliverable)
	return &models.DeliverableDetail{Deliverable: *deliverable, Approval: *gate}, nil
}

// Review records a reviewer decision on a deliverable gate. Dual approval of
// the partial report and final article advances the project stage; showcase
// material approval only clears the way for the showcase presentation.
func (s *DeliverableService) Review(ctx context.Context, deliverableID string, actor *models.JWTClaims, req dto.DecideRequest) (*models.DeliverableDetail, error) {
	if req.Approve == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "approve is required")
	}

	deliverable, err := s.deliverables.GetByID(ctx, deliverableID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "deliverable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load deliverable")
	}

	project, err := s.projects.GetByID(ctx, deliverable.ProjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project")
	}

	party, err := s.partyFor(actor, project)
	if err != nil {
		return nil, err
	}

	gate, err := s.gates.GetByDeliverableID(ctx, deliverableID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "deliverable gate not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load deliverable gate")
	}

	gate, err = s.approvals.Decide(ctx, gate, party, *req.Approve, req.Feedback)
	if err != nil {
		return nil, err
	}
	s.metrics.IncDecision(party, decisionStatus(*req.Approve))

	if gate.Accepted() {
		if next, ok := nextStageOnAcceptance(deliverable.Kind); ok {
			from, _ := deliverable.Kind.ReviewStage()
			if err := s.projects.AdvanceStage(ctx, deliverable.ProjectID, from, next); err != nil && !errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to advance project stage")
			}
			s.metrics.IncStageTransition(next)
		}
	}

	s.recordAudit(actor.UserID, models.AuditActionDeliverableReview, deliverableID, gate)
	return &models.DeliverableDetail{Deliverable: *deliverable, Approval: *gate}, nil
}

// List returns the submission history of a project paired with gates.
func (s *DeliverableService) List(ctx context.Context, projectID string) ([]models.DeliverableDetail, error) {
	deliverables, err := s.deliverables.ListByProject(ctx, projectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list deliverables")
	}

	details := make([]models.DeliverableDetail, 0, len(deliverables))
	for _, deliverable := range deliverables {
		detail := models.DeliverableDetail{Deliverable: deliverable}
		gate, err := s.gates.GetByDeliverableID(ctx, deliverable.ID)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load deliverable gate")
			}
		} else {
			detail.Approval = *gate
		}
		details = append(details, detail)
	}
	return details, nil
}

// nextStageOnAcceptance maps a deliverable kind to the stage dual approval
// moves the project into. Showcase material approval drives no transition.
func nextStageOnAcceptance(kind models.DeliverableKind) (models.Stage, bool) {
	switch kind {
	case models.DeliverableRelatorioParcial:
		return models.StageApresentacaoAmostra, true
	case models.DeliverableArtigoFinal:
		return models.StageConcluido, true
	}
	return "", false
}

func (s *DeliverableService) partyFor(actor *models.JWTClaims, project *models.Project) (models.ApprovalParty, error) {
	if actor == nil {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "")
	}
	party, ok := PartyForRole(actor.Role)
	if !ok {
		return "", appErrors.Clone(appErrors.ErrForbidden, "role cannot decide approvals")
	}
	if party == models.PartyAdvisor {
		if project.AdvisorID == nil || *project.AdvisorID != actor.UserID {
			return "", appErrors.Clone(appErrors.ErrForbidden, "only the assigned advisor may decide")
		}
	}
	return party, nil
}

func (s *DeliverableService) recordAudit(userID, action, resourceID string, payload interface{}) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "deliverable",
		ResourceID: &resourceID,
		CreatedAt:  time.Now().UTC(),
	}
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			entry.NewValues = raw
		}
	}
	s.audit.Record(entry)
}
