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

type proposalProjectStore interface {
	CreateWithApproval(ctx context.Context, project *models.Project, approval *models.ApprovalRecord) error
	GetByID(ctx context.Context, id string) (*models.Project, error)
	AdvanceStage(ctx context.Context, id string, from, to models.Stage) error
	SetProposalStatus(ctx context.Context, id string, decision models.DecisionStatus, status models.ProjectStatus) error
	UpdateProposalFields(ctx context.Context, project *models.Project, approval *models.ApprovalRecord) error
	Reset(ctx context.Context, id string) error
}

type proposalGateStore interface {
	LatestProposalGate(ctx context.Context, projectID string) (*models.ApprovalRecord, error)
}

type gateDecider interface {
	Decide(ctx context.Context, gate *models.ApprovalRecord, party models.ApprovalParty, approve bool, feedback string) (*models.ApprovalRecord, error)
}

type windowProvider interface {
	Window(ctx context.Context) (*models.EnrollmentWindow, error)
}

type auditRecorder interface {
	Record(entry *models.AuditLog)
}

// ProposalService handles proposal intake: submission against the enrollment
// window, the dual-approval review, resubmission after rejection and the
// student-initiated reset after a failed defense.
type ProposalService struct {
	projects   proposalProjectStore
	gates      proposalGateStore
	approvals  gateDecider
	enrollment windowProvider
	audit      auditRecorder
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewProposalService constructs the service.
func NewProposalService(projects proposalProjectStore, gates proposalGateStore, approvals gateDecider, enrollment windowProvider, audit auditRecorder, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ProposalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ProposalService{
		projects:   projects,
		gates:      gates,
		approvals:  approvals,
		enrollment: enrollment,
		audit:      audit,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
	}
}

// Submit creates a project in the proposal stage with a fresh approval gate.
// The enrollment window must be open and the student must not already hold a
// non-terminal project for the cycle.
func (s *ProposalService) Submit(ctx context.Context, studentID string, req dto.SubmitProposalRequest) (*models.Project, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid proposal payload")
	}

	window, err := s.enrollment.Window(ctx)
	if err != nil {
		return nil, err
	}
	if !window.Open {
		return nil, appErrors.Clone(appErrors.ErrEnrollmentClosed, "")
	}

	project := &models.Project{
		StudentID:      studentID,
		AdvisorID:      &req.AdvisorID,
		Title:          req.Title,
		Area:           req.Area,
		Summary:        req.Summary,
		Objectives:     req.Objectives,
		Methodology:    req.Methodology,
		Campus:         req.Campus,
		Stage:          models.StageEnvioProposta,
		Status:         models.ProjectStatusAtivo,
		ProposalStatus: models.DecisionPendente,
		EnrollmentYear: window.Year,
	}
	if req.ProposalFileRef != "" {
		project.ProposalFileRef = &req.ProposalFileRef
	}

	gate := &models.ApprovalRecord{}
	if err := s.projects.CreateWithApproval(ctx, project, gate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateEnrollment, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create proposal")
	}

	s.recordAudit(studentID, models.AuditActionProposalSubmit, project.ID, project)
	s.logger.Info("proposal submitted",
		zap.String("project_id", project.ID),
		zap.String("student_id", studentID),
		zap.Int("year", project.EnrollmentYear))
	return project, nil
}

// Decide records a reviewer decision on the live proposal gate and applies
// the lifecycle consequences: dual approval advances the project to the
// proposal defense, a rejection re-opens editing for the student.
func (s *ProposalService) Decide(ctx context.Context, projectID string, actor *models.JWTClaims, req dto.DecideRequest) (*models.ApprovalRecord, error) {
	if req.Approve == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "approve is required")
	}

	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.Stage != models.StageEnvioProposta || project.Status != models.ProjectStatusAtivo {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "project proposal is not under review")
	}

	party, err := s.partyFor(actor, project)
	if err != nil {
		return nil, err
	}

	gate, err := s.gates.LatestProposalGate(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal gate not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load proposal gate")
	}

	gate, err = s.approvals.Decide(ctx, gate, party, *req.Approve, req.Feedback)
	if err != nil {
		return nil, err
	}
	s.metrics.IncDecision(party, decisionStatus(*req.Approve))

	switch {
	case gate.Rejected():
		if err := s.projects.SetProposalStatus(ctx, projectID, models.DecisionRejeitado, models.ProjectStatusPropostaRejeitada); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark proposal rejected")
		}
	case gate.Accepted():
		if err := s.projects.AdvanceStage(ctx, projectID, models.StageEnvioProposta, models.StageApresentacaoProposta); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to advance project stage")
		}
		if err := s.projects.SetProposalStatus(ctx, projectID, models.DecisionAprovado, models.ProjectStatusAtivo); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark proposal approved")
		}
		s.metrics.IncStageTransition(models.StageApresentacaoProposta)
	}

	s.recordAudit(actor.UserID, models.AuditActionProposalDecide, projectID, gate)
	return gate, nil
}

// Resubmit rewrites the proposal fields of a rejected proposal and opens a
// fresh gate. Empty fields keep their previous values.
func (s *ProposalService) Resubmit(ctx context.Context, projectID, studentID string, req dto.ResubmitProposalRequest) (*models.Project, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.StudentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "project belongs to another student")
	}
	if project.Status != models.ProjectStatusPropostaRejeitada {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "proposal is not open for resubmission")
	}

	applyIfSet(&project.Title, req.Title)
	applyIfSet(&project.Area, req.Area)
	applyIfSet(&project.Summary, req.Summary)
	applyIfSet(&project.Objectives, req.Objectives)
	applyIfSet(&project.Methodology, req.Methodology)
	if req.AdvisorID != "" {
		project.AdvisorID = &req.AdvisorID
	}
	if req.ProposalFileRef != "" {
		project.ProposalFileRef = &req.ProposalFileRef
	}

	gate := &models.ApprovalRecord{}
	if err := s.projects.UpdateProposalFields(ctx, project, gate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "proposal is no longer open for resubmission")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resubmit proposal")
	}
	project.Status = models.ProjectStatusAtivo
	project.ProposalStatus = models.DecisionPendente

	s.recordAudit(studentID, models.AuditActionProposalSubmit, projectID, project)
	return project, nil
}

// Reset releases a project whose proposal defense was rejected, freeing the
// student to enroll again in a future cycle. History stays on record.
func (s *ProposalService) Reset(ctx context.Context, projectID, studentID string) error {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return err
	}
	if project.StudentID != studentID {
		return appErrors.Clone(appErrors.ErrForbidden, "project belongs to another student")
	}

	if err := s.projects.Reset(ctx, projectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "project is not eligible for reset")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset project")
	}

	s.recordAudit(studentID, models.AuditActionProjectReset, projectID, nil)
	return nil
}

func (s *ProposalService) loadProject(ctx context.Context, projectID string) (*models.Project, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project")
	}
	return project, nil
}

func (s *ProposalService) partyFor(actor *models.JWTClaims, project *models.Project) (models.ApprovalParty, error) {
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

func (s *ProposalService) recordAudit(userID, action, resourceID string, payload interface{}) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "project",
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

func applyIfSet(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func decisionStatus(approve bool) models.DecisionStatus {
	if approve {
		return models.DecisionAprovado
	}
	return models.DecisionRejeitado
}
