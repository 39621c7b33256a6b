package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/icdev-br/pic-portal-api/internal/dto"
	"github.com/icdev-br/pic-portal-api/internal/models"
	appErrors "github.com/icdev-br/pic-portal-api/pkg/errors"
)

type presentationStore interface {
	Upsert(ctx context.Context, schedule *models.PresentationSchedule) error
	Get(ctx context.Context, projectID string, event models.PresentationEvent) (*models.PresentationSchedule, error)
	Evaluate(ctx context.Context, projectID string, event models.PresentationEvent, status models.DecisionStatus, feedback *string, decidedAt time.Time) error
}

type presentationProjectStore interface {
	GetByID(ctx context.Context, id string) (*models.Project, error)
	AdvanceStage(ctx context.Context, id string, from, to models.Stage) error
	SetStatus(ctx context.Context, id string, status models.ProjectStatus) error
}

// PresentationService schedules and evaluates the two presentation events of
// a project. Rescheduling resets a pending-again evaluation; an approved
// evaluation drives the stage forward.
type PresentationService struct {
	schedules presentationStore
	projects  presentationProjectStore
	audit     auditRecorder
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPresentationService constructs the service.
func NewPresentationService(schedules presentationStore, projects presentationProjectStore, audit auditRecorder, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *PresentationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &PresentationService{
		schedules: schedules,
		projects:  projects,
		audit:     audit,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// Schedule attaches date/time/location to a presentation event. Scheduling
// again overwrites the slot and resets any prior evaluation.
func (s *PresentationService) Schedule(ctx context.Context, projectID string, event models.PresentationEvent, actorID string, req dto.ScheduleRequest) (*models.PresentationSchedule, error) {
	if !event.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown presentation event")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must use the YYYY-MM-DD format")
	}
	if _, err := time.Parse("15:04", req.StartTime); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must use the HH:MM format")
	}

	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.Status == models.ProjectStatusEncerrado {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "project is closed")
	}

	schedule := &models.PresentationSchedule{
		ProjectID: projectID,
		Event:     event,
		Date:      req.Date,
		StartTime: req.StartTime,
		Campus:    req.Campus,
		Room:      req.Room,
	}
	if err := s.schedules.Upsert(ctx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store presentation schedule")
	}

	s.recordAudit(actorID, models.AuditActionPresentationSchedule, projectID, schedule)
	return schedule, nil
}

// Get returns the schedule of an event for a project.
func (s *PresentationService) Get(ctx context.Context, projectID string, event models.PresentationEvent) (*models.PresentationSchedule, error) {
	if !event.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown presentation event")
	}
	schedule, err := s.schedules.Get(ctx, projectID, event)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "presentation is not scheduled")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load presentation schedule")
	}
	return schedule, nil
}

// Evaluate records the coordinator outcome of a held presentation. Approval
// of the proposal defense starts the monthly-report stretch; approval of the
// showcase moves the project to the final article.
func (s *PresentationService) Evaluate(ctx context.Context, projectID string, event models.PresentationEvent, actorID string, req dto.DecideRequest) (*models.PresentationSchedule, error) {
	if !event.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown presentation event")
	}
	if req.Approve == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "approve is required")
	}
	feedback := strings.TrimSpace(req.Feedback)
	if !*req.Approve && feedback == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "feedback is required when rejecting")
	}

	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	schedule, err := s.schedules.Get(ctx, projectID, event)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "presentation is not scheduled")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load presentation schedule")
	}
	if !schedule.Scheduled() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "presentation is not scheduled")
	}
	// A decided evaluation is terminal; checked before the stage so a repeat
	// call after an approved evaluation reports the conflict, not the stage.
	if schedule.EvaluationStatus != models.DecisionPendente {
		return nil, appErrors.Clone(appErrors.ErrConflict, "presentation was already evaluated")
	}

	expectedStage := eventStage(event)
	if project.Stage != expectedStage || project.Status != models.ProjectStatusAtivo {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "project is not awaiting this presentation")
	}

	status := decisionStatus(*req.Approve)
	var fb *string
	if feedback != "" {
		fb = &feedback
	}
	now := time.Now().UTC()

	if err := s.schedules.Evaluate(ctx, projectID, event, status, fb, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "presentation was already evaluated")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record evaluation")
	}
	schedule.EvaluationStatus = status
	schedule.EvaluationFeedback = fb
	schedule.EvaluatedAt = &now

	switch {
	case status == models.DecisionAprovado:
		next := nextStageAfterEvent(event)
		if err := s.projects.AdvanceStage(ctx, projectID, expectedStage, next); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to advance project stage")
		}
		s.metrics.IncStageTransition(next)
	case event == models.PresentationProposta:
		if err := s.projects.SetStatus(ctx, projectID, models.ProjectStatusApresentacaoRejeitada); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark defense rejected")
		}
	}

	s.recordAudit(actorID, models.AuditActionPresentationEvaluate, projectID, schedule)
	return schedule, nil
}

func (s *PresentationService) loadProject(ctx context.Context, projectID string) (*models.Project, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project")
	}
	return project, nil
}

func eventStage(event models.PresentationEvent) models.Stage {
	if event == models.PresentationProposta {
		return models.StageApresentacaoProposta
	}
	return models.StageApresentacaoAmostra
}

func nextStageAfterEvent(event models.PresentationEvent) models.Stage {
	if event == models.PresentationProposta {
		return models.StageRelatorioMensal1
	}
	return models.StageArtigoFinal
}

func (s *PresentationService) recordAudit(userID, action, projectID string, payload interface{}) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "presentation",
		ResourceID: &projectID,
		CreatedAt:  time.Now().UTC(),
	}
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			entry.NewValues = raw
		}
	}
	s.audit.Record(entry)
}
