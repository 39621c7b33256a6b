package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/icdev-br/pic-portal-api/internal/dto"
	"github.com/icdev-br/pic-portal-api/internal/models"
	appErrors "github.com/icdev-br/pic-portal-api/pkg/errors"
)

type stageProjectStore interface {
	GetByID(ctx context.Context, id string) (*models.Project, error)
	List(ctx context.Context, filter models.ProjectFilter) ([]models.Project, int, error)
	SetStage(ctx context.Context, id string, stage models.Stage) error
}

// StageService tracks and administratively edits project stages. Gated
// transitions happen inside the proposal, deliverable and presentation
// services; here live the coordinator overrides that move cohorts through
// the monthly-report stretch.
type StageService struct {
	projects stageProjectStore
	audit    auditRecorder
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewStageService constructs the service.
func NewStageService(projects stageProjectStore, audit auditRecorder, metrics *MetricsService, logger *zap.Logger) *StageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StageService{projects: projects, audit: audit, metrics: metrics, logger: logger}
}

// Get returns a project by identifier.
func (s *StageService) Get(ctx context.Context, projectID string) (*models.Project, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project")
	}
	return project, nil
}

// List returns projects matching the filter with pagination metadata.
func (s *StageService) List(ctx context.Context, query dto.ProjectQuery) ([]models.Project, *models.Pagination, error) {
	filter := models.ProjectFilter{
		StudentID: query.StudentID,
		AdvisorID: query.AdvisorID,
		Stage:     query.Stage,
		Status:    query.Status,
		Year:      query.Year,
		Page:      query.Page,
		PageSize:  query.PageSize,
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
	}
	if filter.Stage != "" && !filter.Stage.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown stage filter")
	}

	projects, total, err := s.projects.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list projects")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return projects, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Override sets a project stage directly. Setting the stage the project is
// already at is a no-op success.
func (s *StageService) Override(ctx context.Context, projectID string, stage models.Stage, actorID string) (*models.Project, error) {
	if !stage.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown stage")
	}

	project, err := s.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.Status == models.ProjectStatusEncerrado {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "project is closed")
	}
	if project.Stage == stage {
		return project, nil
	}

	if err := s.projects.SetStage(ctx, projectID, stage); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set project stage")
	}
	s.metrics.IncStageTransition(stage)
	s.recordAudit(actorID, models.AuditActionStageOverride, projectID, project.Stage, stage)

	project.Stage = stage
	project.UpdatedAt = time.Now().UTC()
	return project, nil
}

// BulkOverride applies one target stage to many projects, tallying per-item
// outcomes. A failed item never aborts the rest of the batch.
func (s *StageService) BulkOverride(ctx context.Context, req dto.BulkStageRequest, actorID string) (*dto.BulkStageResult, error) {
	if !req.Stage.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown stage")
	}
	if len(req.ProjectIDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "project_ids is required")
	}

	result := &dto.BulkStageResult{}
	for _, projectID := range req.ProjectIDs {
		if _, err := s.Override(ctx, projectID, req.Stage, actorID); err != nil {
			result.Failed = append(result.Failed, dto.BulkStageFailure{
				ProjectID: projectID,
				Error:     appErrors.FromError(err).Message,
			})
			continue
		}
		result.Applied++
	}

	s.recordAudit(actorID, models.AuditActionStageBulkOverride, "", "", req.Stage)
	s.logger.Info("bulk stage edit applied",
		zap.String("stage", string(req.Stage)),
		zap.Int("applied", result.Applied),
		zap.Int("failed", len(result.Failed)))
	return result, nil
}

func (s *StageService) recordAudit(actorID, action, projectID string, from, to models.Stage) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:    &actorID,
		Action:    action,
		Resource:  "project",
		CreatedAt: time.Now().UTC(),
	}
	if projectID != "" {
		entry.ResourceID = &projectID
	}
	if from != "" {
		entry.OldValues, _ = json.Marshal(map[string]models.Stage{"stage": from})
	}
	if to != "" {
		entry.NewValues, _ = json.Marshal(map[string]models.Stage{"stage": to})
	}
	s.audit.Record(entry)
}
