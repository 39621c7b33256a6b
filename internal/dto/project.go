package dto

import "github.com/icdev-br/pic-portal-api/internal/models"

// OverrideStageRequest sets a project stage administratively.
type OverrideStageRequest struct {
	Stage models.Stage `json:"stage" validate:"required"`
}

// BulkStageRequest applies one target stage to a set of projects.
type BulkStageRequest struct {
	Stage      models.Stage `json:"stage" validate:"required"`
	ProjectIDs []string     `json:"project_ids" validate:"required,min=1"`
}

// BulkStageFailure reports one failed item of a bulk stage edit.
type BulkStageFailure struct {
	ProjectID string `json:"project_id"`
	Error     string `json:"error"`
}

// BulkStageResult tallies per-item outcomes of a bulk stage edit.
type BulkStageResult struct {
	Applied int                `json:"applied"`
	Failed  []BulkStageFailure `json:"failed,omitempty"`
}

// ProjectQuery mirrors supported listing filters.
type ProjectQuery struct {
	StudentID string
	AdvisorID string
	Stage     models.Stage
	Status    models.ProjectStatus
	Year      int
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
