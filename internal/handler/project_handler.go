package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/icdev-br/pic-portal-api/internal/dto"
	"github.com/icdev-br/pic-portal-api/internal/models"
	appErrors "github.com/icdev-br/pic-portal-api/pkg/errors"
	"github.com/icdev-br/pic-portal-api/pkg/response"
)

type stageService interface {
	Get(ctx context.Context, projectID string) (*models.Project, error)
	List(ctx context.Context, query dto.ProjectQuery) ([]models.Project, *models.Pagination, error)
	Override(ctx context.Context, projectID string, stage models.Stage, actorID string) (*models.Project, error)
	BulkOverride(ctx context.Context, req dto.BulkStageRequest, actorID string) (*dto.BulkStageResult, error)
}

// ProjectHandler exposes project tracking and stage edit endpoints.
type ProjectHandler struct {
	service stageService
}

// NewProjectHandler constructs the handler.
func NewProjectHandler(service stageService) *ProjectHandler {
	return &ProjectHandler{service: service}
}

// List godoc
// @Summary List projects
// @Tags Projects
// @Produce json
// @Param stage query string false "Stage filter"
// @Param status query string false "Status filter"
// @Param year query int false "Enrollment year"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /projects [get]
func (h *ProjectHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	query := dto.ProjectQuery{
		Stage:     models.Stage(strings.TrimSpace(c.Query("stage"))),
		Status:    models.ProjectStatus(strings.TrimSpace(c.Query("status"))),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if raw := c.Query("year"); raw != "" {
		if year, err := strconv.Atoi(raw); err == nil {
			query.Year = year
		}
	}
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	// Students and advisors only see their own projects.
	switch claims.Role {
	case models.RoleStudent:
		query.StudentID = claims.UserID
	case models.RoleAdvisor:
		query.AdvisorID = claims.UserID
	}

	projects, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, projects, pagination)
}

// Get godoc
// @Summary Get a project
// @Tags Projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} response.Envelope
// @Router /projects/{id} [get]
func (h *ProjectHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	project, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !mayViewProject(claims, project) {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	response.JSON(c, http.StatusOK, project, nil)
}

// OverrideStage godoc
// @Summary Administratively set a project stage
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param payload body dto.OverrideStageRequest true "Target stage"
// @Success 200 {object} response.Envelope
// @Router /projects/{id}/stage [patch]
func (h *ProjectHandler) OverrideStage(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.OverrideStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid stage payload"))
		return
	}
	project, err := h.service.Override(c.Request.Context(), c.Param("id"), req.Stage, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, project, nil)
}

// BulkStage godoc
// @Summary Apply one stage to a set of projects
// @Tags Projects
// @Accept json
// @Produce json
// @Param payload body dto.BulkStageRequest true "Bulk stage payload"
// @Success 200 {object} response.Envelope
// @Router /projects/stage/bulk [patch]
func (h *ProjectHandler) BulkStage(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.BulkStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid bulk stage payload"))
		return
	}
	result, err := h.service.BulkOverride(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func mayViewProject(claims *models.JWTClaims, project *models.Project) bool {
	switch claims.Role {
	case models.RoleCoordinator:
		return true
	case models.RoleAdvisor:
		return project.AdvisorID != nil && *project.AdvisorID == claims.UserID
	case models.RoleStudent:
		return project.StudentID == claims.UserID
	}
	return false
}
