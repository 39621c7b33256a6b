package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/icdev-br/pic-portal-api/internal/dto"
	"github.com/icdev-br/pic-portal-api/internal/models"
	appErrors "github.com/icdev-br/pic-portal-api/pkg/errors"
	"github.com/icdev-br/pic-portal-api/pkg/response"
)

type deliverableService interface {
	Submit(ctx context.Context, projectID, studentID string, req dto.SubmitDeliverableRequest) (*models.DeliverableDetail, error)
	Review(ctx context.Context, deliverableID string, actor *models.JWTClaims, req dto.DecideRequest) (*models.DeliverableDetail, error)
	List(ctx context.Context, projectID string) ([]models.DeliverableDetail, error)
}

// DeliverableHandler exposes deliverable submission and review endpoints.
type DeliverableHandler struct {
	service deliverableService
}

// NewDeliverableHandler constructs the handler.
func NewDeliverableHandler(service deliverableService) *DeliverableHandler {
	return &DeliverableHandler{service: service}
}

// Submit godoc
// @Summary Submit a deliverable for dual review
// @Tags Deliverables
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param payload body dto.SubmitDeliverableRequest true "Deliverable payload"
// @Success 201 {object} response.Envelope
// @Router /projects/{id}/deliverables [post]
func (h *DeliverableHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SubmitDeliverableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid deliverable payload"))
		return
	}
	detail, err := h.service.Submit(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, detail, nil)
}

// Review godoc
// @Summary Record a reviewer decision on a deliverable
// @Tags Deliverables
// @Accept json
// @Produce json
// @Param id path string true "Deliverable ID"
// @Param payload body dto.DecideRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Router /deliverables/{id}/review [post]
func (h *DeliverableHandler) Review(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.DecideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid decision payload"))
		return
	}
	detail, err := h.service.Review(c.Request.Context(), c.Param("id"), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// List godoc
// @Summary List the deliverable history of a project
// @Tags Deliverables
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} response.Envelope
// @Router /projects/{id}/deliverables [get]
func (h *DeliverableHandler) List(c *gin.Context) {
	if claims := claimsFromContext(c); claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	details, err := h.service.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, details, nil)
}
