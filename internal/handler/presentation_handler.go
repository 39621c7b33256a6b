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

type presentationService interface {
	Schedule(ctx context.Context, projectID string, event models.PresentationEvent, actorID string, req dto.ScheduleRequest) (*models.PresentationSchedule, error)
	Get(ctx context.Context, projectID string, event models.PresentationEvent) (*models.PresentationSchedule, error)
	Evaluate(ctx context.Context, projectID string, event models.PresentationEvent, actorID string, req dto.DecideRequest) (*models.PresentationSchedule, error)
}

// PresentationHandler exposes presentation scheduling and evaluation endpoints.
type PresentationHandler struct {
	service presentationService
}

// NewPresentationHandler constructs the handler.
func NewPresentationHandler(service presentationService) *PresentationHandler {
	return &PresentationHandler{service: service}
}

// Schedule godoc
// @Summary Schedule or reschedule a presentation event
// @Tags Presentations
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param event path string true "Event (proposta or amostra)"
// @Param payload body dto.ScheduleRequest true "Schedule payload"
// @Success 200 {object} response.Envelope
// @Router /projects/{id}/presentations/{event} [patch]
func (h *PresentationHandler) Schedule(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid schedule payload"))
		return
	}
	schedule, err := h.service.Schedule(c.Request.Context(), c.Param("id"), models.PresentationEvent(c.Param("event")), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Get godoc
// @Summary Get the schedule of a presentation event
// @Tags Presentations
// @Produce json
// @Param id path string true "Project ID"
// @Param event path string true "Event (proposta or amostra)"
// @Success 200 {object} response.Envelope
// @Router /projects/{id}/presentations/{event} [get]
func (h *PresentationHandler) Get(c *gin.Context) {
	if claims := claimsFromContext(c); claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	schedule, err := h.service.Get(c.Request.Context(), c.Param("id"), models.PresentationEvent(c.Param("event")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Evaluate godoc
// @Summary Record the outcome of a held presentation
// @Tags Presentations
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param event path string true "Event (proposta or amostra)"
// @Param payload body dto.DecideRequest true "Evaluation payload"
// @Success 200 {object} response.Envelope
// @Router /projects/{id}/presentations/{event}/evaluation [post]
func (h *PresentationHandler) Evaluate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.DecideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid evaluation payload"))
		return
	}
	schedule, err := h.service.Evaluate(c.Request.Context(), c.Param("id"), models.PresentationEvent(c.Param("event")), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}
