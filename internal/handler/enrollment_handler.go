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

type enrollmentService interface {
	View(ctx context.Context) (*dto.WindowView, error)
	UpdateWindow(ctx context.Context, req dto.UpdateWindowRequest) (*models.EnrollmentWindow, error)
}

// EnrollmentHandler exposes the enrollment window endpoints.
type EnrollmentHandler struct {
	service enrollmentService
}

// NewEnrollmentHandler constructs the handler.
func NewEnrollmentHandler(service enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: service}
}

// Window godoc
// @Summary Get the enrollment window of the active cycle
// @Tags Enrollment
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /enrollment/window [get]
func (h *EnrollmentHandler) Window(c *gin.Context) {
	view, err := h.service.View(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// UpdateWindow godoc
// @Summary Open or close the active enrollment cycle
// @Tags Enrollment
// @Accept json
// @Produce json
// @Param payload body dto.UpdateWindowRequest true "Window payload"
// @Success 200 {object} response.Envelope
// @Router /enrollment/window [patch]
func (h *EnrollmentHandler) UpdateWindow(c *gin.Context) {
	if claims := claimsFromContext(c); claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpdateWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid window payload"))
		return
	}
	window, err := h.service.UpdateWindow(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, window, nil)
}
