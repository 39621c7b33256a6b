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

type certificateService interface {
	Issue(ctx context.Context, projectID, issuerID string, req dto.IssueCertificateRequest) (*models.Certificate, error)
	Get(ctx context.Context, projectID string) (*models.Certificate, error)
}

// CertificateHandler exposes completion certificate endpoints.
type CertificateHandler struct {
	service certificateService
}

// NewCertificateHandler constructs the handler.
func NewCertificateHandler(service certificateService) *CertificateHandler {
	return &CertificateHandler{service: service}
}

// Issue godoc
// @Summary Issue the completion certificate of a concluded project
// @Tags Certificates
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param payload body dto.IssueCertificateRequest true "Certificate payload"
// @Success 201 {object} response.Envelope
// @Router /projects/{id}/certificate [post]
func (h *CertificateHandler) Issue(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.IssueCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid certificate payload"))
		return
	}
	certificate, err := h.service.Issue(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, certificate, nil)
}

// Get godoc
// @Summary Get the certificate of a project
// @Tags Certificates
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} response.Envelope
// @Router /projects/{id}/certificate [get]
func (h *CertificateHandler) Get(c *gin.Context) {
	if claims := claimsFromContext(c); claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	certificate, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, certificate, nil)
}
