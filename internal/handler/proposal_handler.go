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

type proposalService interface {
	Submit(ctx context.Context, studentID string, req dto.SubmitProposalRequest) (*models.Project, error)
	Decide(ctx context.Context, projectID string, actor *models.JWTClaims, req dto.DecideRequest) (*models.ApprovalRecord, error)
	Resubmit(ctx context.Context, projectID, studentID string, req dto.ResubmitProposalRequest) (*models.Project, error)
	Reset(ctx context.Context, projectID, studentID string) error
}

// ProposalHandler exposes proposal intake endpoints.
type ProposalHandler struct {
	service proposalService
}

// NewProposalHandler constructs the handler.
func NewProposalHandler(service proposalService) *ProposalHandler {
	return &ProposalHandler{service: service}
}

// Submit godoc
// @Summary Submit a research project proposal
// @Tags Proposals
// @Accept json
// @Produce json
// @Param payload body dto.SubmitProposalRequest true "Proposal payload"
// @Success 201 {object} response.Envelope
// @Router /proposals [post]
func (h *ProposalHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SubmitProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid proposal payload"))
		return
	}
	project, err := h.service.Submit(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, project, nil)
}

// Decide godoc
// @Summary Record a reviewer decision on a proposal
// @Tags Proposals
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param payload body dto.DecideRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Router /proposals/{id}/decision [post]
func (h *ProposalHandler) Decide(c *gin.Context) {
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
	gate, err := h.service.Decide(c.Request.Context(), c.Param("id"), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gate, nil)
}

// Resubmit godoc
// @Summary Resubmit a rejected proposal
// @Tags Proposals
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param payload body dto.ResubmitProposalRequest true "Updated proposal fields"
// @Success 200 {object} response.Envelope
// @Router /proposals/{id} [put]
func (h *ProposalHandler) Resubmit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ResubmitProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid proposal payload"))
		return
	}
	project, err := h.service.Resubmit(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, project, nil)
}

// Reset godoc
// @Summary Release a project after a failed proposal defense
// @Tags Proposals
// @Produce json
// @Param id path string true "Project ID"
// @Success 204 {object} nil
// @Router /projects/{id}/reset [post]
func (h *ProposalHandler) Reset(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Reset(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
