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

type monthlyReportService interface {
	Append(ctx context.Context, projectID, advisorID string, req dto.AppendReportRequest) (*models.MonthlyReport, error)
	AddMessage(ctx context.Context, reportID string, actor *models.JWTClaims, req dto.AddMessageRequest) (*models.ReportMessage, error)
	Ledger(ctx context.Context, projectID string) (*dto.LedgerView, error)
}

// MonthlyReportHandler exposes the activity report ledger endpoints.
type MonthlyReportHandler struct {
	service monthlyReportService
}

// NewMonthlyReportHandler constructs the handler.
func NewMonthlyReportHandler(service monthlyReportService) *MonthlyReportHandler {
	return &MonthlyReportHandler{service: service}
}

// Append godoc
// @Summary Record a monthly activity report
// @Tags MonthlyReports
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param payload body dto.AppendReportRequest true "Report payload"
// @Success 201 {object} response.Envelope
// @Router /projects/{id}/monthly-reports [post]
func (h *MonthlyReportHandler) Append(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.AppendReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid report payload"))
		return
	}
	report, err := h.service.Append(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, report, nil)
}

// Ledger godoc
// @Summary List the monthly reports of a project with lateness flags
// @Tags MonthlyReports
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} response.Envelope
// @Router /projects/{id}/monthly-reports [get]
func (h *MonthlyReportHandler) Ledger(c *gin.Context) {
	if claims := claimsFromContext(c); claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	ledger, err := h.service.Ledger(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ledger, nil)
}

// AddMessage godoc
// @Summary Append a message to a report thread
// @Tags MonthlyReports
// @Accept json
// @Produce json
// @Param id path string true "Report ID"
// @Param payload body dto.AddMessageRequest true "Message payload"
// @Success 201 {object} response.Envelope
// @Router /monthly-reports/{id}/messages [post]
func (h *MonthlyReportHandler) AddMessage(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.AddMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid message payload"))
		return
	}
	message, err := h.service.AddMessage(c.Request.Context(), c.Param("id"), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, message, nil)
}
