package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/icdev-br/pic-portal-api/internal/dto"
	"github.com/icdev-br/pic-portal-api/internal/models"
	appErrors "github.com/icdev-br/pic-portal-api/pkg/errors"
)

type monthlyReportStore interface {
	Create(ctx context.Context, report *models.MonthlyReport) error
	GetByID(ctx context.Context, id string) (*models.MonthlyReport, error)
	ListByProject(ctx context.Context, projectID string) ([]models.MonthlyReport, error)
	AddMessage(ctx context.Context, message *models.ReportMessage) error
	ListMessages(ctx context.Context, reportID string) ([]models.ReportMessage, error)
}

type reportProjectStore interface {
	GetByID(ctx context.Context, id string) (*models.Project, error)
}

// MonthlyReportService keeps the advisor activity ledger. The stream is
// informational: nothing here ever gates stage progression, and lateness is
// computed from the tracker state on read, never stored.
type MonthlyReportService struct {
	reports    monthlyReportStore
	projects   reportProjectStore
	enrollment windowProvider
	audit      auditRecorder
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewMonthlyReportService constructs the service.
func NewMonthlyReportService(reports monthlyReportStore, projects reportProjectStore, enrollment windowProvider, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *MonthlyReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &MonthlyReportService{
		reports:    reports,
		projects:   projects,
		enrollment: enrollment,
		audit:      audit,
		validator:  validate,
		logger:     logger,
	}
}

// Append records an advisor activity report for one calendar month. Multiple
// reports for the same month are allowed; the ledger is append-only.
func (s *MonthlyReportService) Append(ctx context.Context, projectID, advisorID string, req dto.AppendReportRequest) (*models.MonthlyReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report payload")
	}
	if _, err := time.Parse("2006-01", req.Month); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "month must use the YYYY-MM format")
	}

	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.AdvisorID == nil || *project.AdvisorID != advisorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the assigned advisor may report")
	}
	if project.Status == models.ProjectStatusEncerrado {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "project is closed")
	}

	report := &models.MonthlyReport{
		ProjectID:   projectID,
		AdvisorID:   advisorID,
		Month:       req.Month,
		Description: req.Description,
		FileRef:     req.FileRef,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create monthly report")
	}

	s.recordAudit(advisorID, models.AuditActionReportAppend, report.ID)
	return report, nil
}

// AddMessage appends one entry to the report thread. Students have no voice
// here; the author role follows the actor role.
func (s *MonthlyReportService) AddMessage(ctx context.Context, reportID string, actor *models.JWTClaims, req dto.AddMessageRequest) (*models.ReportMessage, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid message payload")
	}
	if actor == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "")
	}

	var role models.MessageRole
	switch actor.Role {
	case models.RoleAdvisor:
		role = models.MessageRoleOrientador
	case models.RoleCoordinator:
		role = models.MessageRoleCoordenador
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role cannot post report messages")
	}

	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "monthly report not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load monthly report")
	}
	if role == models.MessageRoleOrientador && report.AdvisorID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the reporting advisor may post here")
	}

	message := &models.ReportMessage{
		ReportID:   reportID,
		AuthorRole: role,
		Text:       req.Text,
	}
	if err := s.reports.AddMessage(ctx, message); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report message")
	}

	s.recordAudit(actor.UserID, models.AuditActionReportMessage, reportID)
	return message, nil
}

// Ledger returns all reports of a project with their threads, plus the
// computed per-slot lateness view.
func (s *MonthlyReportService) Ledger(ctx context.Context, projectID string) (*dto.LedgerView, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	reports, err := s.reports.ListByProject(ctx, projectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list monthly reports")
	}

	view := &dto.LedgerView{Reports: make([]dto.ReportDetail, 0, len(reports))}
	reported := make(map[string]bool, len(reports))
	for _, report := range reports {
		reported[report.Month] = true
		messages, err := s.reports.ListMessages(ctx, report.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list report messages")
		}
		view.Reports = append(view.Reports, dto.ReportDetail{MonthlyReport: report, Messages: messages})
	}

	window, err := s.enrollment.Window(ctx)
	if err != nil {
		return nil, err
	}
	view.Slots = slotStatuses(project.Stage, window.FirstReportMonth, reported)

	return view, nil
}

// slotStatuses derives the lateness view: a slot is late when the project has
// already moved past its stage and no report covers its month.
func slotStatuses(current models.Stage, firstReportMonth string, reported map[string]bool) []models.MonthlySlotStatus {
	anchor, err := time.Parse("2006-01", firstReportMonth)
	if err != nil {
		return nil
	}

	statuses := make([]models.MonthlySlotStatus, 0, models.MonthlySlotCount)
	for slot := 1; slot <= models.MonthlySlotCount; slot++ {
		month := anchor.AddDate(0, slot-1, 0).Format("2006-01")
		slotStage, _ := models.MonthlyStage(slot)
		hasReport := reported[month]
		statuses = append(statuses, models.MonthlySlotStatus{
			Slot:     slot,
			Month:    month,
			Reported: hasReport,
			Late:     !hasReport && current.Index() > slotStage.Index(),
		})
	}
	return statuses
}

func (s *MonthlyReportService) loadProject(ctx context.Context, projectID string) (*models.Project, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project")
	}
	return project, nil
}

func (s *MonthlyReportService) recordAudit(userID, action, resourceID string) {
	if s.audit == nil {
		return
	}
	s.audit.Record(&models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "monthly_report",
		ResourceID: &resourceID,
		CreatedAt:  time.Now().UTC(),
	})
}
