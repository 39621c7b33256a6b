package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/icdev-br/pic-portal-api/internal/models"
	"github.com/icdev-br/pic-portal-api/pkg/export"
)

type projectStoreStub struct {
	projects map[string]*models.Project
	gates    *gateStoreStub
}

func newProjectStoreStub(gates *gateStoreStub) *projectStoreStub {
	return &projectStoreStub{projects: make(map[string]*models.Project), gates: gates}
}

func (s *projectStoreStub) add(project *models.Project) *models.Project {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	s.projects[project.ID] = project
	return project
}

func (s *projectStoreStub) CreateWithApproval(ctx context.Context, project *models.Project, approval *models.ApprovalRecord) error {
	for _, existing := range s.projects {
		if existing.StudentID == project.StudentID && existing.EnrollmentYear == project.EnrollmentYear && !existing.Terminal() {
			return sql.ErrNoRows
		}
	}
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	s.projects[project.ID] = project
	approval.ProjectID = project.ID
	s.gates.add(approval)
	return nil
}

func (s *projectStoreStub) GetByID(ctx context.Context, id string) (*models.Project, error) {
	if project, ok := s.projects[id]; ok {
		clone := *project
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (s *projectStoreStub) List(ctx context.Context, filter models.ProjectFilter) ([]models.Project, int, error) {
	out := make([]models.Project, 0, len(s.projects))
	for _, project := range s.projects {
		if filter.StudentID != "" && project.StudentID != filter.StudentID {
			continue
		}
		if filter.Stage != "" && project.Stage != filter.Stage {
			continue
		}
		out = append(out, *project)
	}
	return out, len(out), nil
}

func (s *projectStoreStub) AdvanceStage(ctx context.Context, id string, from, to models.Stage) error {
	project, ok := s.projects[id]
	if !ok || project.Stage != from {
		return sql.ErrNoRows
	}
	project.Stage = to
	return nil
}

func (s *projectStoreStub) SetStage(ctx context.Context, id string, stage models.Stage) error {
	project, ok := s.projects[id]
	if !ok {
		return sql.ErrNoRows
	}
	project.Stage = stage
	return nil
}

func (s *projectStoreStub) SetProposalStatus(ctx context.Context, id string, decision models.DecisionStatus, status models.ProjectStatus) error {
	project, ok := s.projects[id]
	if !ok {
		return sql.ErrNoRows
	}
	project.ProposalStatus = decision
	project.Status = status
	return nil
}

func (s *projectStoreStub) SetStatus(ctx context.Context, id string, status models.ProjectStatus) error {
	project, ok := s.projects[id]
	if !ok {
		return sql.ErrNoRows
	}
	project.Status = status
	return nil
}

func (s *projectStoreStub) UpdateProposalFields(ctx context.Context, project *models.Project, approval *models.ApprovalRecord) error {
	stored, ok := s.projects[project.ID]
	if !ok || stored.Status != models.ProjectStatusPropostaRejeitada {
		return sql.ErrNoRows
	}
	clone := *project
	clone.Status = models.ProjectStatusAtivo
	clone.ProposalStatus = models.DecisionPendente
	s.projects[project.ID] = &clone
	approval.ProjectID = project.ID
	s.gates.add(approval)
	return nil
}

func (s *projectStoreStub) Reset(ctx context.Context, id string) error {
	project, ok := s.projects[id]
	if !ok || project.Status != models.ProjectStatusApresentacaoRejeitada {
		return sql.ErrNoRows
	}
	project.Status = models.ProjectStatusEncerrado
	return nil
}

type gateStoreStub struct {
	records []*models.ApprovalRecord
}

func newGateStoreStub() *gateStoreStub {
	return &gateStoreStub{}
}

func (s *gateStoreStub) add(record *models.ApprovalRecord) *models.ApprovalRecord {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.AdvisorStatus == "" {
		record.AdvisorStatus = models.DecisionPendente
	}
	if record.CoordinatorStatus == "" {
		record.CoordinatorStatus = models.DecisionPendente
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	s.records = append(s.records, record)
	return record
}

func (s *gateStoreStub) GetByID(ctx context.Context, id string) (*models.ApprovalRecord, error) {
	for _, record := range s.records {
		if record.ID == id {
			clone := *record
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *gateStoreStub) LatestProposalGate(ctx context.Context, projectID string) (*models.ApprovalRecord, error) {
	for i := len(s.records) - 1; i >= 0; i-- {
		record := s.records[i]
		if record.ProjectID == projectID && record.DeliverableID == nil {
			clone := *record
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *gateStoreStub) GetByDeliverableID(ctx context.Context, deliverableID string) (*models.ApprovalRecord, error) {
	for _, record := range s.records {
		if record.DeliverableID != nil && *record.DeliverableID == deliverableID {
			clone := *record
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *gateStoreStub) DecideAdvisor(ctx context.Context, id string, status models.DecisionStatus, feedback *string, decidedAt time.Time) error {
	for _, record := range s.records {
		if record.ID == id {
			if record.AdvisorStatus != models.DecisionPendente {
				return sql.ErrNoRows
			}
			record.AdvisorStatus = status
			record.AdvisorFeedback = feedback
			record.AdvisorDecidedAt = &decidedAt
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *gateStoreStub) DecideCoordinator(ctx context.Context, id string, status models.DecisionStatus, feedback *string, decidedAt time.Time) error {
	for _, record := range s.records {
		if record.ID == id {
			if record.AdvisorStatus != models.DecisionAprovado || record.CoordinatorStatus != models.DecisionPendente {
				return sql.ErrNoRows
			}
			record.CoordinatorStatus = status
			record.CoordinatorFeedback = feedback
			record.CoordinatorDecidedAt = &decidedAt
			return nil
		}
	}
	return sql.ErrNoRows
}

type deliverableStoreStub struct {
	deliverables map[string]*models.Deliverable
	gates        *gateStoreStub
}

func newDeliverableStoreStub(gates *gateStoreStub) *deliverableStoreStub {
	return &deliverableStoreStub{deliverables: make(map[string]*models.Deliverable), gates: gates}
}

func (s *deliverableStoreStub) CreateWithApproval(ctx context.Context, deliverable *models.Deliverable, approval *models.ApprovalRecord) error {
	for _, existing := range s.deliverables {
		if existing.ProjectID != deliverable.ProjectID || existing.Kind != deliverable.Kind {
			continue
		}
		gate, err := s.gates.GetByDeliverableID(ctx, existing.ID)
		if err != nil {
			continue
		}
		if gate.AdvisorStatus != models.DecisionRejeitado && gate.CoordinatorStatus == models.DecisionPendente {
			return sql.ErrNoRows
		}
	}
	if deliverable.ID == "" {
		deliverable.ID = uuid.NewString()
	}
	if deliverable.SubmittedAt.IsZero() {
		deliverable.SubmittedAt = time.Now().UTC()
	}
	s.deliverables[deliverable.ID] = deliverable
	approval.ProjectID = deliverable.ProjectID
	approval.DeliverableID = &deliverable.ID
	s.gates.add(approval)
	return nil
}

func (s *deliverableStoreStub) GetByID(ctx context.Context, id string) (*models.Deliverable, error) {
	if deliverable, ok := s.deliverables[id]; ok {
		clone := *deliverable
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (s *deliverableStoreStub) ListByProject(ctx context.Context, projectID string) ([]models.Deliverable, error) {
	out := make([]models.Deliverable, 0)
	for _, deliverable := range s.deliverables {
		if deliverable.ProjectID == projectID {
			out = append(out, *deliverable)
		}
	}
	return out, nil
}

func (s *deliverableStoreStub) LatestByKind(ctx context.Context, projectID string, kind models.DeliverableKind) (*models.Deliverable, error) {
	var latest *models.Deliverable
	for _, deliverable := range s.deliverables {
		if deliverable.ProjectID != projectID || deliverable.Kind != kind {
			continue
		}
		if latest == nil || deliverable.SubmittedAt.After(latest.SubmittedAt) {
			latest = deliverable
		}
	}
	if latest == nil {
		return nil, sql.ErrNoRows
	}
	clone := *latest
	return &clone, nil
}

type presentationStoreStub struct {
	schedules map[string]*models.PresentationSchedule
}

func newPresentationStoreStub() *presentationStoreStub {
	return &presentationStoreStub{schedules: make(map[string]*models.PresentationSchedule)}
}

func presentationKey(projectID string, event models.PresentationEvent) string {
	return projectID + "/" + string(event)
}

func (s *presentationStoreStub) Upsert(ctx context.Context, schedule *models.PresentationSchedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	schedule.EvaluationStatus = models.DecisionPendente
	schedule.EvaluationFeedback = nil
	schedule.EvaluatedAt = nil
	clone := *schedule
	s.schedules[presentationKey(schedule.ProjectID, schedule.Event)] = &clone
	return nil
}

func (s *presentationStoreStub) Get(ctx context.Context, projectID string, event models.PresentationEvent) (*models.PresentationSchedule, error) {
	if schedule, ok := s.schedules[presentationKey(projectID, event)]; ok {
		clone := *schedule
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (s *presentationStoreStub) Evaluate(ctx context.Context, projectID string, event models.PresentationEvent, status models.DecisionStatus, feedback *string, decidedAt time.Time) error {
	schedule, ok := s.schedules[presentationKey(projectID, event)]
	if !ok || schedule.EvaluationStatus != models.DecisionPendente {
		return sql.ErrNoRows
	}
	schedule.EvaluationStatus = status
	schedule.EvaluationFeedback = feedback
	schedule.EvaluatedAt = &decidedAt
	return nil
}

type reportStoreStub struct {
	reports  []*models.MonthlyReport
	messages map[string][]models.ReportMessage
}

func newReportStoreStub() *reportStoreStub {
	return &reportStoreStub{messages: make(map[string][]models.ReportMessage)}
}

func (s *reportStoreStub) Create(ctx context.Context, report *models.MonthlyReport) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	s.reports = append(s.reports, report)
	return nil
}

func (s *reportStoreStub) GetByID(ctx context.Context, id string) (*models.MonthlyReport, error) {
	for _, report := range s.reports {
		if report.ID == id {
			clone := *report
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *reportStoreStub) ListByProject(ctx context.Context, projectID string) ([]models.MonthlyReport, error) {
	out := make([]models.MonthlyReport, 0)
	for _, report := range s.reports {
		if report.ProjectID == projectID {
			out = append(out, *report)
		}
	}
	return out, nil
}

func (s *reportStoreStub) AddMessage(ctx context.Context, message *models.ReportMessage) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	s.messages[message.ReportID] = append(s.messages[message.ReportID], *message)
	return nil
}

func (s *reportStoreStub) ListMessages(ctx context.Context, reportID string) ([]models.ReportMessage, error) {
	return s.messages[reportID], nil
}

type certificateStoreStub struct {
	byProject map[string]*models.Certificate
}

func newCertificateStoreStub() *certificateStoreStub {
	return &certificateStoreStub{byProject: make(map[string]*models.Certificate)}
}

func (s *certificateStoreStub) Upsert(ctx context.Context, certificate *models.Certificate) error {
	if certificate.IssuedAt.IsZero() {
		certificate.IssuedAt = time.Now().UTC()
	}
	if existing, ok := s.byProject[certificate.ProjectID]; ok {
		certificate.ID = existing.ID
	} else if certificate.ID == "" {
		certificate.ID = uuid.NewString()
	}
	clone := *certificate
	s.byProject[certificate.ProjectID] = &clone
	return nil
}

func (s *certificateStoreStub) GetByProject(ctx context.Context, projectID string) (*models.Certificate, error) {
	if certificate, ok := s.byProject[projectID]; ok {
		clone := *certificate
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

type userStoreStub struct {
	users map[string]*models.User
}

func newUserStoreStub(users ...*models.User) *userStoreStub {
	stub := &userStoreStub{users: make(map[string]*models.User)}
	for _, user := range users {
		stub.users[user.ID] = user
	}
	return stub
}

func (s *userStoreStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := s.users[id]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

type auditRecorderStub struct {
	entries []*models.AuditLog
}

func (s *auditRecorderStub) Record(entry *models.AuditLog) {
	s.entries = append(s.entries, entry)
}

type windowStub struct {
	window *models.EnrollmentWindow
	err    error
}

func (s *windowStub) Window(ctx context.Context) (*models.EnrollmentWindow, error) {
	if s.err != nil {
		return nil, s.err
	}
	clone := *s.window
	return &clone, nil
}

type rendererStub struct {
	calls int
	last  export.CertificateData
}

func (s *rendererStub) Render(data export.CertificateData) ([]byte, error) {
	s.calls++
	s.last = data
	return []byte("%PDF-1.4"), nil
}

type storageStub struct {
	saved map[string][]byte
}

func newStorageStub() *storageStub {
	return &storageStub{saved: make(map[string][]byte)}
}

func (s *storageStub) Save(filename string, data []byte) (string, error) {
	s.saved[filename] = data
	return filename, nil
}
