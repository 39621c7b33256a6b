package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/icdev-br/pic-portal-api/internal/models"
	"github.com/icdev-br/pic-portal-api/pkg/jobs"
)

type auditLogStore interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuditService writes audit trail entries off the request path through the
// background job queue; a slow database write never delays a mutation.
type AuditService struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewAuditService wires the audit queue to its persistence handler.
func NewAuditService(store auditLogStore, logger *zap.Logger, cfg jobs.QueueConfig) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Logger = logger
	handler := func(ctx context.Context, job jobs.Job) error {
		entry, ok := job.Payload.(*models.AuditLog)
		if !ok {
			return fmt.Errorf("unexpected audit payload type %T", job.Payload)
		}
		return store.CreateAuditLog(ctx, entry)
	}
	return &AuditService{
		queue:  jobs.NewQueue("audit", handler, cfg),
		logger: logger,
	}
}

// Start launches the queue workers.
func (s *AuditService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *AuditService) Stop() {
	s.queue.Stop()
}

// Record enqueues an audit entry. Failures are logged, never surfaced to the
// caller: audit loss must not fail the guarded operation.
func (s *AuditService) Record(entry *models.AuditLog) {
	if entry == nil {
		return
	}
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    entry.Action,
		Payload: entry,
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue audit entry", zap.String("action", entry.Action), zap.Error(err))
	}
}
