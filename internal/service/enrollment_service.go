package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/icdev-br/pic-portal-api/internal/dto"
	"github.com/icdev-br/pic-portal-api/internal/models"
	appErrors "github.com/icdev-br/pic-portal-api/pkg/errors"
)

type enrollmentStore interface {
	GetWindow(ctx context.Context, year int) (*models.EnrollmentWindow, error)
	UpsertWindow(ctx context.Context, window *models.EnrollmentWindow) error
}

type windowCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// EnrollmentConfig tunes the active cycle and window caching.
type EnrollmentConfig struct {
	ActiveYear       int
	FirstReportMonth string
	WindowCacheTTL   time.Duration
}

// EnrollmentService exposes the enrollment window for the active cycle. The
// window is read on every proposal submission, so lookups go through Redis.
type EnrollmentService struct {
	repo   enrollmentStore
	cache  windowCache
	logger *zap.Logger
	config EnrollmentConfig
}

// NewEnrollmentService constructs the service.
func NewEnrollmentService(repo enrollmentStore, cache windowCache, logger *zap.Logger, config EnrollmentConfig) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.WindowCacheTTL <= 0 {
		config.WindowCacheTTL = time.Minute
	}
	return &EnrollmentService{repo: repo, cache: cache, logger: logger, config: config}
}

func (s *EnrollmentService) cacheKey() string {
	return fmt.Sprintf("enrollment:window:%d", s.config.ActiveYear)
}

// Window returns the enrollment window for the active cycle. A cycle with no
// stored row is closed by default.
func (s *EnrollmentService) Window(ctx context.Context) (*models.EnrollmentWindow, error) {
	if s.cache != nil {
		var cached models.EnrollmentWindow
		if err := s.cache.Get(ctx, s.cacheKey(), &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("enrollment window cache read failed", zap.Error(err))
		}
	}

	window, err := s.repo.GetWindow(ctx, s.config.ActiveYear)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			window = &models.EnrollmentWindow{
				Year:             s.config.ActiveYear,
				Open:             false,
				FirstReportMonth: s.config.FirstReportMonth,
			}
		} else {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment window")
		}
	}
	if window.FirstReportMonth == "" {
		window.FirstReportMonth = s.config.FirstReportMonth
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, s.cacheKey(), window, s.config.WindowCacheTTL); err != nil {
			s.logger.Warn("enrollment window cache write failed", zap.Error(err))
		}
	}

	return window, nil
}

// View shapes the window for API consumers.
func (s *EnrollmentService) View(ctx context.Context) (*dto.WindowView, error) {
	window, err := s.Window(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.WindowView{Open: window.Open, ActiveYear: window.Year}, nil
}

// UpdateWindow opens or closes the active cycle and optionally re-anchors the
// monthly-report calendar. Coordinator only; RBAC enforced at the route.
func (s *EnrollmentService) UpdateWindow(ctx context.Context, req dto.UpdateWindowRequest) (*models.EnrollmentWindow, error) {
	if req.Open == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "open is required")
	}
	firstReportMonth := req.FirstReportMonth
	if firstReportMonth == "" {
		current, err := s.Window(ctx)
		if err != nil {
			return nil, err
		}
		firstReportMonth = current.FirstReportMonth
	} else if _, err := time.Parse("2006-01", firstReportMonth); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "first_report_month must use the YYYY-MM format")
	}

	window := &models.EnrollmentWindow{
		Year:             s.config.ActiveYear,
		Open:             *req.Open,
		FirstReportMonth: firstReportMonth,
	}
	if err := s.repo.UpsertWindow(ctx, window); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment window")
	}

	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, "enrollment:window:*"); err != nil {
			s.logger.Warn("enrollment window cache invalidation failed", zap.Error(err))
		}
	}

	return window, nil
}
