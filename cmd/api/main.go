package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/icdev-br/pic-portal-api/api/swagger"
	"github.com/icdev-br/pic-portal-api/internal/handler"
	"github.com/icdev-br/pic-portal-api/internal/middleware"
	"github.com/icdev-br/pic-portal-api/internal/models"
	"github.com/icdev-br/pic-portal-api/internal/repository"
	"github.com/icdev-br/pic-portal-api/internal/service"
	"github.com/icdev-br/pic-portal-api/pkg/cache"
	"github.com/icdev-br/pic-portal-api/pkg/config"
	"github.com/icdev-br/pic-portal-api/pkg/database"
	"github.com/icdev-br/pic-portal-api/pkg/export"
	"github.com/icdev-br/pic-portal-api/pkg/jobs"
	"github.com/icdev-br/pic-portal-api/pkg/logger"
	corsmiddleware "github.com/icdev-br/pic-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/icdev-br/pic-portal-api/pkg/middleware/requestid"
	"github.com/icdev-br/pic-portal-api/pkg/storage"
)

// @title PIC Portal API
// @version 0.1.0
// @description Research program portal: proposals, approvals, stages, deliverables, presentations, monthly reports and certificates
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	uploads, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare uploads directory", "error", err)
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	approvalRepo := repository.NewApprovalRepository(db)
	deliverableRepo := repository.NewDeliverableRepository(db)
	presentationRepo := repository.NewPresentationRepository(db)
	reportRepo := repository.NewMonthlyReportRepository(db)
	certificateRepo := repository.NewCertificateRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()

	auditSvc := service.NewAuditService(userRepo, logr, jobs.QueueConfig{
		Workers:    cfg.Audit.Workers,
		BufferSize: cfg.Audit.BufferSize,
		MaxRetries: cfg.Audit.MaxRetries,
		RetryDelay: cfg.Audit.RetryDelay,
		Logger:     logr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	auditSvc.Start(ctx)
	defer auditSvc.Stop()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "pic-portal-api",
	})

	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, cacheRepo, logr, service.EnrollmentConfig{
		ActiveYear:       cfg.Enrollment.ActiveYear,
		FirstReportMonth: cfg.Enrollment.FirstReportMonth,
		WindowCacheTTL:   cfg.Enrollment.WindowCacheTTL,
	})

	approvalSvc := service.NewApprovalService(approvalRepo, logr)
	proposalSvc := service.NewProposalService(projectRepo, approvalRepo, approvalSvc, enrollmentSvc, auditSvc, metricsSvc, validate, logr)
	stageSvc := service.NewStageService(projectRepo, auditSvc, metricsSvc, logr)
	deliverableSvc := service.NewDeliverableService(deliverableRepo, approvalRepo, projectRepo, approvalSvc, auditSvc, metricsSvc, validate, logr)
	presentationSvc := service.NewPresentationService(presentationRepo, projectRepo, auditSvc, metricsSvc, validate, logr)
	reportSvc := service.NewMonthlyReportService(reportRepo, projectRepo, enrollmentSvc, auditSvc, validate, logr)

	certificateSvc := service.NewCertificateService(
		certificateRepo, projectRepo, deliverableRepo, approvalRepo, userRepo,
		export.NewCertificateRenderer(), uploads, auditSvc, metricsSvc, logr,
		service.CertificateConfig{ProgramName: cfg.Certificates.ProgramName, Institution: cfg.Certificates.Institution},
	)

	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)
	fileSvc := service.NewFileService(certificateRepo, signer, uploads, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	proposalHandler := handler.NewProposalHandler(proposalSvc)
	projectHandler := handler.NewProjectHandler(stageSvc)
	deliverableHandler := handler.NewDeliverableHandler(deliverableSvc)
	presentationHandler := handler.NewPresentationHandler(presentationSvc)
	reportHandler := handler.NewMonthlyReportHandler(reportSvc)
	certificateHandler := handler.NewCertificateHandler(certificateSvc)
	fileHandler := handler.NewFileHandler(fileSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(reqidmiddleware.Middleware())
	router.Use(logger.GinMiddleware(logr))
	router.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	router.Use(middleware.Metrics(metricsSvc))

	router.GET("/health", metricsHandler.Health)
	router.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Signed downloads carry their own credentials in the token.
	router.GET("/files/:token", fileHandler.Download)

	api := router.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.GET("/enrollment/window", enrollmentHandler.Window)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	authed.POST("/auth/logout", authHandler.Logout)
	authed.POST("/auth/change-password", authHandler.ChangePassword)
	authed.GET("/auth/me", authHandler.Me)

	authed.PATCH("/enrollment/window",
		middleware.RequireRoles(models.RoleCoordinator),
		middleware.Audit(auditSvc, models.AuditActionWindowUpdate, "enrollment"),
		enrollmentHandler.UpdateWindow)

	authed.POST("/proposals",
		middleware.RequireRoles(models.RoleStudent),
		middleware.Audit(auditSvc, models.AuditActionProposalSubmit, "proposal"),
		proposalHandler.Submit)
	authed.PUT("/proposals/:id",
		middleware.RequireRoles(models.RoleStudent),
		middleware.Audit(auditSvc, models.AuditActionProposalSubmit, "proposal"),
		proposalHandler.Resubmit)
	authed.POST("/proposals/:id/decision",
		middleware.RequireRoles(models.RoleAdvisor, models.RoleCoordinator),
		middleware.Audit(auditSvc, models.AuditActionProposalDecide, "proposal"),
		proposalHandler.Decide)

	authed.GET("/projects", projectHandler.List)
	authed.GET("/projects/:id", projectHandler.Get)
	authed.POST("/projects/:id/reset",
		middleware.RequireRoles(models.RoleStudent),
		middleware.Audit(auditSvc, models.AuditActionProjectReset, "project"),
		proposalHandler.Reset)
	authed.PATCH("/projects/:id/stage",
		middleware.RequireRoles(models.RoleCoordinator),
		middleware.Audit(auditSvc, models.AuditActionStageOverride, "project"),
		projectHandler.OverrideStage)
	authed.PATCH("/projects/stage/bulk",
		middleware.RequireRoles(models.RoleCoordinator),
		middleware.Audit(auditSvc, models.AuditActionStageBulkOverride, "project"),
		projectHandler.BulkStage)

	authed.POST("/projects/:id/deliverables",
		middleware.RequireRoles(models.RoleStudent),
		middleware.Audit(auditSvc, models.AuditActionDeliverableSubmit, "deliverable"),
		deliverableHandler.Submit)
	authed.GET("/projects/:id/deliverables", deliverableHandler.List)
	authed.POST("/deliverables/:id/review",
		middleware.RequireRoles(models.RoleAdvisor, models.RoleCoordinator),
		middleware.Audit(auditSvc, models.AuditActionDeliverableReview, "deliverable"),
		deliverableHandler.Review)

	authed.GET("/projects/:id/presentations/:event", presentationHandler.Get)
	authed.PATCH("/projects/:id/presentations/:event",
		middleware.RequireRoles(models.RoleCoordinator),
		middleware.Audit(auditSvc, models.AuditActionPresentationSchedule, "presentation"),
		presentationHandler.Schedule)
	authed.POST("/projects/:id/presentations/:event/evaluation",
		middleware.RequireRoles(models.RoleCoordinator),
		middleware.Audit(auditSvc, models.AuditActionPresentationEvaluate, "presentation"),
		presentationHandler.Evaluate)

	authed.POST("/projects/:id/monthly-reports",
		middleware.RequireRoles(models.RoleAdvisor),
		middleware.Audit(auditSvc, models.AuditActionReportAppend, "monthly_report"),
		reportHandler.Append)
	authed.GET("/projects/:id/monthly-reports", reportHandler.Ledger)
	authed.POST("/monthly-reports/:id/messages",
		middleware.RequireRoles(models.RoleAdvisor, models.RoleCoordinator),
		middleware.Audit(auditSvc, models.AuditActionReportMessage, "monthly_report"),
		reportHandler.AddMessage)

	authed.GET("/projects/:id/certificate", certificateHandler.Get)
	authed.POST("/projects/:id/certificate",
		middleware.RequireRoles(models.RoleCoordinator),
		middleware.Audit(auditSvc, models.AuditActionCertificateIssue, "certificate"),
		certificateHandler.Issue)
	authed.POST("/projects/:id/certificate/link", fileHandler.CertificateLink)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: router}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logr.Sugar().Warnw("server shutdown failed", "error", err)
		}
	}()

	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
	logr.Sugar().Infow("server stopped")
}
