package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/patil-rushikesh/FDW-backend/api/swagger"
	"github.com/patil-rushikesh/FDW-backend/internal/handler"
	"github.com/patil-rushikesh/FDW-backend/internal/interaction"
	"github.com/patil-rushikesh/FDW-backend/internal/middleware"
	"github.com/patil-rushikesh/FDW-backend/internal/repository"
	"github.com/patil-rushikesh/FDW-backend/internal/scoring"
	"github.com/patil-rushikesh/FDW-backend/internal/service"
	"github.com/patil-rushikesh/FDW-backend/pkg/cache"
	"github.com/patil-rushikesh/FDW-backend/pkg/config"
	"github.com/patil-rushikesh/FDW-backend/pkg/database"
	"github.com/patil-rushikesh/FDW-backend/pkg/export"
	"github.com/patil-rushikesh/FDW-backend/pkg/jobs"
	"github.com/patil-rushikesh/FDW-backend/pkg/logger"
	"github.com/patil-rushikesh/FDW-backend/pkg/mailer"
	corsmiddleware "github.com/patil-rushikesh/FDW-backend/pkg/middleware/cors"
	reqidmiddleware "github.com/patil-rushikesh/FDW-backend/pkg/middleware/requestid"
	"github.com/patil-rushikesh/FDW-backend/pkg/storage"
)

// @title FDW Appraisal API
// @version 1.0.0
// @description Faculty self-appraisal scoring, verification and review workflow
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	policy := scoring.Policy{
		VerifiedWeight:    cfg.Scoring.VerifiedWeight,
		InteractionWeight: cfg.Scoring.InteractionWeight,
		InteractionScale:  cfg.Scoring.InteractionScale,
		Ceiling:           cfg.Scoring.Ceiling,
		DesignationBonus:  cfg.Scoring.DesignationBonus,
	}
	if err := policy.Validate(); err != nil {
		return fmt.Errorf("scoring policy: %w", err)
	}
	raters, err := interaction.ParseRoles(cfg.Interaction.RequiredRaters)
	if err != nil {
		return fmt.Errorf("interaction raters: %w", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()
	applied, err := database.Migrate(ctx, db)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logr.Info("schema ready", zap.Strings("migrations", applied))

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	validate := validator.New()
	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.FinalScores.CacheTTL, logr, redisClient != nil)

	documents := repository.NewDocumentRepository(db)
	users := repository.NewUserRepository(db)
	directory := service.NewDirectory(users)
	store := service.NewRecordStore(documents, logr,
		service.WithStoreMetrics(metrics),
		service.WithStoreCache(cacheSvc),
		service.WithMaxWriteRetries(cfg.Store.MaxWriteRetries),
	)

	sender := mailer.New(mailer.Config{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
		SkipTLS:  cfg.Mail.SkipTLS,
	}, logr)
	notifications := service.NewNotificationService(sender, logr, service.WithMailBranding(cfg.Mail.Institute, cfg.Mail.LoginURL))
	mailQueue := jobs.NewQueue("mail", notifications.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Mail.Workers,
		MaxRetries: cfg.Mail.Retries,
		Logger:     logr,
	})
	service.WithNotificationQueue(mailQueue)(notifications)

	files, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		return fmt.Errorf("report storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	pdf := export.NewPDFExporter(cfg.Mail.Institute)
	reports := service.NewReportService(store, directory, files, signer, pdf, policy, raters, service.ReportConfig{
		APIPrefix:       cfg.APIPrefix,
		RetainFor:       cfg.Reports.RetainFor,
		CleanupInterval: cfg.Reports.CleanupInterval,
	}, logr, service.WithReportMetrics(metrics))
	reportQueue := jobs.NewQueue("reports", reports.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
	})
	service.WithReportQueue(reportQueue)(reports)

	mailQueue.Start(ctx)
	reportQueue.Start(ctx)
	reports.StartCleanup(ctx)
	defer mailQueue.Stop()
	defer reportQueue.Stop()

	auth := service.NewAuthService(users, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "fdw-api",
	})
	appraisals := service.NewAppraisalService(store, users, directory, notifications, validate, logr)
	workflow := service.NewWorkflowService(store, users, validate, logr,
		service.WithWorkflowMetrics(metrics),
		service.WithReportScheduler(reports),
	)
	interactions := service.NewInteractionService(store, users, raters, validate, logr,
		service.WithInteractionMetrics(metrics),
		service.WithInteractionReports(reports),
	)
	finalScores := service.NewFinalScoreService(store, directory, policy, raters, logr,
		service.WithFinalScoreCache(cacheSvc, cfg.FinalScores.CacheTTL),
		service.WithFinalScoreExporters(export.NewCSVExporter(), pdf),
	)
	committees := service.NewCommitteeService(store, directory, users, validate, logr)
	externals := service.NewExternalService(store, users, notifications, validate, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, cfg.APIPrefix+"/metrics", cfg.APIPrefix+"/health"))

	handler.Register(r, cfg.APIPrefix, middleware.JWT(auth), handler.Handlers{
		Auth:      handler.NewAuthHandler(auth),
		Appraisal: handler.NewAppraisalHandler(appraisals),
		Workflow:  handler.NewWorkflowHandler(workflow, interactions),
		Report:    handler.NewReportHandler(finalScores, reports),
		Reviewer:  handler.NewReviewerHandler(committees, externals),
		Metrics: handler.NewMetricsHandler(metrics,
			handler.Dependency{Name: "postgres", Ping: db.PingContext},
			handler.Dependency{Name: "redis", Ping: cacheRepo.Ping},
		),
	})
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
