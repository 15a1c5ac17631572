package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/campus-dcv-api/api/swagger"
	"github.com/noah-isme/campus-dcv-api/internal/handler"
	"github.com/noah-isme/campus-dcv-api/internal/middleware"
	"github.com/noah-isme/campus-dcv-api/internal/repository"
	"github.com/noah-isme/campus-dcv-api/internal/service"
	"github.com/noah-isme/campus-dcv-api/pkg/cache"
	"github.com/noah-isme/campus-dcv-api/pkg/config"
	"github.com/noah-isme/campus-dcv-api/pkg/database"
	"github.com/noah-isme/campus-dcv-api/pkg/jobs"
	"github.com/noah-isme/campus-dcv-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-dcv-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-dcv-api/pkg/middleware/requestid"
)

// @title Campus DCV API
// @version 0.1.0
// @description Schedule expansion and DCV setpoint synchronization pipeline
// @BasePath /
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
	sugar := logr.Sugar()

	sourceLoc, err := time.LoadLocation(cfg.Pipeline.SourceTimezone)
	if err != nil {
		sugar.Fatalw("invalid source timezone", "tz", cfg.Pipeline.SourceTimezone, "error", err)
	}
	controllerLoc, err := time.LoadLocation(cfg.Pipeline.ControllerTimezone)
	if err != nil {
		sugar.Fatalw("invalid controller timezone", "tz", cfg.Pipeline.ControllerTimezone, "error", err)
	}

	appDB, err := database.NewPostgres(cfg.Database)
	if err != nil {
		sugar.Fatalw("failed to connect application store", "error", err)
	}
	defer appDB.Close()

	queueDB, err := database.NewPostgres(cfg.CommandQueue)
	if err != nil {
		sugar.Fatalw("failed to connect command queue store", "error", err)
	}
	defer queueDB.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		sugar.Fatalw("failed to connect redis", "error", err)
	}
	defer redisClient.Close()

	// Repositories.
	termRepo := repository.NewTermRepository(appDB)
	sourceRepo := repository.NewScheduleSourceRepository(appDB)
	referenceRepo := repository.NewReferenceRepository(appDB)
	occurrenceRepo := repository.NewOccurrenceRepository(appDB)
	commandRepo := repository.NewCommandRepository(queueDB)
	auditRepo := repository.NewAuditRepository(appDB)
	runRepo := repository.NewSyncRunRepository(appDB)
	lockRepo := repository.NewLockRepository(redisClient)

	// Services.
	metricsSvc := service.NewMetricsService()
	expanderSvc := service.NewExpanderService(occurrenceRepo, sourceLoc, cfg.Pipeline, metricsSvc, logr)
	demandSvc := service.NewDemandService(logr)
	synchronizerSvc := service.NewSynchronizerService(commandRepo, auditRepo, controllerLoc, cfg.Pipeline, metricsSvc, logr)
	pipelineSvc := service.NewPipelineService(termRepo, referenceRepo, sourceRepo, occurrenceRepo,
		expanderSvc, demandSvc, synchronizerSvc, runRepo, lockRepo, nil, metricsSvc, cfg.Pipeline, logr)
	reportingSvc := service.NewReportingService(occurrenceRepo, commandRepo, auditRepo, runRepo, logr)

	// Handlers.
	syncHandler := handler.NewSyncHandler(pipelineSvc, reportingSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Background scheduler: periodic sweeps over the configured buildings.
	syncQueue := jobs.NewQueue("sync", func(ctx context.Context, job jobs.Job) error {
		buildingID, _ := job.Payload.(string)
		if buildingID == "" {
			return fmt.Errorf("sync job %s has no building id", job.ID)
		}
		result, err := pipelineSvc.RunSync(ctx, service.TriggerSyncRequest{BuildingID: buildingID})
		if err != nil {
			return err
		}
		sugar.Infow("scheduled sync finished", "building_id", buildingID,
			"processed", result.Processed, "skipped", result.Skipped, "errors", result.Errors)
		return nil
	}, jobs.QueueConfig{Workers: 2, Logger: logr})
	syncQueue.Start(ctx)
	defer syncQueue.Stop()

	if cfg.Pipeline.SyncInterval > 0 && len(cfg.Pipeline.Buildings) > 0 {
		go runScheduler(ctx, syncQueue, cfg.Pipeline, logr)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	sync := r.Group("/sync")
	{
		sync.POST("/runs", syncHandler.TriggerRun)
		sync.GET("/runs", syncHandler.ListRuns)
		sync.POST("/exams", syncHandler.TriggerExamRun)
		sync.GET("/occurrences", syncHandler.ListOccurrences)
		sync.GET("/commands", syncHandler.ListCommands)
		sync.GET("/commands/:id", syncHandler.GetCommand)
		sync.GET("/audits", syncHandler.ListAudits)
		sync.GET("/audits/export", syncHandler.ExportAudits)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		sugar.Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	sugar.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("server shutdown failed", "error", err)
	}
}

// runScheduler enqueues a sync job per configured building every interval.
// Overlap protection lives in the per-building run lock, not here.
func runScheduler(ctx context.Context, queue *jobs.Queue, cfg config.PipelineConfig, logr *zap.Logger) {
	sugar := logr.Sugar()
	ticker := time.NewTicker(cfg.SyncInterval)
	defer ticker.Stop()

	sugar.Infow("scheduler started", "interval", cfg.SyncInterval, "buildings", len(cfg.Buildings))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, buildingID := range cfg.Buildings {
				job := jobs.Job{
					ID:      uuid.NewString(),
					Type:    "sync",
					Payload: buildingID,
				}
				if err := queue.Enqueue(job); err != nil {
					sugar.Warnw("failed to enqueue sync job", "building_id", buildingID, "error", err)
				}
			}
		}
	}
}
