package main

import (
	"time"

	"github.com/ethosradar/backend/internal/config"
	"github.com/ethosradar/backend/internal/ethos"
	"github.com/ethosradar/backend/internal/models"
	"github.com/ethosradar/backend/internal/r4r"
	"github.com/ethosradar/backend/internal/services"
	"github.com/ethosradar/backend/internal/utils"
	"github.com/ethosradar/backend/pkg/logger"
	"gorm.io/gorm"
)

// appServices holds all initialized services needed by the application.
type appServices struct {
	cfg       *config.Config
	db        *gorm.DB
	ethos     *ethos.Client
	cache     services.Cache
	hub       *services.SSEHub
	usage     *services.AIUsageService
	analysis  *services.AnalysisService
	profiles  *services.ProfileService
	stats     *services.StatsService
	auth      *services.AuthService
	scheduler *services.Scheduler
	taskQueue services.TaskQueue
	worker    *services.Worker
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	db := models.GetDB()

	client := ethos.NewClient(&cfg.Ethos)
	cache := services.NewCache(cfg, db)
	hub := services.GetSSEHub()
	usage := services.NewAIUsageService(db)

	opts := []r4r.Option{
		r4r.WithPageSize(cfg.Analysis.PageSize),
		r4r.WithMaxReviews(cfg.Analysis.MaxReviews),
		r4r.WithMaxCandidates(cfg.Analysis.MaxCandidates),
		r4r.WithWorkers(cfg.Analysis.Workers),
	}
	if cfg.LLM.Enabled {
		logger.Infof("[Bootstrap] Content scorer enabled: provider=%s model=%s", cfg.LLM.Provider, cfg.LLM.Model)
		opts = append(opts,
			r4r.WithContentScorer(services.NewContentScorer(&cfg.LLM, usage)),
			r4r.WithMaxLLMPairs(cfg.LLM.MaxPairs),
		)
	}
	analyzer := r4r.NewAnalyzer(client, opts...)

	analysis := services.NewAnalysisService(db, analyzer, cache, hub,
		time.Duration(cfg.Cache.AnalysisTTLSeconds)*time.Second)
	analysis.SetRunTimeout(time.Duration(cfg.Analysis.RunTimeoutSeconds) * time.Second)
	profiles := services.NewProfileService(client, cache,
		time.Duration(cfg.Cache.ProfileTTLSeconds)*time.Second)

	// Initialize task queue (uses Redis if enabled, otherwise sync mode)
	taskQueue := services.InitTaskQueue(cfg)
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(analysis.ProcessTask)
	}

	var worker *services.Worker
	if taskQueue.IsAsync() {
		worker = services.NewWorker(&cfg.Redis, cfg.Analysis.Workers)
		if worker != nil {
			worker.SetProcessor(analysis.ProcessTask)
			worker.Start()
		}
	}

	scheduler := services.NewScheduler(db, cache, usage, cfg.Analysis.LogRetentionDays)
	if err := scheduler.Start(); err != nil {
		logger.Warn().Err(err).Msg("Failed to start scheduler")
	}

	return &appServices{
		cfg:       cfg,
		db:        db,
		ethos:     client,
		cache:     cache,
		hub:       hub,
		usage:     usage,
		analysis:  analysis,
		profiles:  profiles,
		stats:     services.NewStatsService(db, usage),
		auth:      services.NewAuthService(&cfg.Admin, &cfg.JWT),
		scheduler: scheduler,
		taskQueue: taskQueue,
		worker:    worker,
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.scheduler.Stop()
	logger.Info().Msg("Scheduler stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		s.taskQueue.Close()
	}
	if closer, ok := s.cache.(interface{ Close() error }); ok {
		closer.Close()
	}
	if sqlDB, err := s.db.DB(); err == nil {
		sqlDB.Close()
	}
}
