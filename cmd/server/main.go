package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mvocoding/testmateai/internal/ai"
	"github.com/mvocoding/testmateai/internal/cache"
	"github.com/mvocoding/testmateai/internal/config"
	"github.com/mvocoding/testmateai/internal/handlers"
	"github.com/mvocoding/testmateai/internal/repositories/postgres"
	"github.com/mvocoding/testmateai/internal/services"
	"github.com/mvocoding/testmateai/internal/utils"
	"github.com/mvocoding/testmateai/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		os.Exit(1)
	}

	var logger utils.Logger
	if cfg.Environment == "production" {
		logger = utils.NewDefaultLogger()
	} else {
		logger = utils.NewDevelopmentLogger()
	}

	logger.Info("Starting testmate service", "environment", cfg.Environment, "port", cfg.Port)

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.LogError(err, "Failed to initialize database")
		os.Exit(1)
	}

	var cacheService cache.CacheService = cache.NoopCache{}
	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("Redis unavailable, caching disabled", "error", err)
	} else {
		cacheService = cache.NewRedisCache(redisClient, logger)
		defer redisClient.Close()
	}

	publisher, err := cfg.Events.CreateEventPublisher(utils.ToSlogLogger(logger))
	if err != nil {
		logger.LogError(err, "Failed to create event publisher")
		os.Exit(1)
	}
	defer publisher.Close()

	repo := postgres.NewRepository(db)
	validator := utils.NewValidator()

	aiClient := ai.NewClient(ai.ClientConfig{
		BaseURL: cfg.AIBaseURL,
		APIKey:  cfg.AIAPIKey,
		Timeout: cfg.AITimeout,
	})
	feedback := ai.NewFeedbackGenerator(aiClient, logger)

	submitter := services.NewSubmissionService(feedback, logger, cfg.AIMaxConcurrency)
	activities := services.NewActivityService(repo, publisher, validator, logger)
	sessions := services.NewSessionService(repo, submitter, activities, publisher, nil, logger)
	practice := services.NewPracticeService(repo, cacheService, logger)
	chat := services.NewChatService(aiClient, activities, logger)
	dashboard := services.NewDashboardService(repo, logger)
	vocabulary := services.NewVocabularyService(repo, logger)
	importExport := services.NewImportExportService(repo, logger)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(utils.LoggerMiddleware(logger), gin.Recovery())

	handlerManager := handlers.NewHandlerManager(handlers.Services{
		Session:      sessions,
		Practice:     practice,
		Activity:     activities,
		Chat:         chat,
		Dashboard:    dashboard,
		Vocabulary:   vocabulary,
		ImportExport: importExport,
	}, logger)
	handlerManager.SetupRoutes(router)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.LogError(err, "Server failed")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.LogError(err, "Forced shutdown")
	}
}
