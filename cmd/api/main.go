package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"resumeBuilder/internal/ai"
	"resumeBuilder/internal/api"
	"resumeBuilder/internal/auth"
	"resumeBuilder/internal/config"
	"resumeBuilder/internal/database"
	"resumeBuilder/internal/github"
	"resumeBuilder/internal/jobs"
	"resumeBuilder/internal/render"
	"resumeBuilder/internal/resume"
	"resumeBuilder/internal/storage"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}
	logger.Info("database ready",
		slog.String("host", cfg.Database.Host),
		slog.String("db", cfg.Database.Name),
	)

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
	defer asynqClient.Close()

	authService, err := auth.NewAuthServiceFromFiles(
		cfg.Auth.PrivateKeyPath,
		cfg.Auth.PublicKeyPath,
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenTTL,
	)
	if err != nil {
		log.Fatalf("init auth service: %v", err)
	}

	resumes := resume.NewService(database.NewResumeStore(db))
	exports := database.NewExportStore(db)
	renderer := render.New(render.NewRodPrinter(cfg.Render.ChromeBin, logger), render.Options{
		Timeout:       cfg.Render.Timeout,
		MaxConcurrent: cfg.Render.MaxConcurrent,
		Logger:        logger,
	})

	var model ai.Model
	if m := ai.NewOpenAIModel(cfg.AI.APIKey, cfg.AI.Model); m != nil {
		model = m
	}
	analyzer := ai.NewAnalyzer(model, logger)
	recommender := jobs.NewRecommender(analyzer, jobs.Options{
		AppID:   cfg.Jobs.AppID,
		AppKey:  cfg.Jobs.AppKey,
		BaseURL: cfg.Jobs.BaseURL,
		Country: cfg.Jobs.Country,
		Logger:  logger,
	})
	githubClient := github.NewClient(cfg.GitHub.BaseURL, cfg.GitHub.Token, nil, logger)

	router := api.NewRouter(cfg, logger)
	api.RegisterRoutes(router, api.Handlers{
		Auth:     api.NewAuthHandler(db, authService, redisClient, logger, cfg.Auth.LoginMaxAttempt, cfg.Auth.LoginLockTTL, cfg.Auth.CookieSecure),
		Resumes:  api.NewResumeHandler(resumes, storageClient, exports, logger),
		PDF:      api.NewPDFHandler(resumes, renderer, logger),
		Exports:  api.NewExportHandler(resumes, exports, asynqClient, storageClient, cfg.Worker.MaxRetry, logger),
		Insights: api.NewInsightsHandler(resumes, analyzer, recommender, githubClient, logger),
		Ws:       api.NewWsHandler(redisClient, authService, logger, cfg.API.Origins()),
	}, authService)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("api listening", slog.String("addr", srv.Addr), slog.Bool("ai_enabled", analyzer.Enabled()), slog.Bool("jobs_enabled", recommender.Configured()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start api server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Render.Timeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("api shutdown failed", slog.Any("error", err))
	}
	logger.Info("api stopped")
}
