package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/recruitment-portal/internal/config"
	"github.com/stemsi/recruitment-portal/internal/database"
	"github.com/stemsi/recruitment-portal/internal/handler"
	"github.com/stemsi/recruitment-portal/internal/logger"
	"github.com/stemsi/recruitment-portal/internal/questionbank"
	"github.com/stemsi/recruitment-portal/internal/repository"
	"github.com/stemsi/recruitment-portal/internal/router"
	"github.com/stemsi/recruitment-portal/internal/service"
	"github.com/stemsi/recruitment-portal/internal/session"
	"github.com/stemsi/recruitment-portal/internal/validator"
	"github.com/stemsi/recruitment-portal/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("document_store", cfg.DocumentStore).
		Time("test_start", cfg.TestStartTime).
		Dur("test_duration", cfg.TestDuration).
		Msg("Starting Recruitment Portal")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Load Question Bank ────────────────────────────────────────────
	bank, err := questionbank.Load(cfg.QuestionBankPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load question bank")
	}
	log.Info().Int("questions", bank.Len()).Msg("Question bank loaded")

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	checks := map[string]handler.HealthCheck{
		"postgres": pool.Ping,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}

	// ─── Initialize Repositories ───────────────────────────────────────
	accountRepo := repository.NewAccountRepository(pool)
	var (
		profileRepo service.ProfileStore
		resultRepo  service.ResultStore
		statusRepo  service.TestStatusStore
	)

	switch cfg.DocumentStore {
	case config.DocumentStoreMongo:
		client, mdb, err := database.NewMongoClient(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		defer client.Disconnect(context.Background())

		if err := repository.EnsureMongoIndexes(ctx, mdb); err != nil {
			log.Fatal().Err(err).Msg("Failed to create MongoDB indexes")
		}
		profileRepo = repository.NewMongoProfileRepository(mdb)
		resultRepo = repository.NewMongoTestResultRepository(mdb)
		statusRepo = repository.NewMongoTestStatusRepository(mdb)
		checks["mongo"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
	default:
		profileRepo = repository.NewProfileRepository(pool)
		resultRepo = repository.NewTestResultRepository(pool)
		statusRepo = repository.NewTestStatusRepository(pool)
	}

	sessionCache := repository.NewSessionCache(rdb)
	publisher := repository.NewRedisEventPublisher(rdb)
	monitorRepo := repository.NewMonitorRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	sched := session.Schedule{
		StartTime:      cfg.TestStartTime,
		Duration:       cfg.TestDuration,
		MaxTabSwitches: cfg.MaxTabSwitches,
	}

	authService := service.NewAuthService(cfg, sessionCache)
	identityService := service.NewIdentityService(cfg, authService, accountRepo, profileRepo, publisher, log)
	testService := service.NewTestSessionService(sched, bank, profileRepo, resultRepo, statusRepo, publisher, log)
	resultService := service.NewResultService(testService, resultRepo, log)
	monitorService := service.NewMonitorService(statusRepo, monitorRepo, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:    handler.NewAuthHandler(identityService, log),
		Portal:  handler.NewCandidatePortalHandler(identityService, testService, log),
		Result:  handler.NewResultHandler(resultService, log),
		WS:      handler.NewWSHandler(testService, log, cfg.AllowedOrigins),
		Monitor: handler.NewMonitorHandler(rdb, monitorService, log),
		System:  handler.NewSystemHandler(rdb, checks, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	tabSwitchWorker := worker.NewTabSwitchWorker(pool, rdb, log)
	workers.Add(1)
	go func() {
		defer workers.Done()
		tabSwitchWorker.Start(workerCtx)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(ctx, authService, handlers, cfg, log)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	cancel()

	// 2. Stop background workers and wait for the audit buffer to drain.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
