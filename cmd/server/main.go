package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prepnotes/mocktest-backend/internal/config"
	"github.com/prepnotes/mocktest-backend/internal/database"
	"github.com/prepnotes/mocktest-backend/internal/handler"
	"github.com/prepnotes/mocktest-backend/internal/logger"
	"github.com/prepnotes/mocktest-backend/internal/proctor"
	"github.com/prepnotes/mocktest-backend/internal/repository"
	"github.com/prepnotes/mocktest-backend/internal/router"
	"github.com/prepnotes/mocktest-backend/internal/service"
	"github.com/prepnotes/mocktest-backend/internal/validator"
	"github.com/prepnotes/mocktest-backend/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting PrepNotes MockTest Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	// ─── Initialize Repositories ───────────────────────────────────────
	candidateRepo := repository.NewCandidateRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)
	productRepo := repository.NewProductRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	entitlementRepo := repository.NewEntitlementRepository(pool)
	monitorRepo := repository.NewMonitorRepository(pool, rdb)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	candidateService := service.NewCandidateService(candidateRepo, authService)
	catalogService := service.NewCatalogService(productRepo, questionRepo, rdb, log)
	entitlementService := service.NewEntitlementService(entitlementRepo, productRepo, log)
	monitorService := service.NewMonitorService(monitorRepo)
	proctorService := service.NewProctorService(
		catalogService, entitlementService, attemptRepo, rdb, proctor.NewClock(), log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:          handler.NewAuthHandler(authService, candidateService, adminRepo),
		Portal:        handler.NewPortalHandler(catalogService, entitlementService, proctorService, attemptRepo),
		Product:       handler.NewProductHandler(catalogService, attemptRepo),
		CandidateMgmt: handler.NewCandidateMgmtHandler(candidateService, entitlementService, authService, entitlementRepo),
		WS:            handler.NewWSHandler(proctorService, cfg.AllowedOrigins, log),
		Monitor:       handler.NewMonitorHandler(monitorService, rdb, log),
		System:        handler.NewSystemHandler(rdb, proctorService, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	violationWorker := worker.NewViolationWorker(pool, rdb, log)
	answerWorker := worker.NewAnswerWorker(pool, rdb, log)
	resultWorker := worker.NewResultWorker(pool, rdb, log)

	go violationWorker.Start(workerCtx)
	go answerWorker.Start(workerCtx)
	go resultWorker.Start(workerCtx)

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Load all published papers and answer keys into Redis BEFORE
	// accepting traffic. This avoids race conditions from lazy loading
	// under thundering herd.
	if err := catalogService.PrewarmAllCaches(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
