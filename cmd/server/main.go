// Package main is the entry point for the PCP API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pcp/internal/config"
	appctx "pcp/internal/core/context"
	"pcp/internal/domain/auth"
	"pcp/internal/domain/plan"
	"pcp/internal/domain/requisition"
	v1 "pcp/internal/infrastructure/http/v1"
	"pcp/internal/infrastructure/http/v1/middleware"
	"pcp/internal/infrastructure/storage/postgres"
	"pcp/internal/infrastructure/storage/postgres/plan_repo"
	"pcp/internal/infrastructure/storage/postgres/requisition_repo"
	"pcp/pkg/logger"
	"pcp/pkg/numerator"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := logger.WithLogger(context.Background(), log)
	log.Infow("starting pcp server", "version", version, "env", cfg.Env)

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.MaxConns = cfg.DBMaxConns
	poolCfg.MinConns = cfg.DBMinConns
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	pool.LogStats(ctx)

	txManager := postgres.NewTxManager(pool, cfg.DBStatementTimeout)

	auditService, err := postgres.NewAuditService(txManager, cfg.AuditCompressThreshold)
	if err != nil {
		log.Fatalw("failed to initialize audit service", "error", err)
	}
	defer auditService.Close()

	// --- Services ---
	planRepo := plan_repo.NewPlanRepo(txManager)
	resultRepo := plan_repo.NewResultRepo(txManager)

	planService := plan.NewService(plan.ServiceDeps{
		Plans:       planRepo,
		Inputs:      plan_repo.NewInputRepo(txManager),
		MasterData:  plan_repo.NewMasterDataRepo(txManager),
		Results:     resultRepo,
		Audit:       auditService,
		TxManager:   txManager,
		RecalcLease: cfg.RecalcLease,
	})
	if _, err := planService.RecoverStaleCalculations(appctx.WithTrace(ctx, appctx.NewTraceContext())); err != nil {
		log.Fatalw("failed to recover stale recalculations", "error", err)
	}
	requisitionService := requisition.NewService(
		requisition_repo.NewRequisitionRepo(txManager),
		planRepo,
		resultRepo,
		numerator.New(func(ctx context.Context) numerator.Querier { return txManager.GetQuerier(ctx) }),
		txManager,
	)

	// --- Auth ---
	var validator middleware.JWTValidator
	if cfg.JWTSecret != "" {
		jwtConfig := auth.DefaultJWTConfig(cfg.JWTSecret)
		jwtConfig.Issuer = cfg.JWTIssuer
		jwtConfig.AccessTokenTTL = cfg.JWTTTL
		validator = auth.NewJWTService(jwtConfig)
	} else {
		log.Warn("JWT_SECRET is empty: authentication disabled")
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		DB:           pool,
		Version:      version,
		Logger:       log,
		JWTValidator: validator,
		Plans:        planService,
		Requisitions: requisitionService,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.DBStatementTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
