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

	"go.uber.org/zap"

	"github.com/orderforge/pricing-api/internal/handlers"
	"github.com/orderforge/pricing-api/internal/platform/auth"
	"github.com/orderforge/pricing-api/internal/platform/config"
	pfirestore "github.com/orderforge/pricing-api/internal/platform/firestore"
	"github.com/orderforge/pricing-api/internal/platform/observability"
	"github.com/orderforge/pricing-api/internal/repositories"
	firestoreRepo "github.com/orderforge/pricing-api/internal/repositories/firestore"
	"github.com/orderforge/pricing-api/internal/services"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("pricing-api")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	provider := pfirestore.NewProvider(cfg.Firestore)
	defer func() {
		if err := provider.Close(); err != nil {
			logger.Warn("closing firestore provider failed", zap.Error(err))
		}
	}()

	ruleRepo, err := firestoreRepo.NewRuleRepository(provider,
		firestoreRepo.WithSnapshotTTL(cfg.Rules.SnapshotTTL),
		firestoreRepo.WithLogger(logger.Named("rules")),
	)
	if err != nil {
		logger.Fatal("failed to construct rule repository", zap.Error(err))
	}

	engine, err := services.NewOrderPricingEngine(services.OrderPricingEngineDeps{
		Logger: logger.Named("pricing"),
	})
	if err != nil {
		logger.Fatal("failed to construct pricing engine", zap.Error(err))
	}

	verifier, err := auth.NewServiceTokenVerifier(cfg.Security.InternalAuthSecret,
		auth.WithIssuer(cfg.Security.InternalAuthIssuer),
	)
	if err != nil {
		logger.Fatal("failed to construct service token verifier", zap.Error(err))
	}

	checker, err := repositories.NewHealthChecker([]repositories.DependencyCheck{
		{
			Name: "firestore",
			Check: func(ctx context.Context) error {
				_, err := provider.Client(ctx)
				return err
			},
		},
		{
			Name:    "rules",
			Timeout: 3 * time.Second,
			Check: func(ctx context.Context) error {
				_, err := ruleRepo.LoadSnapshot(ctx)
				return err
			},
		},
	}, nil)
	if err != nil {
		logger.Fatal("failed to construct health checker", zap.Error(err))
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		Logger:       logger,
		Health:       handlers.NewHealthHandlers(checker),
		Quotes:       handlers.NewQuoteHandlers(engine, ruleRepo),
		RuleAdmin:    handlers.NewRuleAdminHandlers(ruleRepo),
		InternalAuth: verifier.Middleware(),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("pricing api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	// Warm the rule snapshot so the first quote does not pay the load cost.
	warmCtx, warmCancel := context.WithTimeout(ctx, 10*time.Second)
	if _, err := ruleRepo.LoadSnapshot(warmCtx); err != nil {
		logger.Warn("rule snapshot warm-up failed", zap.Error(err))
	}
	warmCancel()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
