package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/saveeat/internal/config"
	"github.com/mamadbah2/saveeat/internal/repository"
	"github.com/mamadbah2/saveeat/internal/repository/mongodb"
	"github.com/mamadbah2/saveeat/internal/repository/sqlite"
	"github.com/mamadbah2/saveeat/internal/scheduler"
	"github.com/mamadbah2/saveeat/internal/server/handlers"
	"github.com/mamadbah2/saveeat/internal/server/router"
	chatsvc "github.com/mamadbah2/saveeat/internal/service/chat"
	cookmodesvc "github.com/mamadbah2/saveeat/internal/service/cookmode"
	generationsvc "github.com/mamadbah2/saveeat/internal/service/generation"
	ledgersvc "github.com/mamadbah2/saveeat/internal/service/ledger"
	planningsvc "github.com/mamadbah2/saveeat/internal/service/planning"
	profilesvc "github.com/mamadbah2/saveeat/internal/service/profile"
	quotasvc "github.com/mamadbah2/saveeat/internal/service/quota"
	subscriptionsvc "github.com/mamadbah2/saveeat/internal/service/subscription"
	"github.com/mamadbah2/saveeat/pkg/clients/anthropic"
	"github.com/mamadbah2/saveeat/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	store, err := openStore(context.Background(), cfg, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to init document store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close document store", zap.Error(err))
		}
	}()

	loc := cfg.Location()

	// Initialize AI Client
	var generator generationsvc.TextGenerator
	if cfg.AI.AnthropicKey != "" {
		generator = anthropic.NewClient(anthropic.Config{
			APIKey:  cfg.AI.AnthropicKey,
			BaseURL: cfg.AI.AnthropicBaseURL,
			Model:   cfg.AI.AnthropicModel,
		}, baseLogger.Named("client.anthropic"))
		baseLogger.Info("anthropic ai client enabled", zap.String("model", cfg.AI.AnthropicModel))
	} else {
		baseLogger.Warn("anthropic api key missing, recipe generation and chat disabled")
	}

	profileSvc := profilesvc.NewService(store, baseLogger.Named("svc.profile"))
	quotaSvc := quotasvc.NewService(store, loc, baseLogger.Named("svc.quota"))
	planningSvc := planningsvc.NewService(store, loc, baseLogger.Named("svc.planning"))

	services := handlers.Services{
		Subscription: subscriptionsvc.NewService(store, baseLogger.Named("svc.subscription")),
		Profile:      profileSvc,
		Quota:        quotaSvc,
		Generation:   generationsvc.NewService(quotaSvc, profileSvc, generator, cfg.Quota.RefundOnFailure, baseLogger.Named("svc.generation")),
		Ledger:       ledgersvc.NewService(store, loc, baseLogger.Named("svc.ledger")),
		Planning:     planningSvc,
		CookMode:     cookmodesvc.NewService(store, baseLogger.Named("svc.cookmode")),
		Chat:         chatsvc.NewService(store, profileSvc, generator, baseLogger.Named("svc.chat")),
	}

	handler := handlers.NewHandler(services, loc, baseLogger.Named("handlers"))
	engine := router.New(handler, baseLogger.Named("router"))

	// Initialize Scheduler
	sched := scheduler.NewScheduler(cfg.Jobs.ReconcileCron, loc, store, planningSvc, baseLogger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg *config.Config, baseLogger *zap.Logger) (repository.Store, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverMongoDB:
		return mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName, cfg.MongoDB.Transactions, baseLogger.Named("repo.mongodb"))
	default:
		return sqlite.NewStore(ctx, cfg.SQLite.Path, baseLogger.Named("repo.sqlite"))
	}
}
