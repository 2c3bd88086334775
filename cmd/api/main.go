package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/spec-kit/claim-approval-service/internal/api/http"
	"github.com/spec-kit/claim-approval-service/internal/api/http/handlers"
	"github.com/spec-kit/claim-approval-service/internal/auth"
	"github.com/spec-kit/claim-approval-service/internal/config"
	"github.com/spec-kit/claim-approval-service/internal/events"
	"github.com/spec-kit/claim-approval-service/internal/observability"
	"github.com/spec-kit/claim-approval-service/internal/persistence"
	"github.com/spec-kit/claim-approval-service/internal/repository"
	"github.com/spec-kit/claim-approval-service/internal/service"
	"github.com/spec-kit/claim-approval-service/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := map[string]handlers.Pinger{}
	repo, store, err := openLedgerStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open ledger store", zap.String("store", cfg.Ledger.Store), zap.Error(err))
	}
	defer store.Close()
	if redisConn, ok := store.(*persistence.Redis); ok {
		deps["redis"] = redisConn
	}

	metrics := observability.NewMetrics("claim_approval")
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, metrics, cfg.Notification))

	ledger := service.NewLedger(repo, logger)
	catalog, err := repository.LoadCatalog(cfg.Catalog.Path)
	if err != nil {
		logger.Fatal("failed to load catalog", zap.String("path", cfg.Catalog.Path), zap.Error(err))
	}
	claims := service.NewClaimService(repository.NewCatalogClaimRepository(catalog), repository.NewCatalogPolicyRepository(catalog))
	mailer := service.NewEmailService(cfg.SMTP, logger)
	if cfg.SMTP.DemoMode() {
		logger.Warn("SENDER_PASSWORD not set, emails are logged instead of sent")
	}
	approvals := service.NewApprovalService(service.ApprovalDependencies{
		Ledger:     ledger,
		Resumer:    service.NewResumeBridge(cfg.Resume, nil, logger),
		Claims:     claims,
		Mailer:     mailer,
		Dispatcher: dispatcher,
		PublicURL:  cfg.Notification.ApprovalPublicURL,
		AppName:    cfg.Resume.AppName,
		Logger:     logger,
	})

	var authMiddleware *auth.AuthMiddleware
	if cfg.Auth.Enabled {
		authMiddleware = auth.NewAuthMiddleware(auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes))
	}

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		ErrorHandler:          httptransport.ErrorHandler,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, cfg.Ledger.Store, deps),
		Approvals:      handlers.NewApprovalsHandler(approvals),
		Catalog:        handlers.NewCatalogHandler(claims),
		Notifications:  handlers.NewNotificationsHandler(mailer, logger),
		Registry:       metrics.Registry(),
		EmailLimiter:   httptransport.NewIPRateLimiter(ctx, cfg.RateLimit),
		AuthMiddleware: authMiddleware,
	})

	retention := worker.NewRetentionWorker(ledger, cfg.Ledger.Retention(), cfg.Ledger.RetentionInterval(), logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening",
			zap.String("addr", cfg.App.Addr()),
			zap.String("ledger_store", cfg.Ledger.Store),
			zap.String("resume_url", cfg.Resume.URL()),
			zap.Bool("auth_enabled", cfg.Auth.Enabled))
		return app.Listen(cfg.App.Addr())
	})
	g.Go(func() error {
		return retention.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

type storeCloser interface {
	Close()
}

type noopCloser struct{}

func (noopCloser) Close() {}

// openLedgerStore builds the configured approval ticket store.
func openLedgerStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.ApprovalRepository, storeCloser, error) {
	switch cfg.Ledger.Store {
	case config.StoreMemory:
		logger.Warn("memory ledger store: tickets are lost on restart")
		return repository.NewMemoryApprovalRepository(), noopCloser{}, nil
	case config.StoreFile:
		repo, err := repository.NewFileApprovalRepository(cfg.Ledger.FilePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("file ledger store", zap.String("path", cfg.Ledger.FilePath))
		return repo, noopCloser{}, nil
	case config.StoreRedis:
		conn, err := persistence.NewRedis(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewRedisApprovalRepository(conn.Client), conn, nil
	default:
		return nil, nil, fmt.Errorf("unknown ledger store %q", cfg.Ledger.Store)
	}
}
