package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/praveenrathi4/complain-app/internal/api/http"
	"github.com/praveenrathi4/complain-app/internal/api/http/handlers"
	"github.com/praveenrathi4/complain-app/internal/attachment"
	"github.com/praveenrathi4/complain-app/internal/auth"
	"github.com/praveenrathi4/complain-app/internal/config"
	"github.com/praveenrathi4/complain-app/internal/events"
	"github.com/praveenrathi4/complain-app/internal/notify"
	"github.com/praveenrathi4/complain-app/internal/observability"
	"github.com/praveenrathi4/complain-app/internal/persistence"
	"github.com/praveenrathi4/complain-app/internal/repository"
	"github.com/praveenrathi4/complain-app/internal/service"
	"github.com/praveenrathi4/complain-app/internal/ttlstore"
	"github.com/praveenrathi4/complain-app/internal/validation"
	"github.com/praveenrathi4/complain-app/internal/whatsapp"
	"github.com/praveenrathi4/complain-app/internal/worker"
)

const shutdownTimeout = 15 * time.Second

// storage is the selected backend plus everything that must be closed on exit.
type storage struct {
	users       repository.UserRepository
	complaints  repository.ComplaintRepository
	attachments attachment.Store
	files       attachment.Opener
	ttl         ttlstore.Store
	pingers     map[string]handlers.Pinger
	closers     []func(ctx context.Context)
}

func (s *storage) close(ctx context.Context) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i](ctx)
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open storage", zap.Error(err), zap.String("driver", cfg.Storage.Driver))
	}

	metrics := observability.NewMetrics()
	validator := validation.New()

	waClient := whatsapp.NewClient(cfg.WhatsApp)
	channels := []notify.Channel{notify.NewWhatsAppChannel(waClient)}
	if cfg.SMTP.Configured() {
		channels = append(channels, notify.NewEmailChannel(cfg.SMTP))
	} else {
		logger.Warn("SMTP_HOST not set, email notifications are disabled")
	}
	if !cfg.WhatsApp.Configured() {
		logger.Warn("WhatsApp Cloud API credentials not set, whatsapp notifications are disabled")
	}
	notifier := notify.NewNotifier(cfg.Notification.ChannelTimeout, logger, metrics, channels...)

	pool := worker.NewPool(cfg.Notification.Workers, cfg.Notification.QueueSize, logger)
	pool.Start()

	dispatcher := events.NewInMemoryDispatcher(logger)
	service.NewNotificationService(dispatcher, notifier, store.users, pool, logger).RegisterHandlers()

	complaintService := service.NewComplaintService(service.ComplaintDependencies{
		ComplaintRepo:   store.complaints,
		UserRepo:        store.users,
		AttachmentStore: store.attachments,
		Dispatcher:      dispatcher,
		Validator:       validator,
		Logger:          logger,
	})
	statsService := service.NewStatsService(store.complaints, nil)
	staffService := service.NewStaffService(store.users, nil)
	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:  store.users,
		Store:     store.ttl,
		Notifier:  notifier,
		Validator: validator,
		Logger:    logger,
	})
	inbound := service.NewInboundRouter(store.users, store.complaints, waClient, cfg.WhatsApp.VerifyToken, logger)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), store.users)

	debugErrors := !cfg.App.IsProduction()
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    cfg.HTTP.BodyLimitMB * 1024 * 1024,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics, debugErrors),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, httptransport.MiddlewareConfig{
		Timeout:         cfg.HTTP.RequestTimeout(),
		CORSOrigins:     cfg.HTTP.CORSOrigins,
		RateLimitMax:    cfg.HTTP.RateLimitMax,
		RateLimitWindow: cfg.HTTP.RateLimitWindow,
		Debug:           debugErrors,
	})

	routes := httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, cfg.App.Env, store.pingers, metrics),
		Complaints:     handlers.NewComplaintsHandler(complaintService, statsService),
		Auth:           handlers.NewAuthHandler(authService),
		Staff:          handlers.NewStaffHandler(staffService),
		WhatsApp:       handlers.NewWhatsAppHandler(inbound, cfg.WhatsApp, pool, logger),
		AuthMiddleware: authMiddleware,
	}
	if path, ok := localUploadsPath(cfg.Upload.PublicURL); ok && store.files != nil {
		routes.Uploads = handlers.NewUploadsHandler(store.files)
		routes.UploadsPath = path
	}
	httptransport.RegisterRoutes(app, routes)

	go func() {
		logger.Info("http server starting",
			zap.String("addr", cfg.App.Addr()),
			zap.String("env", cfg.App.Env),
			zap.String("storage", cfg.Storage.Driver))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := pool.Shutdown(shutdownCtx); err != nil {
		logger.Warn("notification workers did not drain", zap.Error(err))
	}
	store.close(shutdownCtx)
}

func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage, error) {
	store := &storage{pingers: map[string]handlers.Pinger{}}

	switch cfg.Storage.Driver {
	case config.StorageDriverMongo:
		mongo, err := persistence.NewMongo(ctx, cfg.Mongo, logger)
		if err != nil {
			return nil, err
		}
		store.closers = append(store.closers, mongo.Close)
		store.pingers["mongo"] = mongo
		if err := repository.EnsureMongoIndexes(ctx, mongo.Database); err != nil {
			store.close(ctx)
			return nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		store.users = repository.NewUserMongoRepository(mongo.Database)
		store.complaints = repository.NewComplaintMongoRepository(mongo.Database)
		files, err := attachment.NewGridFSStore(mongo.Database, cfg.Mongo.GridFSName, cfg.Upload.PublicURL)
		if err != nil {
			store.close(ctx)
			return nil, err
		}
		store.attachments, store.files = files, files
	default:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		store.closers = append(store.closers, func(context.Context) { pg.Close() })
		store.pingers["postgres"] = pg
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				store.close(ctx)
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		store.users = repository.NewUserPgRepository(pg.PoolHandle())
		store.complaints = repository.NewComplaintPgRepository(pg.PoolHandle())
		files, err := attachment.NewDiskStore(cfg.Upload.Dir, cfg.Upload.PublicURL)
		if err != nil {
			store.close(ctx)
			return nil, err
		}
		store.attachments, store.files = files, files
	}

	if cfg.Storage.TTLStoreDriver == config.TTLStoreMemory {
		store.ttl = ttlstore.NewMemoryStore()
		return store, nil
	}
	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	store.closers = append(store.closers, func(context.Context) { redis.Close() })
	store.pingers["redis"] = redis
	store.ttl = redis.CodeStore()
	return store, nil
}

// localUploadsPath returns the route prefix when attachments are served by
// this process rather than an external host.
func localUploadsPath(publicURL string) (string, bool) {
	path := strings.TrimRight(publicURL, "/")
	if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") {
		return "", false
	}
	return path, true
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
