package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-workflow/internal/api/http"
	"github.com/spec-kit/ticket-workflow/internal/api/http/handlers"
	"github.com/spec-kit/ticket-workflow/internal/auth"
	"github.com/spec-kit/ticket-workflow/internal/blob"
	"github.com/spec-kit/ticket-workflow/internal/config"
	"github.com/spec-kit/ticket-workflow/internal/events"
	"github.com/spec-kit/ticket-workflow/internal/notifier"
	"github.com/spec-kit/ticket-workflow/internal/observability"
	"github.com/spec-kit/ticket-workflow/internal/persistence"
	"github.com/spec-kit/ticket-workflow/internal/repository"
	"github.com/spec-kit/ticket-workflow/internal/repository/memory"
	"github.com/spec-kit/ticket-workflow/internal/service"
	"github.com/spec-kit/ticket-workflow/internal/worker"
)

const shutdownTimeout = 10 * time.Second

type repositories struct {
	users       repository.UserRepository
	tickets     repository.TicketRepository
	comments    repository.CommentRepository
	attachments repository.AttachmentRepository
	ratings     repository.RatingRepository
	history     repository.TicketHistoryRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, zap.String("service", cfg.App.Name), zap.String("env", cfg.App.Env))
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	blobs, err := blob.NewFileStore(cfg.Storage.UploadDir)
	if err != nil {
		logger.Fatal("failed to open upload dir", zap.Error(err))
	}

	repos := buildRepositories(pg)
	metrics := observability.NewMetrics()
	dispatcher := events.NewAsyncDispatcher(cfg.Events.QueueSize, cfg.Events.Workers, logger)

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo: repos.users,
		Logger:   logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     repos.tickets,
		UserRepo:       repos.users,
		AttachmentRepo: repos.attachments,
		Blobs:          blobs,
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	commentService := service.NewCommentService(service.CommentDependencies{
		TicketRepo:  repos.tickets,
		CommentRepo: repos.comments,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	attachmentService := service.NewAttachmentService(service.AttachmentDependencies{
		TicketRepo:     repos.tickets,
		AttachmentRepo: repos.attachments,
		Blobs:          blobs,
		MaxSize:        int64(cfg.Storage.MaxUploadBytes()),
		Logger:         logger,
	})
	ratingService := service.NewRatingService(service.RatingDependencies{
		TicketRepo: repos.tickets,
		RatingRepo: repos.ratings,
	})
	historyService := service.NewHistoryService(service.HistoryDependencies{
		Dispatcher:  dispatcher,
		TicketRepo:  repos.tickets,
		HistoryRepo: repos.history,
		Logger:      logger,
	})
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher: dispatcher,
		TicketRepo: repos.tickets,
		UserRepo:   repos.users,
		Notifier:   notifier.New(cfg.Notification, logger),
		Logger:     logger,
	})
	userService := service.NewUserService(service.UserDependencies{
		UserRepo:   repos.users,
		RatingRepo: repos.ratings,
		BcryptCost: cfg.Auth.BcryptCost,
		Logger:     logger,
	})
	statsService := service.NewStatsService(service.StatsDependencies{
		TicketRepo: repos.tickets,
		UserRepo:   repos.users,
		RatingRepo: repos.ratings,
		Cache:      redis,
		TTL:        cfg.Stats.CacheTTL(),
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	eventWorker := worker.NewEventWorker(dispatcher, logger, notificationService, historyService, statsService)
	eventWorker.Start()

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), repos.users)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    cfg.Storage.MaxUploadBytes() + 1<<20,
		ErrorHandler: httptransport.ErrorHandler,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, historyService),
		Comments:       handlers.NewCommentsHandler(commentService),
		Attachments:    handlers.NewAttachmentsHandler(attachmentService),
		Ratings:        handlers.NewRatingHandler(ratingService),
		Admin:          handlers.NewAdminHandler(userService, statsService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	_ = eventWorker.Stop(shutdownCtx)
}

// buildRepositories picks postgres when a pool is open and the in-memory
// store otherwise.
func buildRepositories(pg *persistence.Postgres) repositories {
	if pg.Enabled() {
		pool := pg.PoolHandle()
		return repositories{
			users:       repository.NewUserRepository(pool),
			tickets:     repository.NewTicketRepository(pool),
			comments:    repository.NewCommentRepository(pool),
			attachments: repository.NewAttachmentRepository(pool),
			ratings:     repository.NewRatingRepository(pool),
			history:     repository.NewTicketHistoryRepository(pool),
		}
	}
	store := memory.NewStore()
	return repositories{
		users:       store.Users(),
		tickets:     store.Tickets(),
		comments:    store.Comments(),
		attachments: store.Attachments(),
		ratings:     store.Ratings(),
		history:     store.History(),
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
