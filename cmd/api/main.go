package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/triage-service/internal/api/http"
	"github.com/spec-kit/triage-service/internal/api/http/handlers"
	"github.com/spec-kit/triage-service/internal/auth"
	"github.com/spec-kit/triage-service/internal/config"
	"github.com/spec-kit/triage-service/internal/delivery"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/observability"
	"github.com/spec-kit/triage-service/internal/persistence"
	"github.com/spec-kit/triage-service/internal/repository"
	"github.com/spec-kit/triage-service/internal/service"
	"github.com/spec-kit/triage-service/internal/triage"
	"github.com/spec-kit/triage-service/internal/worker"
)

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

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	var rdb *persistence.Redis
	var lease delivery.Lease
	if cfg.Redis.Addr != "" {
		rdb = persistence.NewRedis(cfg.Redis, logger)
		defer rdb.Close()
		lease = delivery.NewRedisLease(rdb.Client, cfg.Queue.LeaseTTL())
	}

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	messageRepo := repository.NewTicketMessageRepository(pool)
	suggestionRepo := repository.NewSuggestionRepository(pool)
	policyRepo := repository.NewPolicyRepository(pool)
	articleRepo := repository.NewKnowledgeArticleRepository(pool)
	outboundRepo := repository.NewOutboundMessageRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)

	dispatcher := events.NewInMemoryDispatcher(logger)
	service.NewEventLogService(dispatcher, logger).RegisterHandlers()

	metrics := observability.NewDeliveryMetrics()

	var transport delivery.Transport
	if cfg.Delivery.AMQPURL != "" {
		amqpTransport, err := delivery.NewAMQPTransport(cfg.Delivery.AMQPURL, cfg.Delivery.AMQPExchange, logger)
		if err != nil {
			logger.Fatal("failed to connect amqp", zap.Error(err))
		}
		defer amqpTransport.Close()
		transport = amqpTransport
	} else {
		transport = delivery.NewLogTransport(logger, cfg.Delivery.EmailFrom)
	}

	notificationService := service.NewNotificationService(service.NotificationDependencies{
		OutboundRepo:  outboundRepo,
		AuditRepo:     auditRepo,
		Transport:     transport,
		Lease:         lease,
		Metrics:       metrics,
		Dispatcher:    dispatcher,
		Logger:        logger,
		MaxRetryCount: cfg.Queue.MaxRetryCount,
		AsyncDispatch: true,
	})

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		MessageRepo: messageRepo,
		AuditRepo:   auditRepo,
		Dispatcher:  dispatcher,
	})

	triageService := service.NewTriageService(service.TriageDependencies{
		TicketRepo:     ticketRepo,
		MessageRepo:    messageRepo,
		SuggestionRepo: suggestionRepo,
		PolicyRepo:     policyRepo,
		ArticleRepo:    articleRepo,
		AuditRepo:      auditRepo,
		Generator:      triage.NewGenerator(cfg.AI, logger),
		TicketService:  ticketService,
		Notifications:  notificationService,
		Dispatcher:     dispatcher,
		Logger:         logger,
	})

	worker.StartDispatchWorker(ctx, notificationService, cfg.Queue.DispatchInterval(), logger)

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokenManager)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, rdb),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Triage:         handlers.NewTriageHandler(triageService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		Ops:            handlers.NewOpsHandler(notificationService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
