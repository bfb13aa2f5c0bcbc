package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/servicedesk/internal/api/http"
	"github.com/spec-kit/servicedesk/internal/api/http/handlers"
	"github.com/spec-kit/servicedesk/internal/auth"
	"github.com/spec-kit/servicedesk/internal/bootstrap"
	"github.com/spec-kit/servicedesk/internal/config"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/notification"
	"github.com/spec-kit/servicedesk/internal/observability"
	"github.com/spec-kit/servicedesk/internal/service"
	"github.com/spec-kit/servicedesk/internal/worker"
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

	stores, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open stores", zap.Error(err))
	}
	defer stores.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	dispatcher, remote := stores.Dispatcher(cfg, logger)
	broadcaster := events.NewBroadcaster(dispatcher, 16)

	notifier := service.NewNotificationService(service.NotificationDependencies{
		Sender:     buildSender(cfg, logger),
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
		Timeout:    cfg.Notification.Timeout(),
	})
	sequence := service.NewSequenceGenerator(service.SequenceDependencies{
		CounterRepo:  stores.Counters,
		MaxRetries:   cfg.Sequence.MaxRetries,
		RetryBackoff: cfg.Sequence.RetryBackoff(),
		Metrics:      metrics,
		Logger:       logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: stores.Tickets,
		Sequence:   sequence,
		Roster:     stores.Roster,
		Notifier:   notifier,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo: stores.Tickets,
		Roster:     stores.Roster,
		Notifier:   notifier,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	commentService := service.NewCommentService(service.CommentDependencies{
		TicketRepo: stores.Tickets,
		Notifier:   notifier,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	kpiService := service.NewKPIService(service.KPIDependencies{
		TicketRepo: stores.Tickets,
		Logger:     logger,
	})

	var sources []worker.EventSource
	if remote != nil {
		sources = append(sources, remote)
	}
	go func() {
		_ = worker.StartEventWorkers(ctx, notifier, logger, sources...)
	}()

	if cfg.Monitor.Enabled {
		monitor := worker.NewBreachMonitor(kpiService, metrics, logger, cfg.Monitor.Schedule)
		if err := monitor.Start(ctx); err != nil {
			logger.Fatal("failed to start sla monitor", zap.Error(err))
		}
		defer monitor.Stop()
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, stores.Pingers),
		Tickets:        handlers.NewTicketsHandler(ticketService, assignmentService, commentService),
		KPI:            handlers.NewKPIHandler(kpiService),
		Live:           handlers.NewLiveHandler(kpiService, broadcaster, cfg.App.RequestTimeout(), logger),
		AuthMiddleware: auth.NewAuthMiddleware(auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer)),
		Gatherer:       registry,
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

// buildSender always logs and adds SMTP and webhook delivery when configured.
func buildSender(cfg *config.Config, logger *zap.Logger) notification.Sender {
	senders := []notification.Sender{notification.NewLogSender(logger)}
	if cfg.Notification.SMTPHost != "" {
		senders = append(senders, notification.NewSMTPSender(notification.SMTPConfig{
			Host:        cfg.Notification.SMTPHost,
			Port:        cfg.Notification.SMTPPort,
			Username:    cfg.Notification.SMTPUsername,
			Password:    cfg.Notification.SMTPPassword,
			FromAddress: cfg.Notification.EmailFrom,
		}))
	}
	if cfg.Notification.WebhookURL != "" {
		senders = append(senders, notification.NewWebhookSender(cfg.Notification.WebhookURL, cfg.Notification.Timeout()))
	}
	return notification.NewMultiSender(senders...)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
