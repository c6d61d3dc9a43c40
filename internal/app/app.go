package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/blaybrigidi/4Salvage/internal/config"
	"github.com/blaybrigidi/4Salvage/internal/delivery/httpd"
	"github.com/blaybrigidi/4Salvage/internal/notify"
	"github.com/blaybrigidi/4Salvage/internal/repository"
	"github.com/blaybrigidi/4Salvage/internal/service"
	"github.com/blaybrigidi/4Salvage/internal/service/integration"
	"github.com/blaybrigidi/4Salvage/internal/worker"
	"github.com/blaybrigidi/4Salvage/internal/worker/queue"
)

type App struct {
	server        *http.Server
	logger        zerolog.Logger
	config        *config.Config
	db            *sql.DB
	monitor       worker.GradeMonitor
	publisher     queue.EventPublisher
	monitorCancel context.CancelFunc
}

func New(cfg *config.Config, log zerolog.Logger, db *sql.DB) (*App, error) {
	canvasClient := integration.NewCanvasClient(
		cfg.Canvas.BaseURL,
		cfg.Canvas.Token,
		cfg.Canvas.Timeout,
		cfg.Canvas.RetryCount,
		cfg.Canvas.RetryDelay,
		cfg.Canvas.PerPage,
		log,
	)

	snapshotRepo := repository.NewSnapshotRepository(db, log)

	sender, err := newEmailSender(cfg.Email, log)
	if err != nil {
		return nil, err
	}

	var publisher queue.EventPublisher
	if cfg.RabbitMQ.Enabled {
		publisher, err = queue.NewRabbitMQPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, log)
		if err != nil {
			return nil, err
		}
	}

	gradingService := service.NewGradingService(canvasClient, log)
	emailService := service.NewEmailService(canvasClient, log)

	monitor := worker.NewGradeMonitor(
		canvasClient,
		gradingService,
		emailService,
		sender,
		snapshotRepo,
		publisher,
		cfg.Monitor.Interval,
		log,
	)

	handler := httpd.NewHandler(
		canvasClient,
		gradingService,
		emailService,
		sender,
		monitor,
		log,
	)

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &App{
		server:    server,
		logger:    log,
		config:    cfg,
		db:        db,
		monitor:   monitor,
		publisher: publisher,
	}, nil
}

func newEmailSender(cfg config.EmailConfig, log zerolog.Logger) (notify.EmailSender, error) {
	switch cfg.Backend {
	case "sendgrid":
		if cfg.SendgridAPIKey == "" {
			return nil, fmt.Errorf("sendgrid backend selected but no API key configured")
		}
		return notify.NewSendgridSender(cfg.SendgridAPIKey, cfg.FromName, cfg.FromAddress, cfg.SubjectPrefix, log), nil
	case "console", "":
		return notify.NewConsoleSender(log), nil
	default:
		return nil, fmt.Errorf("unknown email backend %q", cfg.Backend)
	}
}

func (a *App) Run() error {
	if a.config.Monitor.Enabled {
		ctx, cancel := context.WithCancel(context.Background())
		a.monitorCancel = cancel
		go a.monitor.Start(ctx)
	}

	a.logger.Info().Msgf("Starting autograder service on %s", a.config.Server.Address)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// RunMonitorCycle runs a single monitoring sweep, for the "monitor" CLI
// subcommand.
func (a *App) RunMonitorCycle(ctx context.Context) error {
	return a.monitor.RunCycle(ctx)
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info().Msg("Shutting down autograder service...")

	if a.monitorCancel != nil {
		a.monitorCancel()
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close event publisher")
		}
	}

	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error().Err(err).Msg("Failed to shutdown HTTP server")
		return err
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close database connection")
		}
	}

	a.logger.Info().Msg("Autograder service stopped")
	return nil
}
