package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/firewatch/suggestionbox/internal/config"
	"github.com/firewatch/suggestionbox/internal/db"
	"github.com/firewatch/suggestionbox/internal/mailer"
	"github.com/firewatch/suggestionbox/internal/metrics"
	"github.com/firewatch/suggestionbox/internal/report"
	"github.com/firewatch/suggestionbox/internal/store"
	"github.com/firewatch/suggestionbox/internal/upload"
)

type App struct {
	config  *config.Config
	logger  *slog.Logger
	reports store.ReportStore
	files   *upload.Store
	mailer  *mailer.Mailer
	metrics *metrics.Metrics
	service *report.Service
	closers []func()
}

func (app *App) Close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		app.closers[i]()
	}
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := newLogger(cfg, os.Stdout)
	app := &App{config: cfg, logger: logger, metrics: metrics.New()}

	if !cfg.IsDryRun() {
		reports, err := app.openStore(ctx)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.reports = reports
	} else {
		logger.Warn("dry-run mode: reports are validated but not stored")
	}

	app.files = upload.New(cfg.UploadDir, cfg.UploadURLPrefix,
		upload.WithMetadataStripping(cfg.StripImageMetadata),
		upload.WithLogger(logger),
	)

	m, err := newMailer(cfg, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.mailer = m
	if !cfg.EmailConfigured() {
		logger.Warn("email credentials missing, notifications disabled")
	}

	app.service = report.NewService(report.Options{
		Repository: app.reports,
		Files:      app.files,
		Notifier:   app.mailer,
		AdminEmail: cfg.AdminEmail,
		DryRun:     cfg.IsDryRun(),
		Logger:     logger,
		Metrics:    app.metrics,
	})

	return app, nil
}

func (app *App) openStore(ctx context.Context) (store.ReportStore, error) {
	cfg := app.config

	if cfg.AutoMigrate {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		app.logger.Info("database migrations applied")
	}

	if db.IsPostgres(cfg.DatabaseURL) {
		pool, err := db.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		app.closers = append(app.closers, pool.Close)
		return store.NewPostgresReportStore(pool), nil
	}

	sqlDB, err := db.OpenSQLite(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	app.closers = append(app.closers, func() { sqlDB.Close() })
	return store.NewSQLiteReportStore(sqlDB), nil
}

func newMailer(cfg *config.Config, logger *slog.Logger) (*mailer.Mailer, error) {
	mcfg := mailer.Config{
		Host:        cfg.EmailHost,
		Port:        cfg.EmailPort,
		Secure:      cfg.EmailSecure,
		Username:    cfg.EmailUser,
		Password:    cfg.EmailPass,
		FromName:    cfg.EmailFromName,
		FromAddress: cfg.EmailFromAddress,
	}

	if cfg.PGPPublicKeyPath != "" {
		key, err := os.ReadFile(cfg.PGPPublicKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read PGP public key: %w", err)
		}
		mcfg.PGPPublicKey = string(key)
	}

	m := mailer.New(mcfg, mailer.NewSMTPTransport(mcfg), logger)
	if mcfg.PGPPublicKey != "" {
		if err := m.CanEncrypt(); err != nil {
			return nil, fmt.Errorf("PGP public key: %w", err)
		}
	}
	return m, nil
}

func (app *App) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", app.config.Port),
		Handler:      app.routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelError),
	}

	g.Go(func() error {
		app.logger.Info("starting server",
			"addr", srv.Addr,
			"env", app.config.Env,
			"mode", string(app.config.Mode),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		app.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	app.logger.Info("stopped server")
	return nil
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}

	var handler slog.Handler
	if strings.EqualFold(cfg.LogFormat, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
