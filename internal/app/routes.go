package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/firewatch/suggestionbox/internal/handler"
	"github.com/firewatch/suggestionbox/internal/middleware"
)

func (app *App) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(app.metrics.Middleware)
	r.Use(middleware.SecurityHeaders)

	base := handler.BaseHandler{Logger: app.logger}

	r.Get("/api/health", base.Health(app.reports))
	r.Handle("/metrics", app.metrics.Handler())

	reportHandler := handler.NewReportHandler(base, app.service)
	notificationHandler := handler.NewNotificationHandler(base, app.mailer, app.mailSummary())

	r.Group(func(r chi.Router) {
		r.Use(middleware.SubmissionLimit(app.config.RateLimitPerMinute))

		r.Post("/api/reports", reportHandler.Submit)
		r.Post("/api/notifications", notificationHandler.Send)
		r.Get("/api/notifications/verify", notificationHandler.Verify)
	})

	return r
}

func (app *App) mailSummary() handler.MailSummary {
	cfg := app.config
	return handler.MailSummary{
		Host:       cfg.EmailHost,
		Port:       cfg.EmailPort,
		Secure:     cfg.EmailSecure,
		User:       cfg.EmailUser,
		HasPass:    cfg.EmailPass != "",
		AdminEmail: cfg.AdminEmail,
	}
}
