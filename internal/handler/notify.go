package handler

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/firewatch/suggestionbox/internal/mailer"
)

type notifier interface {
	Configured() bool
	Notify(ctx context.Context, n mailer.Notification) mailer.Result
	VerifyConnection(ctx context.Context) error
}

// MailSummary is the redacted SMTP configuration echoed by the diagnostics
// endpoint. The password itself is never included.
type MailSummary struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	Secure     bool   `json:"secure"`
	User       string `json:"user"`
	HasPass    bool   `json:"hasPass"`
	AdminEmail string `json:"adminEmail"`
}

// NotificationHandler exposes manual sending and SMTP diagnostics.
type NotificationHandler struct {
	BaseHandler
	mailer  notifier
	summary MailSummary
}

func NewNotificationHandler(base BaseHandler, m notifier, summary MailSummary) *NotificationHandler {
	return &NotificationHandler{BaseHandler: base, mailer: m, summary: summary}
}

type sendRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (req sendRequest) validate() (mailer.Kind, []string) {
	var problems []string
	if _, err := mail.ParseAddress(req.To); err != nil || strings.TrimSpace(req.To) == "" {
		problems = append(problems, "to must be a valid email address")
	}
	if req.Subject == "" {
		problems = append(problems, "subject is required")
	}
	if req.Message == "" {
		problems = append(problems, "message is required")
	}

	kind := mailer.KindGeneral
	if req.Type != "" {
		kind = mailer.Kind(req.Type)
		if !kind.Valid() {
			problems = append(problems, "type must be one of new, reply, general")
		}
	}
	return kind, problems
}

// Send handles POST /api/notifications.
func (h *NotificationHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	kind, problems := req.validate()
	if len(problems) > 0 {
		h.failedValidationResponse(w, r, "invalid data", problems)
		return
	}

	if !h.mailer.Configured() {
		h.serverErrorResponse(w, r, mailer.ErrNotConfigured)
		return
	}

	res := h.mailer.Notify(r.Context(), mailer.Notification{
		To:    req.To,
		Title: req.Subject,
		Body:  req.Message,
		Kind:  kind,
	})
	if !res.Delivered {
		h.Logger.Error("notification not delivered", "err", res.Err)
		h.errorResponse(w, r, http.StatusInternalServerError, "failed to send email")
		return
	}

	if err := h.writeJSON(w, http.StatusOK, envelope{"message": "email sent"}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

// Verify handles GET /api/notifications/verify. It checks the relay and then
// sends a test message to the administrator address.
func (h *NotificationHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if !h.mailer.Configured() {
		h.writeEnvelope(w, r, http.StatusBadRequest, envelope{
			"error":  "email configuration incomplete",
			"config": h.summary,
		})
		return
	}

	if err := h.mailer.VerifyConnection(r.Context()); err != nil {
		h.Logger.Error("smtp connection check failed", "err", err)
		h.writeEnvelope(w, r, http.StatusInternalServerError, envelope{
			"error":  "smtp connection failed",
			"config": h.summary,
		})
		return
	}

	to := h.summary.AdminEmail
	if to == "" {
		h.serverErrorResponse(w, r, errors.New("no administrator address configured"))
		return
	}

	res := h.mailer.Notify(r.Context(), mailer.Notification{
		To:    to,
		Title: "Test Email",
		Body:  "This is a test email from the suggestion box system.",
		Kind:  mailer.KindGeneral,
	})

	message := "email sent successfully"
	if !res.Delivered {
		message = "failed to send email"
	}
	h.writeEnvelope(w, r, http.StatusOK, envelope{
		"success":   res.Delivered,
		"message":   message,
		"config":    h.summary,
		"testEmail": to,
	})
}
