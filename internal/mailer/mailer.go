package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrNotConfigured is reported when no transport or credentials are set.
var ErrNotConfigured = errors.New("mailer: not configured")

// Config carries the transport settings and the sender identity.
type Config struct {
	Host         string
	Port         int
	Secure       bool
	Username     string
	Password     string
	FromName     string
	FromAddress  string
	PGPPublicKey string // armored; empty disables encryption
}

// Notification is a single message to render and deliver.
type Notification struct {
	To    string
	Title string
	Body  string
	Kind  Kind
}

// Result is the outcome of a best-effort delivery or connection check.
// Err is informational; callers must never treat it as fatal.
type Result struct {
	Delivered bool
	Err       error
}

// Mailer renders notifications and hands them to a Transport. It is built
// once at startup and shared by all requests.
type Mailer struct {
	cfg       Config
	transport Transport
	logger    *slog.Logger
	now       func() time.Time
}

func New(cfg Config, transport Transport, logger *slog.Logger) *Mailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailer{cfg: cfg, transport: transport, logger: logger, now: time.Now}
}

// Configured reports whether both SMTP credentials are present.
func (m *Mailer) Configured() bool {
	return m.transport != nil && m.cfg.Username != "" && m.cfg.Password != ""
}

// Subject returns the subject line used for a notification title.
func Subject(title string) string {
	return "Suggestion Box - " + title
}

// Notify renders and sends n. Every failure, including a panic in the
// transport, is reported through Result and never escapes.
func (m *Mailer) Notify(ctx context.Context, n Notification) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Err: fmt.Errorf("mailer: panic while sending: %v", r)}
			m.logger.Error("mailer: send panicked", "to", n.To, "panic", r)
		}
	}()

	if m.transport == nil {
		return Result{Err: ErrNotConfigured}
	}

	rendered := Render(n.Title, n.Body, n.Kind)
	msg := Message{
		To:      []string{n.To},
		Subject: Subject(n.Title),
		Text:    rendered.Text,
		HTML:    rendered.HTML,
	}

	raw, err := m.formatMessage(msg)
	if err != nil {
		m.logger.Error("mailer: build message failed", "to", n.To, "err", err)
		return Result{Err: fmt.Errorf("build message: %w", err)}
	}

	if err := m.transport.Send(ctx, m.cfg.FromAddress, msg.To, raw); err != nil {
		m.logger.Error("mailer: send failed", "to", n.To, "subject", msg.Subject, "err", err)
		return Result{Err: err}
	}

	m.logger.Info("mailer: email sent", "to", n.To, "kind", string(ParseKind(string(n.Kind))))
	return Result{Delivered: true}
}

// VerifyConnection checks that the relay accepts a connection and the
// configured credentials. Nothing is sent; a nil error means healthy.
func (m *Mailer) VerifyConnection(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mailer: panic while verifying: %v", r)
		}
	}()

	if m.transport == nil {
		return ErrNotConfigured
	}
	if err := m.transport.Verify(ctx); err != nil {
		m.logger.Error("mailer: connection check failed", "host", m.cfg.Host, "err", err)
		return err
	}
	m.logger.Info("mailer: connection verified", "host", m.cfg.Host)
	return nil
}
