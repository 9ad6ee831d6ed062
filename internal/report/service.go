// Package report validates submissions and runs them through the intake
// pipeline: file storage, persistence and administrator notification.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firewatch/suggestionbox/internal/mailer"
	"github.com/firewatch/suggestionbox/internal/model"
	"github.com/firewatch/suggestionbox/internal/upload"
)

const (
	MessageSubmitted = "Report submitted successfully"
	MessageDryRun    = "test mode: report processed, not stored"
)

type Repository interface {
	Create(ctx context.Context, r model.NewReport) (model.Report, error)
}

type FileStore interface {
	Save(ctx context.Context, att model.Attachment) (string, error)
}

type Notifier interface {
	Configured() bool
	Notify(ctx context.Context, n mailer.Notification) mailer.Result
}

// Recorder receives pipeline counters. *metrics.Metrics satisfies it.
type Recorder interface {
	ObserveSubmission(outcome string)
	ObserveNotification(result string)
	ObserveUpload(size int64)
}

type Options struct {
	Repository Repository
	Files      FileStore
	Notifier   Notifier
	AdminEmail string
	DryRun     bool
	Logger     *slog.Logger
	Metrics    Recorder
}

type Service struct {
	repo       Repository
	files      FileStore
	notifier   Notifier
	adminEmail string
	dryRun     bool
	logger     *slog.Logger
	metrics    Recorder
}

func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:       opts.Repository,
		files:      opts.Files,
		notifier:   opts.Notifier,
		adminEmail: opts.AdminEmail,
		dryRun:     opts.DryRun,
		logger:     logger,
		metrics:    opts.Metrics,
	}
}

// Submit runs one submission to completion. It never returns an error and
// never panics; every outcome is described by the Result.
func (s *Service) Submit(ctx context.Context, sub model.Submission) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("report: pipeline panicked", "panic", r)
			res = failed(KindInternal, "internal server error", fmt.Errorf("panic: %v", r))
		}
		s.observeSubmission(res)
	}()

	valid, verrs := Validate(sub)
	if len(verrs) > 0 {
		return Result{Failure: &Failure{
			Kind:    KindValidation,
			Message: "validation failed",
			Details: verrs,
		}}
	}

	s.logger.Info("report: received",
		"category", string(valid.Category),
		"area_len", len(valid.Area),
		"has_file", !valid.File.Empty(),
		"dry_run", s.dryRun,
	)

	if s.dryRun {
		if !valid.File.Empty() {
			if err := upload.Check(*valid.File); err != nil {
				return failed(KindStorage, err.Error(), err)
			}
		}
		return Result{Message: MessageDryRun}
	}

	var fileURL *string
	if !valid.File.Empty() {
		ref, err := s.files.Save(ctx, *valid.File)
		if err != nil {
			s.logger.Warn("report: file not stored", "err", err)
			return failed(KindStorage, storageMessage(err), err)
		}
		if s.metrics != nil {
			s.metrics.ObserveUpload(valid.File.Size)
		}
		fileURL = &ref
	}

	created, err := s.repo.Create(ctx, model.NewReport{
		FullName: valid.FullName,
		Category: valid.Category,
		Area:     valid.Area,
		Message:  valid.Message,
		FileURL:  fileURL,
	})
	if err != nil {
		s.logger.Error("report: persist failed", "err", err)
		return failed(KindPersistence, "failed to save report", err)
	}

	s.notify(ctx, valid, created)

	return Result{ReportID: created.ID, Message: MessageSubmitted}
}

// notify sends the administrator alert. Its outcome is logged and counted
// but never changes the submission result.
func (s *Service) notify(ctx context.Context, sub model.Submission, created model.Report) {
	if s.notifier == nil || !s.notifier.Configured() || s.adminEmail == "" {
		s.observeNotification("skipped")
		return
	}

	res := s.notifier.Notify(ctx, mailer.Notification{
		To:    s.adminEmail,
		Title: "New suggestion in " + sub.Area,
		Body:  NotificationBody(sub, created.ID),
		Kind:  mailer.KindNew,
	})
	if !res.Delivered {
		s.logger.Warn("report: notification not delivered", "report_id", created.ID, "err", res.Err)
		s.observeNotification("failed")
		return
	}
	s.observeNotification("delivered")
}

// NotificationBody is the plain-text summary mailed to the administrator.
func NotificationBody(sub model.Submission, reportID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Category: %s\n", sub.Category)
	fmt.Fprintf(&b, "Area: %s\n", sub.Area)
	fmt.Fprintf(&b, "From: %s\n", sub.DisplayName())
	if !sub.File.Empty() {
		fmt.Fprintf(&b, "Attachment: %s\n", sub.File.Filename)
	}
	fmt.Fprintf(&b, "Report ID: %s\n\n", reportID)
	b.WriteString(sub.Message)
	return b.String()
}

// ClientError reports whether a storage failure was caused by the upload
// itself rather than by the server.
func ClientError(err error) bool {
	return errors.Is(err, upload.ErrFileTooLarge) ||
		errors.Is(err, upload.ErrUnsupportedFileType) ||
		errors.Is(err, upload.ErrCorruptImage)
}

func storageMessage(err error) string {
	if ClientError(err) {
		return err.Error()
	}
	return "failed to store file"
}

func (s *Service) observeSubmission(res Result) {
	if s.metrics == nil {
		return
	}
	outcome := "success"
	if res.Failure != nil {
		outcome = string(res.Failure.Kind)
	}
	s.metrics.ObserveSubmission(outcome)
}

func (s *Service) observeNotification(result string) {
	if s.metrics != nil {
		s.metrics.ObserveNotification(result)
	}
}
