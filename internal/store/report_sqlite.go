package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/firewatch/suggestionbox/internal/model"
)

// SQLiteReportStore keeps reports in a SQLite database. Timestamps are stored
// as RFC 3339 text in UTC.
type SQLiteReportStore struct {
	db    *sql.DB
	newID func() string
	now   func() time.Time
}

func NewSQLiteReportStore(db *sql.DB) *SQLiteReportStore {
	return &SQLiteReportStore{db: db, newID: newID, now: time.Now}
}

func (s *SQLiteReportStore) Create(ctx context.Context, r model.NewReport) (model.Report, error) {
	const query = `
		INSERT INTO reports (id, full_name, category, area, message, file_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	report := model.Report{
		ID:        s.newID(),
		FullName:  r.FullName,
		Category:  r.Category,
		Area:      r.Area,
		Message:   r.Message,
		FileURL:   r.FileURL,
		CreatedAt: s.now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, query,
		report.ID,
		nullString(report.FullName),
		string(report.Category),
		report.Area,
		report.Message,
		nullString(report.FileURL),
		report.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return model.Report{}, fmt.Errorf("insert report: %w", err)
	}
	return report, nil
}

func (s *SQLiteReportStore) Get(ctx context.Context, id string) (model.Report, error) {
	const query = `
		SELECT id, full_name, category, area, message, file_url, created_at
		FROM reports WHERE id = ?`

	var (
		r         model.Report
		category  string
		fullName  sql.NullString
		fileURL   sql.NullString
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&r.ID, &fullName, &category, &r.Area, &r.Message, &fileURL, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Report{}, ErrReportNotFound
	}
	if err != nil {
		return model.Report{}, fmt.Errorf("get report: %w", err)
	}

	r.Category = model.Category(category)
	r.FullName = stringPtr(fullName)
	r.FileURL = stringPtr(fileURL)
	r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return model.Report{}, fmt.Errorf("parse created_at: %w", err)
	}
	return r, nil
}

func (s *SQLiteReportStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
