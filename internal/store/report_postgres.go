package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/firewatch/suggestionbox/internal/model"
)

// pgxQuerier is the subset of *pgxpool.Pool the store needs.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

type PostgresReportStore struct {
	db    pgxQuerier
	newID func() string
}

func NewPostgresReportStore(db pgxQuerier) *PostgresReportStore {
	return &PostgresReportStore{db: db, newID: newID}
}

func (s *PostgresReportStore) Create(ctx context.Context, r model.NewReport) (model.Report, error) {
	const query = `
		INSERT INTO reports (id, full_name, category, area, message, file_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	report := model.Report{
		ID:       s.newID(),
		FullName: r.FullName,
		Category: r.Category,
		Area:     r.Area,
		Message:  r.Message,
		FileURL:  r.FileURL,
	}

	err := s.db.QueryRow(ctx, query,
		report.ID,
		report.FullName,
		string(report.Category),
		report.Area,
		report.Message,
		report.FileURL,
	).Scan(&report.CreatedAt)
	if err != nil {
		return model.Report{}, fmt.Errorf("insert report: %w", err)
	}
	return report, nil
}

func (s *PostgresReportStore) Get(ctx context.Context, id string) (model.Report, error) {
	const query = `
		SELECT id, full_name, category, area, message, file_url, created_at
		FROM reports WHERE id = $1`

	var (
		r        model.Report
		category string
	)
	err := s.db.QueryRow(ctx, query, id).Scan(
		&r.ID, &r.FullName, &category, &r.Area, &r.Message, &r.FileURL, &r.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Report{}, ErrReportNotFound
	}
	if err != nil {
		return model.Report{}, fmt.Errorf("get report: %w", err)
	}
	r.Category = model.Category(category)
	return r, nil
}

func (s *PostgresReportStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
