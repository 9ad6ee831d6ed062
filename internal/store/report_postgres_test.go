package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/firewatch/suggestionbox/internal/model"
)

type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

type fakePool struct {
	query string
	args  []any
	row   fakeRow
}

func (p *fakePool) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	p.query = sql
	p.args = args
	return p.row
}

func (p *fakePool) Ping(context.Context) error { return nil }

func TestPostgresCreatePassesFileURLThrough(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pool := &fakePool{row: fakeRow{scan: func(dest ...any) error {
		*(dest[0].(*time.Time)) = created
		return nil
	}}}

	s := NewPostgresReportStore(pool)
	s.newID = func() string { return "id-1" }

	ref := "/uploads/1-abcd0123-a.pdf"
	r, err := s.Create(context.Background(), model.NewReport{
		Category: model.CategoryCorruption,
		Area:     "Finance",
		Message:  "Invoices are being duplicated",
		FileURL:  &ref,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if r.ID != "id-1" || !r.CreatedAt.Equal(created) {
		t.Errorf("unexpected report %+v", r)
	}
	if got := pool.args[5].(*string); got == nil || *got != ref {
		t.Errorf("file_url arg = %v, want %q", got, ref)
	}
	if pool.args[1].(*string) != nil {
		t.Errorf("full_name arg should be nil for anonymous reports")
	}
	if pool.args[2] != "Corruption" {
		t.Errorf("category arg = %v", pool.args[2])
	}
}

func TestPostgresGetMapsNoRows(t *testing.T) {
	pool := &fakePool{row: fakeRow{scan: func(...any) error { return pgx.ErrNoRows }}}
	_, err := NewPostgresReportStore(pool).Get(context.Background(), "nope")
	if !errors.Is(err, ErrReportNotFound) {
		t.Fatalf("Get() error = %v, want ErrReportNotFound", err)
	}
}

func TestPostgresCreateWrapsErrors(t *testing.T) {
	boom := errors.New("connection refused")
	pool := &fakePool{row: fakeRow{scan: func(...any) error { return boom }}}
	_, err := NewPostgresReportStore(pool).Create(context.Background(), model.NewReport{Category: model.CategorySuggestion})
	if !errors.Is(err, boom) {
		t.Fatalf("Create() error = %v, want wrapped %v", err, boom)
	}
}
