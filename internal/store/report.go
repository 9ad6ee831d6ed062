package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/firewatch/suggestionbox/internal/model"
)

var ErrReportNotFound = errors.New("report not found")

// ReportStore persists reports. Create is a single atomic insert and there is
// no update path.
type ReportStore interface {
	Create(ctx context.Context, r model.NewReport) (model.Report, error)
	Get(ctx context.Context, id string) (model.Report, error)
	Ping(ctx context.Context) error
}

func newID() string {
	return uuid.NewString()
}
