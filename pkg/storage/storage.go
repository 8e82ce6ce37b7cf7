package storage

import (
	"context"
	"errors"

	"github.com/ogulcanaydogan/aussiebb-go/pkg/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines the persistence layer for archived usage.
type Storage interface {
	// SaveUsageDays upserts usage days for a service in one transaction.
	SaveUsageDays(ctx context.Context, serviceID model.ServiceID, days []model.UsageDay) error

	// QueryUsageDays returns archived days matching the filter, oldest first.
	QueryUsageDays(ctx context.Context, filter model.ArchiveFilter) ([]model.UsageDay, error)

	// AggregateUsage returns totals and per-month sums for the filter.
	AggregateUsage(ctx context.Context, filter model.ArchiveFilter) (*model.UsageSummary, error)

	// RecordOverview persists an overview snapshot.
	RecordOverview(ctx context.Context, snapshot *model.OverviewSnapshot) error

	// LatestOverview returns the most recent snapshot for a service.
	LatestOverview(ctx context.Context, serviceID model.ServiceID) (*model.OverviewSnapshot, error)

	// Close releases resources.
	Close() error
}
