package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ogulcanaydogan/aussiebb-go/pkg/account"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/model"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/storage"
)

// UsageTracker archives live usage into storage and reports over the archive.
type UsageTracker struct {
	account *account.Account
	storage storage.Storage
	logger  *slog.Logger
	now     func() time.Time
}

// NewUsageTracker creates a usage tracker with the given dependencies.
func NewUsageTracker(acct *account.Account, store storage.Storage, logger *slog.Logger) *UsageTracker {
	return &UsageTracker{
		account: acct,
		storage: store,
		logger:  logger,
		now:     time.Now,
	}
}

// Sync looks up key in the service's history and archives the days found.
// Lookup errors are returned unwrapped so callers can inspect them.
func (t *UsageTracker) Sync(ctx context.Context, serviceID model.ServiceID, key string) ([]model.UsageDay, error) {
	svc, err := t.account.Service(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	days, err := svc.Usage(ctx, key)
	if err != nil {
		return nil, err
	}

	if err := t.Archive(ctx, serviceID, days); err != nil {
		return nil, err
	}

	t.logger.Info("usage synced", "service_id", serviceID, "key", key, "days", len(days))
	return days, nil
}

// Archive stores days fetched for a service.
func (t *UsageTracker) Archive(ctx context.Context, serviceID model.ServiceID, days []model.UsageDay) error {
	if err := t.storage.SaveUsageDays(ctx, serviceID, days); err != nil {
		return fmt.Errorf("archive usage: %w", err)
	}
	t.logger.Debug("usage archived", "service_id", serviceID, "days", len(days))
	return nil
}

// SnapshotOverview records the service's current overview.
func (t *UsageTracker) SnapshotOverview(ctx context.Context, serviceID model.ServiceID) (*model.OverviewSnapshot, error) {
	svc, err := t.account.Service(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	ov, err := svc.Overview(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := &model.OverviewSnapshot{
		ServiceID:  serviceID,
		Overview:   *ov,
		RecordedAt: t.now().UTC(),
	}
	if err := t.storage.RecordOverview(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("store overview: %w", err)
	}

	t.logger.Debug("overview recorded", "service_id", serviceID, "used_mb", ov.UsedMB)
	return snapshot, nil
}

// Report generates a usage summary for the given filter.
func (t *UsageTracker) Report(ctx context.Context, filter model.ArchiveFilter) (*model.UsageSummary, error) {
	return t.storage.AggregateUsage(ctx, filter)
}

// Query returns archived usage days for the given filter.
func (t *UsageTracker) Query(ctx context.Context, filter model.ArchiveFilter) ([]model.UsageDay, error) {
	return t.storage.QueryUsageDays(ctx, filter)
}
