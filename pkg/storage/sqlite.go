package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLite implements the Storage interface using an SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates an SQLite database at the given path.
func NewSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) SaveUsageDays(ctx context.Context, serviceID model.ServiceID, days []model.UsageDay) error {
	if len(days) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO usage_days (service_id, date, download_mb, upload_mb, fetched_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(service_id, date) DO UPDATE SET
		   download_mb = excluded.download_mb,
		   upload_mb = excluded.upload_mb,
		   fetched_at = excluded.fetched_at`)
	if err != nil {
		return fmt.Errorf("prepare usage upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, d := range days {
		if _, err := stmt.ExecContext(ctx, serviceID.String(), d.Key(), d.DownloadMB, d.UploadMB, now); err != nil {
			return fmt.Errorf("upsert usage day %s: %w", d.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit usage days: %w", err)
	}
	return nil
}

func (s *SQLite) QueryUsageDays(ctx context.Context, filter model.ArchiveFilter) ([]model.UsageDay, error) {
	query := "SELECT date, download_mb, upload_mb FROM usage_days"
	where, args := buildWhereClause(filter)
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY date ASC, service_id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query usage days: %w", err)
	}
	defer rows.Close()

	var days []model.UsageDay
	for rows.Next() {
		var (
			d    model.UsageDay
			date string
		)
		if err := rows.Scan(&date, &d.DownloadMB, &d.UploadMB); err != nil {
			return nil, fmt.Errorf("scan usage day: %w", err)
		}
		d.Date, err = time.Parse(model.DateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("parse archived date %q: %w", date, err)
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

func (s *SQLite) AggregateUsage(ctx context.Context, filter model.ArchiveFilter) (*model.UsageSummary, error) {
	query := `SELECT
		COALESCE(SUM(download_mb), 0),
		COALESCE(SUM(upload_mb), 0),
		COUNT(*)
	FROM usage_days`
	where, args := buildWhereClause(filter)
	if where != "" {
		query += " WHERE " + where
	}

	summary := &model.UsageSummary{}
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&summary.TotalDownloadMB,
		&summary.TotalUploadMB,
		&summary.DayCount,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate usage: %w", err)
	}

	summary.ByMonth, err = s.aggregateByMonth(ctx, where, args)
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *SQLite) aggregateByMonth(ctx context.Context, where string, args []any) ([]model.MonthTotals, error) {
	query := `SELECT substr(date, 1, 7) AS month,
		COALESCE(SUM(download_mb), 0),
		COALESCE(SUM(upload_mb), 0),
		COUNT(*)
	FROM usage_days`
	if where != "" {
		query += " WHERE " + where
	}
	query += " GROUP BY month ORDER BY month ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("aggregate by month: %w", err)
	}
	defer rows.Close()

	var months []model.MonthTotals
	for rows.Next() {
		var m model.MonthTotals
		if err := rows.Scan(&m.Month, &m.DownloadMB, &m.UploadMB, &m.Days); err != nil {
			return nil, fmt.Errorf("scan month aggregate: %w", err)
		}
		months = append(months, m)
	}
	return months, rows.Err()
}

func (s *SQLite) RecordOverview(ctx context.Context, snapshot *model.OverviewSnapshot) error {
	if snapshot.ID == "" {
		snapshot.ID = uuid.New().String()
	}
	if snapshot.RecordedAt.IsZero() {
		snapshot.RecordedAt = time.Now().UTC()
	}

	ov := snapshot.Overview
	var remaining sql.NullFloat64
	if ov.RemainingMB != nil {
		remaining = sql.NullFloat64{Float64: *ov.RemainingMB, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO overview_snapshots (id, service_id, used_mb, downloaded_mb, uploaded_mb, remaining_mb,
		   days_total, days_remaining, last_updated, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snapshot.ID, snapshot.ServiceID.String(), ov.UsedMB, ov.DownloadedMB, ov.UploadedMB, remaining,
		ov.DaysTotal, ov.DaysRemaining, ov.LastUpdated, snapshot.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert overview snapshot: %w", err)
	}
	return nil
}

func (s *SQLite) LatestOverview(ctx context.Context, serviceID model.ServiceID) (*model.OverviewSnapshot, error) {
	var (
		snap      model.OverviewSnapshot
		id        string
		remaining sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, service_id, used_mb, downloaded_mb, uploaded_mb, remaining_mb,
		   days_total, days_remaining, last_updated, recorded_at
		 FROM overview_snapshots WHERE service_id = ?
		 ORDER BY recorded_at DESC LIMIT 1`, serviceID.String(),
	).Scan(&snap.ID, &id, &snap.Overview.UsedMB, &snap.Overview.DownloadedMB, &snap.Overview.UploadedMB,
		&remaining, &snap.Overview.DaysTotal, &snap.Overview.DaysRemaining, &snap.Overview.LastUpdated,
		&snap.RecordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("overview for service %s: %w", serviceID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get latest overview: %w", err)
	}

	snap.ServiceID = model.ServiceID(id)
	if remaining.Valid {
		v := remaining.Float64
		snap.Overview.RemainingMB = &v
	}
	return &snap, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// buildWhereClause constructs a SQL WHERE clause from an ArchiveFilter.
func buildWhereClause(filter model.ArchiveFilter) (string, []any) {
	var conditions []string
	var args []any

	if filter.ServiceID != "" {
		conditions = append(conditions, "service_id = ?")
		args = append(args, filter.ServiceID.String())
	}
	if !filter.From.IsZero() {
		conditions = append(conditions, "date >= ?")
		args = append(args, filter.From.Format(model.DateLayout))
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, "date < ?")
		args = append(args, filter.To.Format(model.DateLayout))
	}

	return strings.Join(conditions, " AND "), args
}
