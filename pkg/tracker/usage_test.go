package tracker_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/ogulcanaydogan/aussiebb-go/internal/fakeapi"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/account"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/client"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/history"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/model"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/storage"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAccount(t *testing.T, services ...fakeapi.Service) (*account.Account, *fakeapi.Server) {
	t.Helper()
	api := fakeapi.New(t, services...)
	c, err := client.New(testLogger(), client.WithBaseURLs(api.AuthURL(), api.APIURL()))
	require.NoError(t, err)
	require.NoError(t, c.Login(context.Background(), fakeapi.Username, fakeapi.Password))
	return account.New(c, time.Minute, testLogger()), api
}

func newTestTracker(t *testing.T, services ...fakeapi.Service) (*tracker.UsageTracker, storage.Storage, *fakeapi.Server) {
	t.Helper()
	acct, api := newTestAccount(t, services...)

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return tracker.NewUsageTracker(acct, store, testLogger()), store, api
}

func TestUsageTracker_Sync(t *testing.T) {
	ut, store, api := newTestTracker(t, fakeapi.Service{ID: "1", RolloverDay: 1})
	ctx := context.Background()

	days, err := ut.Sync(ctx, "1", "2024-06")
	require.NoError(t, err)
	assert.Len(t, days, 30)
	assert.Equal(t, 1, api.Requests("broadband/1/usage/2024/6"))

	archived, err := store.QueryUsageDays(ctx, model.ArchiveFilter{ServiceID: "1"})
	require.NoError(t, err)
	require.Len(t, archived, 30)
	assert.Equal(t, "2024-06-01", archived[0].Key())
	down, up := fakeapi.DayUsage(archived[0].Date)
	assert.Equal(t, down, archived[0].DownloadMB)
	assert.Equal(t, up, archived[0].UploadMB)
}

func TestUsageTracker_Sync_Idempotent(t *testing.T) {
	ut, store, _ := newTestTracker(t, fakeapi.Service{ID: "1", RolloverDay: 15})
	ctx := context.Background()

	_, err := ut.Sync(ctx, "1", "2024-06-20")
	require.NoError(t, err)
	_, err = ut.Sync(ctx, "1", "2024-06-20")
	require.NoError(t, err)

	archived, err := store.QueryUsageDays(ctx, model.ArchiveFilter{})
	require.NoError(t, err)
	assert.Len(t, archived, 1)
}

func TestUsageTracker_Sync_MalformedKey(t *testing.T) {
	ut, _, api := newTestTracker(t, fakeapi.Service{ID: "1", RolloverDay: 1})

	_, err := ut.Sync(context.Background(), "1", "2024-13")
	assert.ErrorIs(t, err, history.ErrMalformedKey)
	assert.Equal(t, 0, api.Requests("broadband/1/usage/2024/13"))
}

func TestUsageTracker_Sync_UnknownService(t *testing.T) {
	ut, _, _ := newTestTracker(t, fakeapi.Service{ID: "1", RolloverDay: 1})

	_, err := ut.Sync(context.Background(), "2", "2024-06-01")
	assert.ErrorIs(t, err, account.ErrServiceNotFound)
}

func TestUsageTracker_Sync_UpstreamError(t *testing.T) {
	ut, store, api := newTestTracker(t, fakeapi.Service{ID: "1", RolloverDay: 1})
	api.Fail("broadband/1/usage/2024/6", http.StatusServiceUnavailable)
	ctx := context.Background()

	_, err := ut.Sync(ctx, "1", "2024-06-10")
	var httpErr *client.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.Status)

	archived, err := store.QueryUsageDays(ctx, model.ArchiveFilter{})
	require.NoError(t, err)
	assert.Empty(t, archived)
}

func TestUsageTracker_Report(t *testing.T) {
	ut, _, _ := newTestTracker(t, fakeapi.Service{ID: "1", RolloverDay: 1})
	ctx := context.Background()

	_, err := ut.Sync(ctx, "1", "2024-05")
	require.NoError(t, err)
	_, err = ut.Sync(ctx, "1", "2024-06")
	require.NoError(t, err)

	summary, err := ut.Report(ctx, model.ArchiveFilter{ServiceID: "1"})
	require.NoError(t, err)
	assert.Equal(t, int64(61), summary.DayCount)
	require.Len(t, summary.ByMonth, 2)
	assert.Equal(t, "2024-05", summary.ByMonth[0].Month)
	// Sum of day-of-month * 100 over May.
	assert.InDelta(t, 49600.0, summary.ByMonth[0].DownloadMB, 0.001)

	june, err := ut.Query(ctx, model.ArchiveFilter{
		ServiceID: "1",
		From:      time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Len(t, june, 30)
}

func TestUsageTracker_SnapshotOverview(t *testing.T) {
	remaining := 1000.0
	ut, store, _ := newTestTracker(t, fakeapi.Service{ID: "1", RolloverDay: 1, UsedMB: 250, RemainingMB: &remaining})
	ctx := context.Background()

	snap, err := ut.SnapshotOverview(ctx, "1")
	require.NoError(t, err)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, 250.0, snap.Overview.UsedMB)

	latest, err := store.LatestOverview(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, snap.ID, latest.ID)
	require.NotNil(t, latest.Overview.RemainingMB)
	assert.Equal(t, 1000.0, *latest.Overview.RemainingMB)
}
