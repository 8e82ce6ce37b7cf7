package account_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/ogulcanaydogan/aussiebb-go/internal/fakeapi"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/account"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/client"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestAccount(t *testing.T, services ...fakeapi.Service) (*account.Account, *fakeapi.Server, *fakeClock) {
	t.Helper()
	api := fakeapi.New(t, services...)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	c, err := client.New(logger, client.WithBaseURLs(api.AuthURL(), api.APIURL()))
	require.NoError(t, err)
	require.NoError(t, c.Login(context.Background(), fakeapi.Username, fakeapi.Password))

	clock := &fakeClock{t: time.Date(2024, time.July, 16, 9, 0, 0, 0, time.UTC)}
	acct := account.New(c, time.Minute, logger, account.WithClock(clock.Now))
	return acct, api, clock
}

func TestAccount_DefaultRefresh(t *testing.T) {
	acct := account.New(nil, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Equal(t, account.DefaultRefresh, acct.Refresh())
}

func TestAccount_CustomerIsCached(t *testing.T) {
	acct, api, clock := newTestAccount(t, fakeapi.Service{ID: "1", RolloverDay: 1})
	ctx := context.Background()

	_, err := acct.Customer(ctx)
	require.NoError(t, err)
	_, err = acct.Services(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, api.Requests("customer"))

	clock.Advance(time.Minute + time.Second)
	_, err = acct.Customer(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, api.Requests("customer"))
}

func TestAccount_ServiceLookup(t *testing.T) {
	acct, _, _ := newTestAccount(t,
		fakeapi.Service{ID: "1", RolloverDay: 1},
		fakeapi.Service{ID: "2", RolloverDay: 15},
	)
	ctx := context.Background()

	services, err := acct.Services(ctx)
	require.NoError(t, err)
	require.Len(t, services, 2)
	assert.Equal(t, model.ServiceID("1"), services[0].ID())
	assert.Equal(t, model.ServiceID("2"), services[1].ID())

	svc, err := acct.Service(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, 15, svc.RolloverDay())

	_, err = acct.Service(ctx, "nope")
	assert.ErrorIs(t, err, account.ErrServiceNotFound)
}

func TestService_OverviewIsCached(t *testing.T) {
	remaining := 1000.0
	acct, api, clock := newTestAccount(t, fakeapi.Service{ID: "1", RolloverDay: 1, UsedMB: 250, RemainingMB: &remaining})
	ctx := context.Background()

	svc, err := acct.Service(ctx, "1")
	require.NoError(t, err)

	ov, err := svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 250.0, ov.UsedMB)
	_, err = svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, api.Requests("broadband/1/usage"))

	clock.Advance(2 * time.Minute)
	_, err = svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, api.Requests("broadband/1/usage"))
}

func TestService_UsageUsesRollover(t *testing.T) {
	acct, api, _ := newTestAccount(t, fakeapi.Service{ID: "1", RolloverDay: 28})
	ctx := context.Background()

	svc, err := acct.Service(ctx, "1")
	require.NoError(t, err)

	days, err := svc.Usage(ctx, "2024-07-05")
	require.NoError(t, err)
	require.Len(t, days, 1)
	down, up := fakeapi.DayUsage(days[0].Date)
	assert.Equal(t, down, days[0].DownloadMB)
	assert.Equal(t, up, days[0].UploadMB)
	assert.Equal(t, 1, api.Requests("broadband/1/usage/2024/6"))

	_, err = svc.Usage(ctx, "2024-06-29")
	require.NoError(t, err)
	assert.Equal(t, 1, api.Requests("broadband/1/usage/2024/6"))
}

func TestService_HistoryRefreshesAfterInterval(t *testing.T) {
	acct, api, clock := newTestAccount(t, fakeapi.Service{ID: "1", RolloverDay: 1})
	api.Until(time.Date(2024, time.July, 15, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	svc, err := acct.Service(ctx, "1")
	require.NoError(t, err)

	days, err := svc.Usage(ctx, "2024-07-16")
	require.NoError(t, err)
	assert.Empty(t, days)

	// Known absent for the lifetime of the cache.
	days, err = svc.Usage(ctx, "2024-07-16")
	require.NoError(t, err)
	assert.Empty(t, days)
	assert.Equal(t, 1, api.Requests("broadband/1/usage/2024/7"))

	// Billed later, picked up once the history cache is replaced.
	api.Until(time.Date(2024, time.July, 16, 0, 0, 0, 0, time.UTC))
	clock.Advance(2 * time.Minute)
	days, err = svc.Usage(ctx, "2024-07-16")
	require.NoError(t, err)
	assert.Len(t, days, 1)
	assert.Equal(t, 2, api.Requests("broadband/1/usage/2024/7"))
}

func TestService_CachesSurviveCustomerRefresh(t *testing.T) {
	acct, api, clock := newTestAccount(t, fakeapi.Service{ID: "1", RolloverDay: 1})
	ctx := context.Background()

	svc, err := acct.Service(ctx, "1")
	require.NoError(t, err)
	h1, err := svc.History(ctx)
	require.NoError(t, err)

	// A customer refresh keeps the service object and its caches.
	clock.Advance(2 * time.Minute)
	again, err := acct.Service(ctx, "1")
	require.NoError(t, err)
	assert.Same(t, svc, again)
	assert.Equal(t, 2, api.Requests("customer"))
	assert.NotNil(t, h1)

	api.SetServices(fakeapi.Service{ID: "1", RolloverDay: 20})
	clock.Advance(2 * time.Minute)
	changed, err := acct.Service(ctx, "1")
	require.NoError(t, err)
	assert.NotSame(t, svc, changed)
	assert.Equal(t, 20, changed.RolloverDay())

	h2, err := changed.History(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, h2.RolloverDay())
}

func TestService_UpstreamErrorSurfaces(t *testing.T) {
	acct, api, _ := newTestAccount(t, fakeapi.Service{ID: "1", RolloverDay: 1})
	api.Fail("broadband/1/usage/2024/3", http.StatusBadGateway)
	ctx := context.Background()

	svc, err := acct.Service(ctx, "1")
	require.NoError(t, err)

	_, err = svc.Usage(ctx, "2024-03-10")
	var httpErr *client.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadGateway, httpErr.Status)
}
