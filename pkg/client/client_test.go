package client_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ogulcanaydogan/aussiebb-go/internal/fakeapi"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/client"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, api *fakeapi.Server, opts ...client.Option) *client.Client {
	t.Helper()
	opts = append([]client.Option{client.WithBaseURLs(api.AuthURL(), api.APIURL())}, opts...)
	c, err := client.New(discardLogger(), opts...)
	require.NoError(t, err)
	return c
}

func loggedIn(t *testing.T, api *fakeapi.Server, opts ...client.Option) *client.Client {
	t.Helper()
	c := newTestClient(t, api, opts...)
	require.NoError(t, c.Login(context.Background(), fakeapi.Username, fakeapi.Password))
	return c
}

func TestClient_Login(t *testing.T) {
	api := fakeapi.New(t)
	c := newTestClient(t, api)
	assert.False(t, c.Authenticated())

	err := c.Login(context.Background(), fakeapi.Username, fakeapi.Password)
	require.NoError(t, err)
	assert.True(t, c.Authenticated())
	assert.WithinDuration(t, time.Now().Add(time.Hour), c.TokenExpiry(), time.Minute)
}

func TestClient_Login_BadCredentials(t *testing.T) {
	api := fakeapi.New(t)
	c := newTestClient(t, api)

	err := c.Login(context.Background(), fakeapi.Username, "wrong")
	var httpErr *client.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Status)
	assert.False(t, c.Authenticated())
}

func TestClient_Login_NoCookies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"refreshToken":"r","expiresIn":60}`))
	}))
	defer srv.Close()

	c, err := client.New(discardLogger(), client.WithBaseURLs(srv.URL+"/", srv.URL+"/"))
	require.NoError(t, err)

	err = c.Login(context.Background(), "u", "p")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cookies")
	assert.False(t, c.Authenticated())
}

func TestClient_Login_MissingRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "myaussie_cookie", Value: "x", Path: "/"})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"expiresIn":60}`))
	}))
	defer srv.Close()

	c, err := client.New(discardLogger(), client.WithBaseURLs(srv.URL+"/", srv.URL+"/"))
	require.NoError(t, err)

	err = c.Login(context.Background(), "u", "p")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "refresh token")
}

func TestClient_Get_Unauthenticated(t *testing.T) {
	api := fakeapi.New(t)
	c := newTestClient(t, api)

	var out map[string]any
	err := c.Get(context.Background(), "customer", &out)
	assert.ErrorIs(t, err, client.ErrUnauthenticated)
	assert.Equal(t, 0, api.TotalRequests())
}

func TestClient_Get_HTTPError(t *testing.T) {
	api := fakeapi.New(t, fakeapi.Service{ID: "123", RolloverDay: 1})
	api.Fail("broadband/123/usage/2024/6", http.StatusInternalServerError)
	c := loggedIn(t, api)

	var out map[string]any
	err := c.Get(context.Background(), "broadband/123/usage/2024/6", &out)
	var httpErr *client.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusInternalServerError, httpErr.Status)
	assert.Contains(t, httpErr.URL, "broadband/123/usage/2024/6")
	assert.Contains(t, err.Error(), "status 500")
}

func TestClient_Get_SendsSessionCookie(t *testing.T) {
	api := fakeapi.New(t, fakeapi.Service{ID: "123", RolloverDay: 1})
	c := loggedIn(t, api)

	var out struct {
		Data []map[string]any `json:"data"`
	}
	err := c.Get(context.Background(), "/broadband/123/usage/2024/6", &out)
	require.NoError(t, err)
	assert.Len(t, out.Data, 30)
	assert.Equal(t, 1, api.Requests("broadband/123/usage/2024/6"))
}

func TestClient_Customer(t *testing.T) {
	remaining := 50000.0
	api := fakeapi.New(t,
		fakeapi.Service{ID: "31337", Plan: "NBN 100/40 Unlimited", RolloverDay: 28},
		fakeapi.Service{ID: "svc-2", Plan: "NBN 50/20 500GB", RolloverDay: 5, RemainingMB: &remaining},
	)
	c := loggedIn(t, api)

	cust, err := c.Customer(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1234567), cust.Number)
	assert.Equal(t, "Jane Citizen", cust.BillingName)
	assert.Equal(t, "PO Box 1, Brunswick VIC 3056", cust.PostalAddress)
	assert.InDelta(t, -12.50, cust.Balance, 0.001)
	assert.True(t, cust.OutagePrefs.SMS)
	assert.False(t, cust.OutagePrefs.SMSAfterHours)
	assert.True(t, cust.Permissions.ViewOrders)
	assert.False(t, cust.Permissions.PurchaseDataBlocks)

	require.Len(t, cust.Services, 2)
	svc := cust.Services[0]
	assert.Equal(t, model.ServiceID("31337"), svc.ID)
	assert.Equal(t, "NBN", svc.Type)
	assert.Equal(t, 28, svc.RolloverDay)
	assert.Equal(t, "Unit 4, 12 Example St, Brunswick VIC 3056", svc.Address)
	assert.Equal(t, "FTTP", svc.Connection.Product)
	assert.Equal(t, "Brunswick", svc.Connection.POI)
	assert.Equal(t, 100.0, svc.Connection.DownloadMbps)
	assert.Equal(t, time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC), svc.Connection.LastSpeedTest)
	assert.Equal(t, time.Date(2020, time.February, 14, 0, 0, 0, 0, time.UTC), svc.OpenDate)
	assert.Equal(t, model.ServiceID("svc-2"), cust.Services[1].ID)
}

func TestClient_UsageOverview(t *testing.T) {
	remaining := 400000.0
	api := fakeapi.New(t,
		fakeapi.Service{ID: "1", RolloverDay: 1, UsedMB: 100000, RemainingMB: &remaining},
		fakeapi.Service{ID: "2", RolloverDay: 1, UsedMB: 5000},
	)
	c := loggedIn(t, api)
	ctx := context.Background()

	ov, err := c.UsageOverview(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 100000.0, ov.UsedMB)
	require.NotNil(t, ov.RemainingMB)
	assert.Equal(t, 400000.0, *ov.RemainingMB)
	assert.Equal(t, 30, ov.DaysTotal)
	assert.Equal(t, 12, ov.DaysRemaining)
	assert.False(t, ov.Unmetered())

	unlimited, err := c.UsageOverview(ctx, "2")
	require.NoError(t, err)
	assert.True(t, unlimited.Unmetered())
}

type recordingObserver struct {
	endpoints []string
	statuses  []int
}

func (o *recordingObserver) ObserveRequest(endpoint string, status int, _ time.Duration) {
	o.endpoints = append(o.endpoints, endpoint)
	o.statuses = append(o.statuses, status)
}

func TestClient_Observer(t *testing.T) {
	api := fakeapi.New(t, fakeapi.Service{ID: "9", RolloverDay: 1})
	obs := &recordingObserver{}
	c := loggedIn(t, api, client.WithObserver(obs))
	ctx := context.Background()

	_, err := c.Customer(ctx)
	require.NoError(t, err)
	_, err = c.UsageOverview(ctx, "9")
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, c.Get(ctx, "broadband/9/usage/2024/1", &out))

	assert.Equal(t, []string{"login", "customer", "usage_overview", "usage_history"}, obs.endpoints)
	assert.Equal(t, []int{200, 200, 200, 200}, obs.statuses)
}
