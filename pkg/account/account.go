// Package account is the entry point for reading a customer's services and
// their usage. Every remote value is cached for the account's refresh
// interval.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ogulcanaydogan/aussiebb-go/pkg/cache"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/client"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/history"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/model"
)

// DefaultRefresh is how long fetched data is considered current.
const DefaultRefresh = 120 * time.Second

// ErrServiceNotFound is returned for a service ID the account does not have.
var ErrServiceNotFound = errors.New("service not found")

// API is the subset of the client an Account needs.
type API interface {
	history.Fetcher
	Customer(ctx context.Context) (*model.Customer, error)
	UsageOverview(ctx context.Context, id model.ServiceID) (*model.UsageOverview, error)
}

var _ API = (*client.Client)(nil)

// Option configures an Account.
type Option func(*Account)

// WithClock overrides the time source for every cache the account creates.
func WithClock(now func() time.Time) Option {
	return func(a *Account) { a.cacheOpts = append(a.cacheOpts, cache.WithClock(now)) }
}

// WithHistoryRecorder reports history lookups to r.
func WithHistoryRecorder(r history.Recorder) Option {
	return func(a *Account) { a.historyOpts = append(a.historyOpts, history.WithRecorder(r)) }
}

// Account is the customer account behind a logged in client.
type Account struct {
	api         API
	refresh     time.Duration
	logger      *slog.Logger
	cacheOpts   []cache.Option
	historyOpts []history.Option

	customer *cache.Cached[*model.Customer]

	mu       sync.Mutex
	services map[model.ServiceID]*Service
}

// New creates an account backed by api. A refresh of zero uses DefaultRefresh.
func New(api API, refresh time.Duration, logger *slog.Logger, opts ...Option) *Account {
	if refresh == 0 {
		refresh = DefaultRefresh
	}
	a := &Account{
		api:      api,
		refresh:  refresh,
		logger:   logger,
		services: make(map[model.ServiceID]*Service),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.customer = cache.New(refresh, a.loadCustomer, a.cacheOpts...)
	return a
}

// Refresh returns the account's refresh interval.
func (a *Account) Refresh() time.Duration { return a.refresh }

// Customer returns the customer record, fetching it if missing or stale.
func (a *Account) Customer(ctx context.Context) (*model.Customer, error) {
	return a.customer.Get(ctx)
}

// Services returns the account's services in the order the API lists them.
func (a *Account) Services(ctx context.Context) ([]*Service, error) {
	cust, err := a.Customer(ctx)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*Service, 0, len(cust.Services))
	for _, s := range cust.Services {
		if svc, ok := a.services[s.ID]; ok {
			out = append(out, svc)
		}
	}
	return out, nil
}

// Service returns the service with the given ID.
func (a *Account) Service(ctx context.Context, id model.ServiceID) (*Service, error) {
	services, err := a.Services(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range services {
		if s.ID() == id {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, id)
}

// loadCustomer fetches the customer and reconciles the service objects. A
// service keeps its caches across refreshes unless its rollover day changed.
func (a *Account) loadCustomer(ctx context.Context) (*model.Customer, error) {
	cust, err := a.api.Customer(ctx)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	next := make(map[model.ServiceID]*Service, len(cust.Services))
	for _, s := range cust.Services {
		if existing, ok := a.services[s.ID]; ok && existing.RolloverDay() == s.RolloverDay {
			existing.setInfo(s)
			next[s.ID] = existing
			continue
		}
		next[s.ID] = a.newService(s)
	}
	a.services = next

	a.logger.Debug("customer refreshed", "customer_number", cust.Number, "services", len(cust.Services))
	return cust, nil
}
