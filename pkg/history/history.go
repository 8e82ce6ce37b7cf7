// Package history resolves calendar lookups against the provider's per-period
// usage endpoint and memoizes every day it has fetched.
//
// The provider groups daily usage into billing periods that open on a
// service's rollover day. The endpoint for month M returns the days from the
// rollover day of M up to the day before the rollover day of M+1, so a day
// that falls before the rollover day is served by the previous month's
// endpoint.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ogulcanaydogan/aussiebb-go/pkg/model"
)

// Fetcher performs an authenticated GET against the API and decodes the JSON
// body into out.
type Fetcher interface {
	Get(ctx context.Context, path string, out any) error
}

// Lookup outcomes reported to a Recorder.
const (
	LookupHit     = "hit"
	LookupFetched = "fetched"
	LookupAbsent  = "absent"
)

// Recorder observes per-day lookup outcomes.
type Recorder interface {
	RecordLookup(serviceID string, outcome string)
}

// Option configures a Cache.
type Option func(*Cache)

// WithRecorder reports lookup outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(c *Cache) { c.recorder = r }
}

// Period is a billing period, named by the calendar month it opens in.
type Period struct {
	Year  int
	Month time.Month
}

// PeriodFor returns the billing period that contains d.
func PeriodFor(d time.Time, rolloverDay int) Period {
	year, month := d.Year(), d.Month()
	if d.Day() < rolloverDay {
		if month > time.January {
			month--
		} else {
			year--
			month = time.December
		}
	}
	return Period{Year: year, Month: month}
}

// Endpoint returns the API path holding the period's daily usage.
func (p Period) Endpoint(serviceID model.ServiceID) string {
	return fmt.Sprintf("broadband/%s/usage/%d/%d", serviceID, p.Year, int(p.Month))
}

func (p Period) String() string { return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month)) }

// Cache holds the historic usage of one service. It must not be shared
// between services: the rollover day decides which period a date is fetched
// from.
//
// Once a period has been fetched, days it did not contain are treated as
// having no data for the lifetime of the Cache. Owners replace the Cache on
// their refresh interval to pick up newly billed days.
type Cache struct {
	mu          sync.Mutex
	fetcher     Fetcher
	serviceID   model.ServiceID
	rolloverDay int
	days        map[string]model.UsageDay
	fetched     map[Period]bool
	recorder    Recorder
	logger      *slog.Logger
}

// New creates an empty history cache for a service.
func New(fetcher Fetcher, serviceID model.ServiceID, rolloverDay int, logger *slog.Logger, opts ...Option) *Cache {
	c := &Cache{
		fetcher:     fetcher,
		serviceID:   serviceID,
		rolloverDay: rolloverDay,
		days:        make(map[string]model.UsageDay),
		fetched:     make(map[Period]bool),
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the usage days covered by key, which is YYYY, YYYY-MM or
// YYYY-MM-DD. Days with no data are left out, so a single-day lookup with no
// data yields an empty slice. Malformed keys fail with ErrMalformedKey before
// any request is made; fetch failures are returned as the Fetcher reported
// them.
func (c *Cache) Get(ctx context.Context, key string) ([]model.UsageDay, error) {
	q, err := ParseQuery(key)
	if err != nil {
		return nil, err
	}
	return c.Lookup(ctx, q)
}

// Lookup is Get for an already parsed query.
func (c *Cache) Lookup(ctx context.Context, q Query) ([]model.UsageDay, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := []model.UsageDay{}
	for _, d := range q.Days() {
		day, ok, err := c.resolve(ctx, d)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, day)
		}
	}
	return out, nil
}

// Set stores a day under key, replacing any existing entry. Key must be a
// YYYY-MM-DD date.
func (c *Cache) Set(key string, day model.UsageDay) error {
	if _, err := parseDateKey(key); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.days[key] = day
	return nil
}

// Len returns the number of cached days.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.days)
}

// ServiceID returns the service the cache belongs to.
func (c *Cache) ServiceID() model.ServiceID { return c.serviceID }

// RolloverDay returns the day of month the service's usage period resets.
func (c *Cache) RolloverDay() int { return c.rolloverDay }

func (c *Cache) resolve(ctx context.Context, d time.Time) (model.UsageDay, bool, error) {
	key := d.Format(model.DateLayout)
	if day, ok := c.days[key]; ok {
		c.record(LookupHit)
		return day, true, nil
	}

	p := PeriodFor(d, c.rolloverDay)
	if !c.fetched[p] {
		if err := c.fetchPeriod(ctx, p); err != nil {
			return model.UsageDay{}, false, err
		}
		if day, ok := c.days[key]; ok {
			c.record(LookupFetched)
			return day, true, nil
		}
	}

	c.record(LookupAbsent)
	return model.UsageDay{}, false, nil
}

type periodResponse struct {
	Data []periodEntry `json:"data"`
}

type periodEntry struct {
	Date     string  `json:"date"`
	Download float64 `json:"download"`
	Upload   float64 `json:"upload"`
}

// fetchPeriod loads one period and stores every day it returns. The batch is
// validated in full before anything is stored.
func (c *Cache) fetchPeriod(ctx context.Context, p Period) error {
	var resp periodResponse
	if err := c.fetcher.Get(ctx, p.Endpoint(c.serviceID), &resp); err != nil {
		return err
	}

	batch := make(map[string]model.UsageDay, len(resp.Data))
	for i, e := range resp.Data {
		d, err := parseDateKey(e.Date)
		if err != nil {
			return fmt.Errorf("usage period %s entry %d: %w", p, i, err)
		}
		if e.Download < 0 || e.Upload < 0 {
			return fmt.Errorf("usage period %s entry %d: negative usage on %s", p, i, e.Date)
		}
		batch[e.Date] = model.UsageDay{Date: d, DownloadMB: e.Download, UploadMB: e.Upload}
	}

	for k, v := range batch {
		c.days[k] = v
	}
	c.fetched[p] = true

	c.logger.Debug("usage period fetched",
		"service_id", c.serviceID,
		"period", p.String(),
		"days", len(batch),
	)
	return nil
}

func (c *Cache) record(outcome string) {
	if c.recorder != nil {
		c.recorder.RecordLookup(string(c.serviceID), outcome)
	}
}
