package account

import (
	"context"
	"sync"

	"github.com/ogulcanaydogan/aussiebb-go/pkg/cache"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/history"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/model"
)

// Service is a broadband service with its own usage caches.
type Service struct {
	mu   sync.RWMutex
	info model.Service

	overview *cache.Cached[*model.UsageOverview]
	history  *cache.Cached[*history.Cache]
}

func (a *Account) newService(info model.Service) *Service {
	s := &Service{info: info}
	id, rollover := info.ID, info.RolloverDay

	s.overview = cache.New(a.refresh, func(ctx context.Context) (*model.UsageOverview, error) {
		return a.api.UsageOverview(ctx, id)
	}, a.cacheOpts...)

	s.history = cache.New(a.refresh, func(context.Context) (*history.Cache, error) {
		return history.New(a.api, id, rollover, a.logger, a.historyOpts...), nil
	}, a.cacheOpts...)

	return s
}

// ID returns the service identifier.
func (s *Service) ID() model.ServiceID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info.ID
}

// RolloverDay returns the day of month the usage period resets.
func (s *Service) RolloverDay() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info.RolloverDay
}

// Info returns the service details from the last customer refresh.
func (s *Service) Info() model.Service {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

func (s *Service) setInfo(info model.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.info = info
}

// Overview returns the usage summary for the current billing period.
func (s *Service) Overview(ctx context.Context) (*model.UsageOverview, error) {
	return s.overview.Get(ctx)
}

// History returns the service's historic usage cache. The cache is replaced
// with an empty one once the refresh interval has passed, so days that were
// missing from an earlier fetch are requested again.
func (s *Service) History(ctx context.Context) (*history.Cache, error) {
	return s.history.Get(ctx)
}

// Usage looks up historic usage for a YYYY, YYYY-MM or YYYY-MM-DD key.
func (s *Service) Usage(ctx context.Context, key string) ([]model.UsageDay, error) {
	h, err := s.History(ctx)
	if err != nil {
		return nil, err
	}
	return h.Get(ctx, key)
}
