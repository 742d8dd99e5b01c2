package service

import (
	"context"
	"countrydash/internal/cache"
	"countrydash/internal/domain"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CountryClient defines the interface for an external country data source.
// This allows us to mock the client in tests.
type CountryClient interface {
	FetchAll(ctx context.Context) (*domain.Snapshot, error)
	Endpoint() string
}

// TableService hands out the shaped country table.
type TableService interface {
	// Table always returns a usable table. On a failed fetch it is empty and
	// the error is a *FetchFailure.
	Table(ctx context.Context) (*domain.CountryTable, error)
	// Invalidate drops the memoized table so the next call re-fetches.
	Invalidate()
	Status() Status
}

// FetchFailure reports that the upstream data could not be obtained.
type FetchFailure struct {
	Endpoint string
	Err      error
}

func (f *FetchFailure) Error() string {
	return fmt.Sprintf("could not fetch country data from %s: %v", f.Endpoint, f.Err)
}

func (f *FetchFailure) Unwrap() error { return f.Err }

// Status summarizes the service state for health reporting.
type Status struct {
	Cached    bool      `json:"cached"`
	Version   string    `json:"version,omitempty"`
	Rows      int       `json:"rows"`
	FetchedAt time.Time `json:"fetched_at,omitempty"`
	// CacheAgeSeconds is how long the table has been memoized.
	CacheAgeSeconds float64   `json:"cache_age_seconds,omitempty"`
	LastError       string    `json:"last_error,omitempty"`
	LastFailureAt   time.Time `json:"last_failure_at,omitempty"`
}

type tableService struct {
	cache  cache.Cache
	client CountryClient
	logger *zap.Logger
	group  singleflight.Group

	mu            sync.Mutex
	lastError     string
	lastFailureAt time.Time
	now           func() time.Time
}

// NewTableService creates the cache-first table service.
func NewTableService(c cache.Cache, client CountryClient, logger *zap.Logger) TableService {
	return &tableService{
		cache:  c,
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// Table retrieves the country table, using a cache-first strategy.
func (s *tableService) Table(ctx context.Context) (*domain.CountryTable, error) {
	key := s.client.Endpoint()

	if table, ok := s.cached(key); ok {
		s.logger.Debug("CACHE HIT", zap.String("key", key), zap.Int("rows", table.Len()))
		return table, nil
	}

	// Concurrent misses share one fetch. The fetch is detached from any single
	// caller's cancellation; each caller still stops waiting on its own ctx.
	ch := s.group.DoChan(key, func() (interface{}, error) {
		return s.load(context.WithoutCancel(ctx), key)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return domain.EmptyTable(), s.fail(key, res.Err)
		}
		return res.Val.(*domain.CountryTable), nil
	case <-ctx.Done():
		return domain.EmptyTable(), s.fail(key, ctx.Err())
	}
}

func (s *tableService) load(ctx context.Context, key string) (*domain.CountryTable, error) {
	// Another flight may have filled the cache between our miss and now.
	if table, ok := s.cached(key); ok {
		return table, nil
	}

	s.logger.Info("CACHE MISS: fetching country data", zap.String("key", key))
	snap, err := s.client.FetchAll(ctx)
	if err != nil {
		return nil, err
	}

	table := domain.Shape(snap.Records).Stamp(snap.Version, snap.FetchedAt)
	s.cache.Set(key, table)
	s.logger.Info("CACHE SET",
		zap.String("key", key),
		zap.Int("rows", table.Len()),
		zap.String("version", table.Version()))

	s.mu.Lock()
	s.lastError = ""
	s.mu.Unlock()
	return table, nil
}

func (s *tableService) cached(key string) (*domain.CountryTable, bool) {
	v, found := s.cache.Get(key)
	if !found {
		return nil, false
	}
	table, ok := v.(*domain.CountryTable)
	return table, ok
}

func (s *tableService) fail(key string, err error) *FetchFailure {
	s.logger.Error("Failed to load country table", zap.String("key", key), zap.Error(err))
	s.mu.Lock()
	s.lastError = err.Error()
	s.lastFailureAt = s.now()
	s.mu.Unlock()
	return &FetchFailure{Endpoint: key, Err: err}
}

// Invalidate drops the memoized table.
func (s *tableService) Invalidate() {
	key := s.client.Endpoint()
	s.cache.Delete(key)
	s.logger.Info("CACHE INVALIDATED", zap.String("key", key))
}

// Status reports what is currently cached and the last failure, if any.
func (s *tableService) Status() Status {
	var st Status
	key := s.client.Endpoint()
	if table, ok := s.cached(key); ok {
		st.Cached = true
		st.Version = table.Version()
		st.Rows = table.Len()
		st.FetchedAt = table.FetchedAt()
		if age, ok := s.cache.Age(key); ok {
			st.CacheAgeSeconds = age.Seconds()
		}
	}
	s.mu.Lock()
	st.LastError = s.lastError
	st.LastFailureAt = s.lastFailureAt
	s.mu.Unlock()
	return st
}
