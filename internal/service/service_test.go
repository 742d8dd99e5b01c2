package service

import (
	"context"
	"countrydash/internal/cache"
	"countrydash/internal/domain"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testEndpoint = "https://restcountries.test/v3.1/all"

// Mock for cache.Cache
type MockCache struct {
	GetFunc    func(key string) (interface{}, bool)
	SetFunc    func(key string, value interface{})
	DeleteFunc func(key string)
	AgeFunc    func(key string) (time.Duration, bool)
}

func (m *MockCache) Get(key string) (interface{}, bool) { return m.GetFunc(key) }
func (m *MockCache) Set(key string, value interface{})   { m.SetFunc(key, value) }
func (m *MockCache) Delete(key string)                  { m.DeleteFunc(key) }

func (m *MockCache) Age(key string) (time.Duration, bool) {
	if m.AgeFunc == nil {
		return 0, false
	}
	return m.AgeFunc(key)
}

// MockClient implements the service.CountryClient interface
type MockClient struct {
	FetchAllFunc func(ctx context.Context) (*domain.Snapshot, error)
}

func (m *MockClient) FetchAll(ctx context.Context) (*domain.Snapshot, error) {
	return m.FetchAllFunc(ctx)
}

func (m *MockClient) Endpoint() string { return testEndpoint }

func snapshot(names ...string) *domain.Snapshot {
	records := make([]domain.RawCountryRecord, len(names))
	for i, n := range names {
		records[i] = domain.RawCountryRecord{"name": map[string]interface{}{"common": n}}
	}
	return &domain.Snapshot{Records: records, Version: "v1", FetchedAt: time.Unix(1700000000, 0)}
}

func countingClient(calls *int32, snap *domain.Snapshot) *MockClient {
	return &MockClient{
		FetchAllFunc: func(ctx context.Context) (*domain.Snapshot, error) {
			atomic.AddInt32(calls, 1)
			return snap, nil
		},
	}
}

func TestTable_CacheHit(t *testing.T) {
	cachedTable := domain.NewCountryTable([]domain.CountryRow{{CountryName: "India"}})
	clientCalled := false

	mockCache := &MockCache{
		GetFunc: func(key string) (interface{}, bool) {
			assert.Equal(t, testEndpoint, key)
			return cachedTable, true
		},
		SetFunc: func(key string, value interface{}) {
			t.Fail()
		},
	}
	mockClient := &MockClient{
		FetchAllFunc: func(ctx context.Context) (*domain.Snapshot, error) {
			clientCalled = true
			return nil, nil
		},
	}

	svc := NewTableService(mockCache, mockClient, zap.NewNop())
	table, err := svc.Table(context.Background())

	require.NoError(t, err)
	assert.Same(t, cachedTable, table)
	assert.False(t, clientCalled, "Client should not be called on cache hit")
}

func TestTable_CacheMiss_Success(t *testing.T) {
	cacheSetCalled := false

	mockCache := &MockCache{
		GetFunc: func(key string) (interface{}, bool) { return nil, false },
		SetFunc: func(key string, value interface{}) {
			cacheSetCalled = true
			assert.Equal(t, testEndpoint, key)
			table, ok := value.(*domain.CountryTable)
			require.True(t, ok)
			assert.Equal(t, 2, table.Len())
		},
	}
	var calls int32
	svc := NewTableService(mockCache, countingClient(&calls, snapshot("Germany", "Kenya")), zap.NewNop())

	table, err := svc.Table(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "Germany", table.Row(0).CountryName)
	assert.Equal(t, "Kenya", table.Row(1).CountryName)
	assert.Equal(t, "v1", table.Version())
	assert.Equal(t, int32(1), calls)
	assert.True(t, cacheSetCalled, "Cache.Set should be called on cache miss")
}

func TestTable_SecondCallServedFromCache(t *testing.T) {
	var calls int32
	svc := NewTableService(cache.NewInMemoryCache(0), countingClient(&calls, snapshot("Peru")), zap.NewNop())

	first, err := svc.Table(context.Background())
	require.NoError(t, err)
	second, err := svc.Table(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "exactly one network call")
	assert.Same(t, first, second)
}

func TestTable_ClientErrorDegradesToEmptyTable(t *testing.T) {
	clientError := errors.New("API is down")
	cacheSetCalled := false

	mockCache := &MockCache{
		GetFunc: func(key string) (interface{}, bool) { return nil, false },
		SetFunc: func(key string, value interface{}) { cacheSetCalled = true },
	}
	mockClient := &MockClient{
		FetchAllFunc: func(ctx context.Context) (*domain.Snapshot, error) {
			return nil, clientError
		},
	}

	svc := NewTableService(mockCache, mockClient, zap.NewNop())
	table, err := svc.Table(context.Background())

	require.Error(t, err)
	require.NotNil(t, table)
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, domain.Columns(), table.Columns())

	var failure *FetchFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, testEndpoint, failure.Endpoint)
	assert.True(t, errors.Is(err, clientError))
	assert.False(t, cacheSetCalled, "Cache.Set should not be called when client fails")

	st := svc.Status()
	assert.False(t, st.Cached)
	assert.Equal(t, "API is down", st.LastError)
	assert.False(t, st.LastFailureAt.IsZero())
}

func TestTable_FailureIsNotCached(t *testing.T) {
	var calls int32
	mockClient := &MockClient{
		FetchAllFunc: func(ctx context.Context) (*domain.Snapshot, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				return nil, errors.New("temporary outage")
			}
			return snapshot("Chile"), nil
		},
	}
	svc := NewTableService(cache.NewInMemoryCache(0), mockClient, zap.NewNop())

	_, err := svc.Table(context.Background())
	require.Error(t, err)

	table, err := svc.Table(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
	assert.Equal(t, int32(2), calls)
	assert.Empty(t, svc.Status().LastError)
}

func TestTable_ConcurrentColdMissesFetchOnce(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	mockClient := &MockClient{
		FetchAllFunc: func(ctx context.Context) (*domain.Snapshot, error) {
			atomic.AddInt32(&calls, 1)
			<-release
			return snapshot("Brazil"), nil
		},
	}
	svc := NewTableService(cache.NewInMemoryCache(0), mockClient, zap.NewNop())

	var wg sync.WaitGroup
	numRequests := 20
	for i := 0; i < numRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			table, err := svc.Table(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "Brazil", table.Row(0).CountryName)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "cold cache should trigger a single fetch")
}

func TestTable_TTLExpiryRefetches(t *testing.T) {
	var calls int32
	svc := NewTableService(cache.NewInMemoryCache(20*time.Millisecond), countingClient(&calls, snapshot("Oman")), zap.NewNop())

	_, err := svc.Table(context.Background())
	require.NoError(t, err)
	_, err = svc.Table(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	time.Sleep(30 * time.Millisecond)

	_, err = svc.Table(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestInvalidate(t *testing.T) {
	var calls int32
	svc := NewTableService(cache.NewInMemoryCache(0), countingClient(&calls, snapshot("Laos")), zap.NewNop())

	_, err := svc.Table(context.Background())
	require.NoError(t, err)
	assert.True(t, svc.Status().Cached)

	svc.Invalidate()
	assert.False(t, svc.Status().Cached)

	_, err = svc.Table(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestTable_CallerCancelled(t *testing.T) {
	release := make(chan struct{})
	done := make(chan struct{})
	mockClient := &MockClient{
		FetchAllFunc: func(ctx context.Context) (*domain.Snapshot, error) {
			defer close(done)
			<-release
			return snapshot("Mali"), nil
		},
	}
	svc := NewTableService(cache.NewInMemoryCache(0), mockClient, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	table, err := svc.Table(ctx)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, table.Len())

	// The detached fetch still completes and fills the cache.
	close(release)
	<-done
	require.Eventually(t, func() bool { return svc.Status().Cached }, time.Second, 10*time.Millisecond)
}

func TestStatus(t *testing.T) {
	var calls int32
	svc := NewTableService(cache.NewInMemoryCache(0), countingClient(&calls, snapshot("Togo", "Benin")), zap.NewNop())

	assert.Equal(t, Status{}, svc.Status())

	_, err := svc.Table(context.Background())
	require.NoError(t, err)

	st := svc.Status()
	assert.True(t, st.Cached)
	assert.Equal(t, "v1", st.Version)
	assert.Equal(t, 2, st.Rows)
	assert.Equal(t, time.Unix(1700000000, 0), st.FetchedAt)
}

func TestStatus_ReportsCacheAge(t *testing.T) {
	table := domain.NewCountryTable([]domain.CountryRow{{CountryName: "Togo"}}).Stamp("v2", time.Unix(1700000000, 0))
	mockCache := &MockCache{
		GetFunc: func(key string) (interface{}, bool) { return table, true },
		AgeFunc: func(key string) (time.Duration, bool) {
			assert.Equal(t, testEndpoint, key)
			return 90 * time.Second, true
		},
	}
	svc := NewTableService(mockCache, &MockClient{}, zap.NewNop())

	st := svc.Status()

	assert.True(t, st.Cached)
	assert.Equal(t, 90.0, st.CacheAgeSeconds)
}
