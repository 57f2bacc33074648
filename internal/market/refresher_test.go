package market

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu       sync.Mutex
	loads    int
	failLoad bool
	entries  []MarketEntry
}

func (f *fakeProvider) LoadAll(ctx context.Context) ([]MarketEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.failLoad {
		return nil, errors.New("rpc unavailable")
	}
	return f.entries, nil
}

func (f *fakeProvider) Refresh(ctx context.Context, pools []string) ([]MarketEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []MarketEntry
	for _, e := range f.entries {
		for _, p := range pools {
			if e.PoolAddress == p {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

func (f *fakeProvider) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads
}

func TestRefresher_PrimesAndPolls(t *testing.T) {
	provider := &fakeProvider{entries: []MarketEntry{testEntry("pool-a", 10)}}
	cache := NewCache()
	r := NewRefresher(cache, provider, RefresherConfig{Interval: 10 * time.Millisecond, RPS: 1000})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Start(ctx)
	}()

	assert.Eventually(t, func() bool {
		return provider.loadCount() >= 2 && cache.Len() == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestRefresher_SurvivesProviderFailure(t *testing.T) {
	provider := &fakeProvider{entries: []MarketEntry{testEntry("pool-a", 10)}}
	cache := NewCache()
	r := NewRefresher(cache, provider, RefresherConfig{Interval: 10 * time.Millisecond, RPS: 1000})

	require.NoError(t, r.refreshAll(context.Background()))
	require.Equal(t, 1, cache.Len())

	provider.mu.Lock()
	provider.failLoad = true
	provider.mu.Unlock()

	err := r.refreshAll(context.Background())
	assert.Error(t, err)
	// Old snapshot keeps serving.
	got, ok := cache.Get("pool-a")
	assert.True(t, ok)
	assert.Equal(t, 10.0, got.Price)
}

func TestRefresher_RefreshPools(t *testing.T) {
	provider := &fakeProvider{entries: []MarketEntry{
		testEntry("pool-a", 10),
		testEntry("pool-b", 20),
	}}
	cache := NewCache()
	r := NewRefresher(cache, provider, RefresherConfig{Interval: time.Second, RPS: 1000})

	require.NoError(t, r.RefreshPools(context.Background(), []string{"pool-b"}))
	_, ok := cache.Get("pool-a")
	assert.False(t, ok)
	got, ok := cache.Get("pool-b")
	require.True(t, ok)
	assert.Equal(t, 20.0, got.Price)

	// Empty input is a no-op, not a provider call.
	require.NoError(t, r.RefreshPools(context.Background(), nil))
}
