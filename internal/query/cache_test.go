package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCache() (*Cache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	return NewCache(WithClock(clock.Now)), clock
}

func counting(value string) (func(context.Context) (string, error), *atomic.Int32) {
	var calls atomic.Int32
	return func(context.Context) (string, error) {
		calls.Add(1)
		return value, nil
	}, &calls
}

// ============================================
// Freshness Tests
// ============================================

func TestFetch_FreshEntryIsHit(t *testing.T) {
	cache, clock := newTestCache()
	fn, calls := counting("v1")
	key := Key{"products", "list", "page=1"}

	v, err := Fetch(context.Background(), cache, key, Options{StaleTime: 30 * time.Second}, fn)
	require.NoError(t, err)
	assert.Equal(t, "v1", v)

	clock.Advance(29 * time.Second)
	_, err = Fetch(context.Background(), cache, key, Options{StaleTime: 30 * time.Second}, fn)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	clock.Advance(time.Second)
	_, err = Fetch(context.Background(), cache, key, Options{StaleTime: 30 * time.Second}, fn)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetch_ZeroStaleTimeAlwaysRefetches(t *testing.T) {
	cache, _ := newTestCache()
	fn, calls := counting("v")

	for i := 0; i < 3; i++ {
		_, err := Fetch(context.Background(), cache, Key{"orders", "detail", "1"}, Options{}, fn)
		require.NoError(t, err)
	}

	assert.Equal(t, int32(3), calls.Load())
}

func TestFetch_ForeverNeverStale(t *testing.T) {
	cache, clock := newTestCache()
	fn, calls := counting("pk_test")

	_, _ = Fetch(context.Background(), cache, StripeKeyKey, Options{StaleTime: Forever}, fn)
	clock.Advance(24 * 365 * time.Hour)
	_, _ = Fetch(context.Background(), cache, StripeKeyKey, Options{StaleTime: Forever}, fn)

	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_ErrorsAreNotCached(t *testing.T) {
	cache, _ := newTestCache()
	boom := errors.New("boom")
	var calls atomic.Int32
	fn := func(context.Context) (string, error) {
		if calls.Add(1) == 1 {
			return "", boom
		}
		return "ok", nil
	}

	_, err := Fetch(context.Background(), cache, AuthUserKey, Options{StaleTime: time.Minute}, fn)
	assert.ErrorIs(t, err, boom)
	_, ok := cache.Get(AuthUserKey)
	assert.False(t, ok)

	v, err := Fetch(context.Background(), cache, AuthUserKey, Options{StaleTime: time.Minute}, fn)
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestFetch_TypeMismatch(t *testing.T) {
	cache, _ := newTestCache()
	cache.Set(AuthUserKey, 42)

	_, err := Fetch(context.Background(), cache, AuthUserKey, Options{StaleTime: time.Minute}, func(context.Context) (string, error) {
		return "x", nil
	})

	assert.Error(t, err)
}

// ============================================
// Deduplication Tests
// ============================================

func TestFetch_ConcurrentCallersShareOneCall(t *testing.T) {
	cache, _ := newTestCache()
	release := make(chan struct{})
	var calls atomic.Int32
	fn := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "order", nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := Fetch(context.Background(), cache, OrderDetail("42"), Options{}, fn)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, v := range results {
		assert.Equal(t, "order", v)
	}
}

func TestFetch_CallerCancelOnlyAffectsItsWait(t *testing.T) {
	cache, _ := newTestCache()
	release := make(chan struct{})
	started := make(chan struct{})
	var fetchCtxErr atomic.Value
	fn := func(ctx context.Context) (string, error) {
		close(started)
		<-release
		if ctx.Err() != nil {
			fetchCtxErr.Store(ctx.Err())
		}
		return "done", nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := Fetch(ctx, cache, OrderDetail("7"), Options{}, fn)
		errCh <- err
	}()
	<-started

	valueCh := make(chan string, 1)
	go func() {
		v, _ := Fetch(context.Background(), cache, OrderDetail("7"), Options{}, fn)
		valueCh <- v
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	close(release)
	assert.Equal(t, "done", <-valueCh)
	assert.Nil(t, fetchCtxErr.Load())
}

// ============================================
// Invalidation Tests
// ============================================

func TestInvalidate_Prefix(t *testing.T) {
	cache, _ := newTestCache()
	cache.Set(ProductList("page=1"), "list")
	cache.Set(ProductDetail("1"), "detail")
	cache.Set(MyOrders(1, 10), "orders")

	cache.Invalidate(ProductListsKey)

	_, ok := cache.Get(ProductList("page=1"))
	assert.False(t, ok)
	_, ok = cache.Get(ProductDetail("1"))
	assert.True(t, ok)
	_, ok = cache.Get(MyOrders(1, 10))
	assert.True(t, ok)

	cache.Invalidate(ProductsKey)
	assert.Equal(t, 1, cache.Len())
}

func TestInvalidate_SegmentBoundaries(t *testing.T) {
	cache, _ := newTestCache()
	cache.Set(Key{"orders", "detail", "1"}, "a")
	cache.Set(Key{"orders", "detail", "10"}, "b")

	cache.Invalidate(Key{"orders", "detail", "1"})

	_, ok := cache.Get(Key{"orders", "detail", "10"})
	assert.True(t, ok)
	assert.Equal(t, 1, cache.Len())
}

func TestInvalidate_DuringFetchDiscardsResult(t *testing.T) {
	cache, _ := newTestCache()
	release := make(chan struct{})
	started := make(chan struct{})
	var calls atomic.Int32
	fn := func(context.Context) (string, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
			return "before", nil
		}
		return "after", nil
	}
	opts := Options{StaleTime: time.Minute}

	done := make(chan string, 1)
	go func() {
		v, _ := Fetch(context.Background(), cache, OrderDetail("9"), opts, fn)
		done <- v
	}()
	<-started

	cache.Invalidate(OrdersKey)

	// A caller arriving after invalidation starts its own fetch.
	v, err := Fetch(context.Background(), cache, OrderDetail("9"), opts, fn)
	require.NoError(t, err)
	assert.Equal(t, "after", v)

	close(release)
	assert.Equal(t, "before", <-done)

	stored, ok := cache.Get(OrderDetail("9"))
	require.True(t, ok)
	assert.Equal(t, "after", stored)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClear(t *testing.T) {
	cache, _ := newTestCache()
	cache.Set(AuthUserKey, "me")
	cache.Set(ProductDetail("1"), "p")
	cache.Set(StripeKeyKey, "pk")

	cache.Clear()

	assert.Equal(t, 0, cache.Len())
}

type countingObserver struct {
	mu     sync.Mutex
	hits   map[string]int
	misses map[string]int
}

func (o *countingObserver) ObserveCache(_ context.Context, root string, hit bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if hit {
		o.hits[root]++
	} else {
		o.misses[root]++
	}
}

func TestFetch_Observer(t *testing.T) {
	obs := &countingObserver{hits: map[string]int{}, misses: map[string]int{}}
	cache := NewCache(WithObserver(obs))
	fn, _ := counting("x")

	_, _ = Fetch(context.Background(), cache, ProductDetail("1"), Options{StaleTime: time.Minute}, fn)
	_, _ = Fetch(context.Background(), cache, ProductDetail("1"), Options{StaleTime: time.Minute}, fn)

	assert.Equal(t, 1, obs.hits["products"])
	assert.Equal(t, 1, obs.misses["products"])
}

func TestKey(t *testing.T) {
	assert.Equal(t, "orders/admin/detail/5", AdminOrderDetail("5").String())
	assert.True(t, AdminOrderDetail("5").HasPrefix(AdminOrderKey))
	assert.False(t, AdminOrderKey.HasPrefix(AdminOrderDetail("5")))
	assert.True(t, AuthUserKey.HasPrefix(Key{}))
	assert.Equal(t, "orders", MyOrders(0, 0).Root())
	assert.Equal(t, Key{"orders", "my", "page=1&limit=10"}, MyOrders(0, 0))
}
