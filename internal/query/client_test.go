package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterFetch(n *int32, v string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) {
		atomic.AddInt32(n, 1)
		return v, nil
	}
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "products", NewKey("products").String())
	assert.Equal(t, "products/cat-1/2", NewKey("products", "cat-1", 2).String())
	assert.True(t, covers("products", "products/cat-1"))
	assert.True(t, covers("products", "products"))
	assert.False(t, covers("products", "products-archive"))
	assert.False(t, covers("products/cat-1", "products"))
}

func TestGet_CachesResult(t *testing.T) {
	c := NewClient()
	ctx := context.Background()
	var calls int32

	for i := 0; i < 3; i++ {
		v, err := Get(ctx, c, NewKey("categories"), counterFetch(&calls, "all"))
		require.NoError(t, err)
		assert.Equal(t, "all", v)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestGet_ErrorsAreNotCached(t *testing.T) {
	c := NewClient()
	ctx := context.Background()
	boom := errors.New("db down")

	_, err := Get(ctx, c, NewKey("x"), func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	v, err := Get(ctx, c, NewKey("x"), func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestGet_ConcurrentCallersShareOneFetch(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewClient(WithMetrics(NewMetrics(reg)))
	ctx := context.Background()

	release := make(chan struct{})
	var calls int32
	fetch := func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "v", nil
	}

	var wg sync.WaitGroup
	results := make([]string, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := Get(ctx, c, NewKey("search", "kopi"), fetch)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	// Give every goroutine time to join the flight.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	for _, r := range results {
		assert.Equal(t, "v", r)
	}
}

func TestMutate_InvalidatesOnlyOnSuccess(t *testing.T) {
	c := NewClient()
	ctx := context.Background()
	var calls int32
	key := NewKey("orders")

	_, err := Get(ctx, c, key, counterFetch(&calls, "v1"))
	require.NoError(t, err)

	failed := errors.New("rejected")
	err = c.Mutate(ctx, func(context.Context) error { return failed }, key)
	assert.ErrorIs(t, err, failed)
	_, _ = Get(ctx, c, key, counterFetch(&calls, "v1"))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "failed mutation must not invalidate")

	var ran bool
	err = c.Mutate(ctx, func(context.Context) error { ran = true; return nil }, key)
	require.NoError(t, err)
	assert.True(t, ran)
	_, _ = Get(ctx, c, key, counterFetch(&calls, "v2"))
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestMutate_DoesNotRetry(t *testing.T) {
	c := NewClient()
	var attempts int
	_, err := Do(context.Background(), c, func(context.Context) (int, error) {
		attempts++
		return 0, errors.New("nope")
	}, NewKey("x"))
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestInvalidate_PrefixMatch(t *testing.T) {
	c := NewClient()
	ctx := context.Background()
	var n int32
	_, _ = Get(ctx, c, NewKey("products", "cat-1"), counterFetch(&n, "a"))
	_, _ = Get(ctx, c, NewKey("products", "cat-2"), counterFetch(&n, "b"))
	_, _ = Get(ctx, c, NewKey("categories"), counterFetch(&n, "c"))
	require.Equal(t, 3, c.Len())

	c.Invalidate(ctx, NewKey("products"))
	assert.Equal(t, 1, c.Len())
}

func TestGet_StaleFetchDoesNotOverwriteAfterInvalidation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	c := NewClient(WithMetrics(m))
	ctx := context.Background()
	key := NewKey("stock", "P1")

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan int)
	go func() {
		v, _ := Get(ctx, c, key, func(context.Context) (int, error) {
			close(started)
			<-release
			return 10, nil
		})
		done <- v
	}()

	<-started
	c.Invalidate(ctx, key)
	close(release)
	assert.Equal(t, 10, <-done, "the waiting caller still gets its answer")

	assert.Equal(t, 0, c.Len(), "stale result must not be cached")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Stale))

	v, err := Get(ctx, c, key, func(context.Context) (int, error) { return 8, nil })
	require.NoError(t, err)
	assert.Equal(t, 8, v)
}

func TestGet_CallerCancellationDoesNotAbortFetch(t *testing.T) {
	c := NewClient()
	key := NewKey("report")
	release := make(chan struct{})
	var fetchErr error
	fetched := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := Get(ctx, c, key, func(fctx context.Context) (string, error) {
			<-release
			fetchErr = fctx.Err()
			close(fetched)
			return "r", nil
		})
		errc <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)

	close(release)
	<-fetched
	assert.NoError(t, fetchErr)

	require.Eventually(t, func() bool { return c.Len() == 1 }, time.Second, 5*time.Millisecond)
}

func TestGet_TTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewClient(WithTTL(time.Minute), WithClock(func() time.Time { return now }))
	ctx := context.Background()
	var n int32

	_, _ = Get(ctx, c, NewKey("k"), counterFetch(&n, "v"))
	now = now.Add(30 * time.Second)
	_, _ = Get(ctx, c, NewKey("k"), counterFetch(&n, "v"))
	assert.EqualValues(t, 1, n)

	now = now.Add(time.Minute)
	_, _ = Get(ctx, c, NewKey("k"), counterFetch(&n, "v"))
	assert.EqualValues(t, 2, n)
}

func TestGet_TypeMismatch(t *testing.T) {
	c := NewClient()
	c.Set(NewKey("k"), "text")
	_, err := Get(context.Background(), c, NewKey("k"), func(context.Context) (int, error) { return 1, nil })
	assert.Error(t, err)
}

func TestSubscribe(t *testing.T) {
	c := NewClient()
	sub := c.Subscribe(NewKey("products"))
	other := c.Subscribe(NewKey("orders"))

	c.Invalidate(context.Background(), NewKey("products", "cat-1"))

	select {
	case k := <-sub.C:
		assert.Equal(t, "products/cat-1", k)
	default:
		t.Fatal("expected notification")
	}
	select {
	case k := <-other.C:
		t.Fatalf("unexpected notification %q", k)
	default:
	}

	c.Unsubscribe(sub)
	_, open := <-sub.C
	assert.False(t, open)
	c.Unsubscribe(sub)
}

type recordingBroadcaster struct {
	mu   sync.Mutex
	keys [][]string
	err  error
}

func (r *recordingBroadcaster) BroadcastInvalidate(_ context.Context, keys []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, keys)
	return r.err
}

func TestBroadcast(t *testing.T) {
	b := &recordingBroadcaster{}
	c := NewClient(WithBroadcaster(b))
	ctx := context.Background()

	c.Invalidate(ctx, NewKey("products"), NewKey("stock", "P1"))
	require.Len(t, b.keys, 1)
	assert.Equal(t, []string{"products", "stock/P1"}, b.keys[0])

	c.ApplyRemote([]string{"products"})
	assert.Len(t, b.keys, 1, "remote invalidations are not re-broadcast")

	b.err = errors.New("broker unreachable")
	require.NoError(t, c.Mutate(ctx, func(context.Context) error { return nil }, NewKey("x")))
}

func TestApplyRemote_DropsEntries(t *testing.T) {
	c := NewClient()
	c.Set(NewKey("settings", "cod"), 1)
	c.ApplyRemote([]string{"settings"})
	assert.Equal(t, 0, c.Len())
}

func TestMetrics_HitsAndMisses(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	c := NewClient(WithMetrics(m))
	ctx := context.Background()
	var n int32

	_, _ = Get(ctx, c, NewKey("a"), counterFetch(&n, "v"))
	_, _ = Get(ctx, c, NewKey("a"), counterFetch(&n, "v"))
	c.Invalidate(ctx, NewKey("a"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Misses))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Hits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Invalidations))
}

func TestGet_CapacityBoundsEntries(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	c := NewClient(WithCapacity(100), WithMetrics(m))
	ctx := context.Background()

	for i := 0; i < 5000; i++ {
		_, err := Get(ctx, c, NewKey("search", "categories", "zz", i), func(context.Context) ([]string, error) {
			return []string{}, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 100, c.Len())
	assert.Equal(t, 4900.0, testutil.ToFloat64(m.Evictions))

	c.mu.Lock()
	gens := len(c.gens)
	c.mu.Unlock()
	assert.Equal(t, 100, gens, "generations are dropped with their entries")

	var n int32
	_, err := Get(ctx, c, NewKey("search", "categories", "zz", 4999), func(context.Context) ([]string, error) {
		atomic.AddInt32(&n, 1)
		return nil, nil
	})
	require.NoError(t, err)
	assert.Zero(t, n, "the most recent keys survive")
}

func TestGet_FailedFetchLeavesNoGeneration(t *testing.T) {
	c := NewClient()
	for i := 0; i < 50; i++ {
		_, err := Get(context.Background(), c, NewKey("search", i), func(context.Context) (int, error) {
			return 0, errors.New("boom")
		})
		require.Error(t, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Empty(t, c.gens)
	assert.Zero(t, c.entries.Len())
}

func TestGet_ExpiredEntriesAreDropped(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewClient(WithTTL(time.Minute), WithClock(func() time.Time { return now }))
	ctx := context.Background()
	var n int32

	_, _ = Get(ctx, c, NewKey("k"), counterFetch(&n, "v"))
	now = now.Add(2 * time.Minute)
	_, err := Get(ctx, c, NewKey("k"), func(context.Context) (string, error) {
		return "", errors.New("down")
	})
	require.Error(t, err)
	assert.Zero(t, c.Len(), "expired entry is not kept around")
}
