// Package query is the server-state cache: keyed query results with request
// de-duplication, explicit invalidation after mutations and change
// notification for subscribers.
package query

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/simplelru"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	applog "tokoku/internal/log"
)

// Broadcaster carries local invalidations to other instances.
type Broadcaster interface {
	BroadcastInvalidate(ctx context.Context, keys []string) error
}

type entry struct {
	value any
	at    time.Time
}

// Subscription receives the cache key of every invalidation that covers Key.
type Subscription struct {
	id  uint64
	key string
	C   <-chan string
	ch  chan string
}

// DefaultCapacity bounds the number of cached entries.
const DefaultCapacity = 4096

type Client struct {
	mu sync.Mutex
	// entries is guarded by mu; simplelru itself is not safe for concurrent use.
	entries *simplelru.LRU
	// gens holds the generation a fetch for a key must still see to be cached.
	// Generations come from seq so a key dropped and recreated never reuses one.
	gens    map[string]uint64
	seq     uint64
	subs    map[uint64]*Subscription
	nextSub uint64
	group   singleflight.Group

	capacity    int
	ttl         time.Duration
	now         func() time.Time
	broadcaster Broadcaster
	metrics     *Metrics
}

type Option func(*Client)

// WithTTL expires entries after d. Zero keeps entries until invalidated.
func WithTTL(d time.Duration) Option { return func(c *Client) { c.ttl = d } }

// WithCapacity keeps at most n entries, evicting the least recently used.
func WithCapacity(n int) Option { return func(c *Client) { c.capacity = n } }

func WithClock(now func() time.Time) Option { return func(c *Client) { c.now = now } }

func WithBroadcaster(b Broadcaster) Option { return func(c *Client) { c.broadcaster = b } }

func WithMetrics(m *Metrics) Option { return func(c *Client) { c.metrics = m } }

func NewClient(opts ...Option) *Client {
	c := &Client{
		gens:     map[string]uint64{},
		subs:     map[uint64]*Subscription{},
		capacity: DefaultCapacity,
		now:      time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	if c.capacity <= 0 {
		c.capacity = DefaultCapacity
	}
	if c.metrics == nil {
		c.metrics = NewMetrics(nil)
	}
	// The callback runs under mu: every Add and Remove happens with it held.
	c.entries, _ = simplelru.NewLRU(c.capacity, func(k, _ any) {
		delete(c.gens, k.(string))
	})
	return c
}

// lookup returns the live entry for ks, dropping it if it expired.
func (c *Client) lookup(ks string) (entry, bool) {
	v, ok := c.entries.Get(ks)
	if !ok {
		return entry{}, false
	}
	e := v.(entry)
	if !c.fresh(e) {
		c.entries.Remove(ks)
		return entry{}, false
	}
	return e, true
}

// store caches v for ks. Adding past capacity evicts the oldest entry.
func (c *Client) store(ks string, v any) {
	if c.entries.Add(ks, entry{value: v, at: c.now()}) {
		c.metrics.Evictions.Inc()
	}
}

func (c *Client) nextGen() uint64 {
	c.seq++
	return c.seq
}

func (c *Client) fresh(e entry) bool {
	return c.ttl <= 0 || c.now().Sub(e.at) < c.ttl
}

// Get returns the cached value for key or runs fetch. Concurrent callers for
// the same key share one fetch. The fetch is not cancelled when a single
// caller's ctx is; that caller just stops waiting.
func Get[T any](ctx context.Context, c *Client, key Key, fetch func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	v, err := c.get(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, errors.Errorf("query: cached value for %s is %T", key, v)
	}
	return t, nil
}

func (c *Client) get(ctx context.Context, key Key, fetch func(ctx context.Context) (any, error)) (any, error) {
	ks := key.String()

	c.mu.Lock()
	if e, ok := c.lookup(ks); ok {
		c.mu.Unlock()
		c.metrics.Hits.Inc()
		return e.value, nil
	}
	gen, ok := c.gens[ks]
	if !ok {
		gen = c.nextGen()
		c.gens[ks] = gen
	}
	c.mu.Unlock()
	c.metrics.Misses.Inc()

	// The generation is part of the flight key so callers arriving after an
	// invalidation never join a fetch that started before it.
	flight := ks + "#" + strconv.FormatUint(gen, 10)
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(flight, func() (any, error) {
		v, err := fetch(fetchCtx)
		c.mu.Lock()
		defer c.mu.Unlock()
		current := c.gens[ks] == gen
		if err != nil {
			// nothing was cached, so the key needs no generation
			if current && !c.entries.Contains(ks) {
				delete(c.gens, ks)
			}
			return nil, err
		}
		if current {
			c.store(ks, v)
		} else {
			c.metrics.Stale.Inc()
		}
		return v, nil
	})

	select {
	case r := <-ch:
		if r.Shared {
			c.metrics.Shared.Inc()
		}
		return r.Val, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Set stores value under key directly, as after a mutation that returns the
// new server state.
func (c *Client) Set(key Key, value any) {
	ks := key.String()
	c.mu.Lock()
	c.gens[ks] = c.nextGen()
	c.store(ks, value)
	c.mu.Unlock()
}

// Mutate runs fn and, only if it succeeds, invalidates keys. Failed mutations
// are returned as is and never retried.
func (c *Client) Mutate(ctx context.Context, fn func(ctx context.Context) error, keys ...Key) error {
	if err := fn(ctx); err != nil {
		return err
	}
	c.Invalidate(ctx, keys...)
	return nil
}

// Do is Mutate for mutations that produce a value.
func Do[T any](ctx context.Context, c *Client, fn func(ctx context.Context) (T, error), keys ...Key) (T, error) {
	v, err := fn(ctx)
	if err != nil {
		return v, err
	}
	c.Invalidate(ctx, keys...)
	return v, nil
}

// Invalidate drops every entry covered by keys, notifies subscribers and
// forwards the keys to the broadcaster. Broadcast failures are logged only.
func (c *Client) Invalidate(ctx context.Context, keys ...Key) {
	if len(keys) == 0 {
		return
	}
	ss := make([]string, len(keys))
	for i, k := range keys {
		ss[i] = k.String()
	}
	c.invalidate(ss)

	c.mu.Lock()
	b := c.broadcaster
	c.mu.Unlock()
	if b == nil {
		return
	}
	if err := b.BroadcastInvalidate(ctx, ss); err != nil {
		applog.L().Warn().Err(err).Strs("keys", ss).Msg("[query] broadcast invalidation failed")
	}
}

// ApplyRemote applies invalidations received from another instance. They are
// not re-broadcast.
func (c *Client) ApplyRemote(keys []string) {
	c.invalidate(keys)
}

func (c *Client) invalidate(prefixes []string) {
	var notify []*Subscription
	var notifyKeys []string

	c.mu.Lock()
	for _, p := range prefixes {
		for _, k := range c.entries.Keys() {
			if ks := k.(string); covers(p, ks) {
				c.entries.Remove(ks)
				c.metrics.Invalidations.Inc()
			}
		}
		// Keys with a fetch in flight have a generation but no entry yet.
		// Dropping the generation fences that fetch out.
		for ks := range c.gens {
			if covers(p, ks) {
				delete(c.gens, ks)
			}
		}
		for _, s := range c.subs {
			if covers(p, s.key) || covers(s.key, p) {
				notify = append(notify, s)
				notifyKeys = append(notifyKeys, p)
			}
		}
	}
	// Sends happen under the lock so Unsubscribe cannot close a channel mid-send.
	for i, s := range notify {
		select {
		case s.ch <- notifyKeys[i]:
		default:
		}
	}
	c.mu.Unlock()
}

// Subscribe returns a subscription notified whenever an invalidation covers
// key or falls under it. Notifications are dropped if the buffer is full.
func (c *Client) Subscribe(key Key) *Subscription {
	ch := make(chan string, 16)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSub++
	s := &Subscription{id: c.nextSub, key: key.String(), C: ch, ch: ch}
	c.subs[s.id] = s
	return s
}

func (c *Client) Unsubscribe(s *Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.subs[s.id]; !ok {
		return
	}
	delete(c.subs, s.id)
	close(s.ch)
}

// Len is the number of cached entries.
func (c *Client) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}
