// Package querycache is a small keyed read cache for API data. Each key
// is bound to a fetch function; invalidating a key refetches it and
// pushes the fresh data to every subscriber, so no view keeps stale data
// past a completed mutation round-trip.
package querycache

import (
	"context"
	"errors"
	"sync"
	"time"
)

// FetchFunc loads the current data for a key.
type FetchFunc func(ctx context.Context) (any, error)

// Subscriber receives the key's data after every successful (re)fetch.
type Subscriber func(data any)

var ErrUnknownKey = errors.New("querycache: unknown key")

type entry struct {
	fetch       FetchFunc
	data        any
	fetched     bool
	stale       bool
	subscribers map[int]Subscriber
}

type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	nextSub int
}

func New() *Cache {
	return &Cache{entries: map[string]*entry{}}
}

// Register binds a key to its fetch function. Registering an existing key
// replaces the fetcher and drops cached data.
func (c *Cache) Register(key string, fetch FetchFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entries[key]
	if e == nil {
		e = &entry{subscribers: map[int]Subscriber{}}
		c.entries[key] = e
	}
	e.fetch = fetch
	e.data = nil
	e.fetched = false
	e.stale = false
}

// Subscribe registers a callback for a key. The returned func removes the
// subscription.
func (c *Cache) Subscribe(key string, fn Subscriber) (cancel func(), err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, ErrUnknownKey
	}
	id := c.nextSub
	c.nextSub++
	e.subscribers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(e.subscribers, id)
	}, nil
}

// Get returns the key's data, fetching if it was never loaded or is
// marked stale.
func (c *Cache) Get(ctx context.Context, key string) (any, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return nil, ErrUnknownKey
	}
	if e.fetched && !e.stale {
		data := e.data
		c.mu.Unlock()
		return data, nil
	}
	c.mu.Unlock()
	return c.refetch(ctx, key)
}

// Invalidate marks keys stale and refetches each one, notifying
// subscribers with the fresh data. Unknown keys are ignored so callers
// can invalidate a fixed key list regardless of what is registered.
// The first fetch error aborts and is returned; earlier keys stay fresh.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		c.mu.Lock()
		e, ok := c.entries[key]
		if ok {
			e.stale = true
		}
		c.mu.Unlock()
		if !ok {
			continue
		}
		if _, err := c.refetch(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// WaitFor refetches a key with backoff until pred accepts the data. Used
// after a mutation to wait for the server to expose the written version
// instead of sleeping a guessed fixed delay.
func (c *Cache) WaitFor(ctx context.Context, key string, pred func(data any) bool) error {
	backoff := 50 * time.Millisecond
	for {
		data, err := c.refetch(ctx, key)
		if err != nil {
			return err
		}
		if pred(data) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < time.Second {
			backoff *= 2
		}
	}
}

func (c *Cache) refetch(ctx context.Context, key string) (any, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return nil, ErrUnknownKey
	}
	fetch := e.fetch
	c.mu.Unlock()

	data, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	e.data = data
	e.fetched = true
	e.stale = false
	subs := make([]Subscriber, 0, len(e.subscribers))
	for _, fn := range e.subscribers {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(data)
	}
	return data, nil
}
