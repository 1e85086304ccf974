package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"
)

const defaultMaxEntries = 10000

// MemoryClient is an in-process Client with least-recently-used eviction.
// Expired entries are dropped on access and by a once-a-minute sweep.
type MemoryClient struct {
	mu      sync.Mutex
	max     int
	order   *list.List // front is most recently used
	entries map[string]*list.Element
	now     func() time.Time

	stop      chan struct{}
	closeOnce sync.Once
}

type memEntry struct {
	key       string
	value     []byte
	expiresAt time.Time // zero means never
}

func (e *memEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// NewMemoryClient returns a cache holding at most maxEntries values.
// A non-positive maxEntries selects the default of 10000.
func NewMemoryClient(maxEntries int) *MemoryClient {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	c := &MemoryClient{
		max:     maxEntries,
		order:   list.New(),
		entries: make(map[string]*list.Element),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go c.sweepLoop(time.Minute)
	return c
}

// Get implements Client. A hit marks the entry most recently used.
func (c *MemoryClient) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	e := el.Value.(*memEntry)
	if e.expired(c.now()) {
		c.remove(el)
		return nil, ErrCacheMiss
	}
	c.order.MoveToFront(el)
	return e.value, nil
}

// Set implements Client. The value is copied.
func (c *MemoryClient) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &memEntry{key: key, value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}

	if el, ok := c.entries[key]; ok {
		el.Value = e
		c.order.MoveToFront(el)
		return nil
	}
	for c.order.Len() >= c.max {
		c.remove(c.order.Back())
	}
	c.entries[key] = c.order.PushFront(e)
	return nil
}

// Delete implements Client.
func (c *MemoryClient) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.remove(el)
	}
	return nil
}

// DeleteByPrefix implements Client.
func (c *MemoryClient) DeleteByPrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, el := range c.entries {
		if strings.HasPrefix(key, prefix) {
			c.remove(el)
		}
	}
	return nil
}

// Close stops the background sweep. It is safe to call more than once.
func (c *MemoryClient) Close() error {
	c.closeOnce.Do(func() { close(c.stop) })
	return nil
}

// remove requires c.mu.
func (c *MemoryClient) remove(el *list.Element) {
	c.order.Remove(el)
	delete(c.entries, el.Value.(*memEntry).key)
}

func (c *MemoryClient) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for _, el := range c.entries {
		if el.Value.(*memEntry).expired(now) {
			c.remove(el)
		}
	}
}

func (c *MemoryClient) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}
