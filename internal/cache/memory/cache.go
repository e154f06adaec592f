package memory

import (
	"sync"
	"time"
)

type item[V any] struct {
	value    V
	storedAt time.Time
}

// Cache - in-memory кеш со строгим TTL.
// Просроченные записи удаляются лениво, при следующем Get того же ключа.
// Чтение не продлевает жизнь записи.
type Cache[K comparable, V any] struct {
	mu    sync.Mutex
	items map[K]item[V]
	ttl   time.Duration
	now   func() time.Time
}

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock подменяет часы (для тестов)
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func New[K comparable, V any](ttl time.Duration, opts ...Option) *Cache[K, V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[K, V]{
		items: make(map[K]item[V]),
		ttl:   ttl,
		now:   o.now,
	}
}

// Get возвращает значение, если now - storedAt <= ttl, иначе удаляет запись.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	it, ok := c.items[key]
	if !ok {
		return zero, false
	}
	if c.now().Sub(it.storedAt) > c.ttl {
		delete(c.items, key)
		return zero, false
	}
	return it.value, true
}

// Set перезаписывает безусловно, last writer wins
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	c.items[key] = item[V]{value: value, storedAt: c.now()}
	c.mu.Unlock()
}

func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	clear(c.items)
	c.mu.Unlock()
}

// Len - число записей, включая ещё не вычищенные просроченные
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
