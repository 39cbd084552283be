package cache

import (
	"container/list"
	"sync"
	"time"
)

// memoryEntry is one slot in a memoryBackend's table.
type memoryEntry struct {
	key       string
	value     any
	expiresAt time.Time
	elem      *list.Element
}

// memoryBackend is a mutex-protected map combined with an LRU list, adapted
// from the teacher's lock-protected-map-with-lazy-expiry-on-read cache: a
// read past an entry's expiry evicts it instead of returning it, and writes
// past maxSize evict the least-recently-used entry (§4.6 invariants).
type memoryBackend struct {
	mu      sync.Mutex
	items   map[string]*memoryEntry
	order   *list.List // front = most recently used
	maxSize int
	onEvict func(key string)
}

func newMemoryBackend(maxSize int, onEvict func(key string)) *memoryBackend {
	return &memoryBackend{
		items:   make(map[string]*memoryEntry),
		order:   list.New(),
		maxSize: maxSize,
		onEvict: onEvict,
	}
}

func (b *memoryBackend) get(key string) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.items[key]
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		b.removeLocked(key)
		b.notifyEvict(key)
		return nil, false
	}
	b.order.MoveToFront(e.elem)
	return e.value, true
}

func (b *memoryBackend) put(key string, value any, ttl time.Duration) {
	b.mu.Lock()
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	if e, ok := b.items[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		b.order.MoveToFront(e.elem)
		b.mu.Unlock()
		return
	}
	elem := b.order.PushFront(key)
	b.items[key] = &memoryEntry{key: key, value: value, expiresAt: expiresAt, elem: elem}

	var evictedKey string
	evicted := false
	if b.maxSize > 0 && len(b.items) > b.maxSize {
		back := b.order.Back()
		if back != nil {
			evictedKey = back.Value.(string)
			b.removeLocked(evictedKey)
			evicted = true
		}
	}
	b.mu.Unlock()
	if evicted {
		b.notifyEvict(evictedKey)
	}
}

func (b *memoryBackend) remove(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(key)
}

// removeLocked assumes b.mu is held.
func (b *memoryBackend) removeLocked(key string) {
	e, ok := b.items[key]
	if !ok {
		return
	}
	b.order.Remove(e.elem)
	delete(b.items, key)
}

func (b *memoryBackend) notifyEvict(key string) {
	if b.onEvict != nil {
		b.onEvict(key)
	}
}

func (b *memoryBackend) containsKey(key string) bool {
	_, ok := b.get(key)
	return ok
}

func (b *memoryBackend) size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

func (b *memoryBackend) clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = make(map[string]*memoryEntry)
	b.order.Init()
}
