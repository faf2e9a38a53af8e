package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

// memoryTier is the bounded in-process tier. A doubly-linked recency list
// (front = most recently used) backs LRU eviction; the map holds exactly
// the keys on the list, and both are updated as one unit under the mutex.
type memoryTier struct {
	mu         sync.Mutex
	maxEntries int
	entries    map[string]*list.Element
	order      *list.List // of *Entry
}

func newMemoryTier(maxEntries int) *memoryTier {
	return &memoryTier{
		maxEntries: maxEntries,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

// get returns the entry for key and marks it most recently used.
// Expiry is the caller's concern; get reports what is stored.
func (t *memoryTier) get(key string) (*Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	el, ok := t.entries[key]
	if !ok {
		return nil, false
	}
	t.order.MoveToFront(el)
	return el.Value.(*Entry), true
}

// set stores the entry, evicting least-recently-used entries first when at
// capacity so the bound is never exceeded, even transiently. It returns the
// number of entries evicted.
func (t *memoryTier) set(key string, e *Entry) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if el, ok := t.entries[key]; ok {
		el.Value = e
		t.order.MoveToFront(el)
		return 0
	}

	evicted := 0
	for len(t.entries) >= t.maxEntries {
		back := t.order.Back()
		if back == nil {
			break
		}
		t.removeElement(back)
		evicted++
	}

	t.entries[key] = t.order.PushFront(e)
	return evicted
}

// remove deletes the entry for key. Idempotent.
func (t *memoryTier) remove(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	el, ok := t.entries[key]
	if !ok {
		return false
	}
	t.removeElement(el)
	return true
}

// removePrefix deletes every entry whose key starts with "<prefix>_" and
// returns the count removed.
func (t *memoryTier) removePrefix(prefix string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	match := prefix + "_"
	count := 0
	for el := t.order.Front(); el != nil; {
		next := el.Next()
		if strings.HasPrefix(el.Value.(*Entry).Key, match) {
			t.removeElement(el)
			count++
		}
		el = next
	}
	return count
}

// sweepExpired deletes every entry whose expiry has passed as of now.
func (t *memoryTier) sweepExpired(p Policy, now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	count := 0
	for el := t.order.Front(); el != nil; {
		next := el.Next()
		if p.Expired(el.Value.(*Entry).ExpiresAt, now) {
			t.removeElement(el)
			count++
		}
		el = next
	}
	return count
}

// clear empties the tier and returns the number of entries removed.
func (t *memoryTier) clear() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	count := len(t.entries)
	t.entries = make(map[string]*list.Element)
	t.order.Init()
	return count
}

func (t *memoryTier) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// removeElement must be called with the mutex held.
func (t *memoryTier) removeElement(el *list.Element) {
	e := el.Value.(*Entry)
	t.order.Remove(el)
	delete(t.entries, e.Key)
}
