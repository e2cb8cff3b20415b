package slide

import "container/list"

// tileKey identifies one decoded tile within a slide's pyramid.
type tileKey struct {
	layer, index int
}

// decodeCache is a fixed-capacity LRU of decoded tile bytes, keyed by
// (layer, index), built on stdlib container/list the way a textbook LRU is:
// a doubly linked list for recency order plus a map for O(1) lookup. A zero
// capacity disables caching entirely (Get always misses, Put is a no-op).
type decodeCache struct {
	capacity int
	order    *list.List
	entries  map[tileKey]*list.Element
}

type cacheEntry struct {
	key  tileKey
	data []byte
}

// newDecodeCache returns a cache holding at most capacity entries.
func newDecodeCache(capacity int) *decodeCache {
	return &decodeCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[tileKey]*list.Element, capacity),
	}
}

func (c *decodeCache) get(k tileKey) ([]byte, bool) {
	if c.capacity == 0 {
		return nil, false
	}
	el, ok := c.entries[k]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).data, true
}

func (c *decodeCache) put(k tileKey, data []byte) {
	if c.capacity == 0 {
		return
	}
	if el, ok := c.entries[k]; ok {
		el.Value.(*cacheEntry).data = data
		c.order.MoveToFront(el)
		return
	}
	el := c.order.PushFront(&cacheEntry{key: k, data: data})
	c.entries[k] = el
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}
