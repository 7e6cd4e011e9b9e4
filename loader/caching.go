package loader

import (
	"container/list"
	"sync"

	"github.com/liquidgo/liquid/parser"
	"golang.org/x/sync/singleflight"
)

// CachingLoader wraps another Loader with a bounded LRU of parsed templates
// and collapses concurrent misses for the same name into a single
// underlying Load call (spec §4.7: "the cache is protected by an internal
// mutex" — here the mutex only guards the LRU bookkeeping, and
// singleflight.Group does the actual de-duplication of concurrent loads).
type CachingLoader struct {
	inner Loader
	group singleflight.Group

	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = most recently used
}

type cacheEntry struct {
	name string
	tmpl *parser.Template
}

// NewCachingLoader wraps inner with an LRU of at most capacity parsed
// templates. capacity <= 0 means unbounded.
func NewCachingLoader(inner Loader, capacity int) *CachingLoader {
	return &CachingLoader{
		inner:    inner,
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

func (c *CachingLoader) Source(name string) (string, error) {
	return c.inner.Source(name)
}

func (c *CachingLoader) Load(name string) (*parser.Template, error) {
	if tmpl, ok := c.get(name); ok {
		return tmpl, nil
	}

	v, err, _ := c.group.Do(name, func() (any, error) {
		return c.inner.Load(name)
	})
	if err != nil {
		return nil, err
	}
	tmpl := v.(*parser.Template)
	c.put(name, tmpl)
	return tmpl, nil
}

func (c *CachingLoader) get(name string) (*parser.Template, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[name]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).tmpl, true
}

func (c *CachingLoader) put(name string, tmpl *parser.Template) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[name]; ok {
		el.Value.(*cacheEntry).tmpl = tmpl
		c.order.MoveToFront(el)
		return
	}
	el := c.order.PushFront(&cacheEntry{name: name, tmpl: tmpl})
	c.entries[name] = el
	if c.capacity > 0 && c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).name)
		}
	}
}

// Invalidate drops a single cached entry, for callers that know a
// template's source changed out from under the loader.
func (c *CachingLoader) Invalidate(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[name]; ok {
		c.order.Remove(el)
		delete(c.entries, name)
	}
}
