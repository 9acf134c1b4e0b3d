// Package dash serves the flight log dashboard: uploads, the standard
// graph pages, the topic browser and the JSON API.
package dash

import (
	"container/list"
	"sync"

	"github.com/skylark-data/flightdeck/internal/monitoring"
	"github.com/skylark-data/flightdeck/internal/timeutil"
	"github.com/skylark-data/flightdeck/internal/ulog"
)

// logCache keeps recently parsed logs in memory so browsing between graphs
// of the same flight does not re-read the file. Least recently used entries
// are evicted once capacity is reached.
type logCache struct {
	mu    sync.Mutex
	cap   int
	clock timeutil.Clock
	order *list.List
	byID  map[string]*list.Element
}

type cacheEntry struct {
	id     string
	lg     *ulog.Log
	loaded float64 // unix seconds, for eviction logging
}

func newLogCache(capacity int, clock timeutil.Clock) *logCache {
	if capacity < 1 {
		capacity = 1
	}
	return &logCache{
		cap:   capacity,
		clock: clock,
		order: list.New(),
		byID:  make(map[string]*list.Element),
	}
}

func (c *logCache) get(id string) (*ulog.Log, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).lg, true
}

func (c *logCache) add(id string, lg *ulog.Log) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.byID[id]; ok {
		el.Value.(*cacheEntry).lg = lg
		c.order.MoveToFront(el)
		return
	}
	c.byID[id] = c.order.PushFront(&cacheEntry{
		id:     id,
		lg:     lg,
		loaded: float64(c.clock.Now().UnixMilli()) / 1000,
	})
	for c.order.Len() > c.cap {
		oldest := c.order.Back()
		entry := oldest.Value.(*cacheEntry)
		c.order.Remove(oldest)
		delete(c.byID, entry.id)
		monitoring.Debugf("cache: evicted log %s", entry.id)
	}
}

func (c *logCache) remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.byID[id]; ok {
		c.order.Remove(el)
		delete(c.byID, id)
	}
}

func (c *logCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
