package orchestrator

import (
	"sync"
	"time"
)

// ResponseCache deduplicates retried client calls by idempotency key. It is
// process-local by design: entries die with the process, so replay protection
// only holds within a single process's lifetime. That is an accepted
// limitation of this design, not something callers may rely on for
// cross-process exactly-once guarantees.
type ResponseCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cachedResponse
}

type cachedResponse struct {
	resp    Response
	expires time.Time
}

// NewResponseCache creates an empty cache whose entries live for ttl.
func NewResponseCache(ttl time.Duration) *ResponseCache {
	return &ResponseCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cachedResponse),
	}
}

// Get returns the cached response for key, expiring stale entries lazily.
func (c *ResponseCache) Get(key string) (Response, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return Response{}, false
	}
	if c.now().After(entry.expires) {
		delete(c.entries, key)
		return Response{}, false
	}
	return entry.resp, true
}

// Put stores the response for key.
func (c *ResponseCache) Put(key string, resp Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cachedResponse{resp: resp, expires: c.now().Add(c.ttl)}
}
