package relay

import (
	"sync"
	"time"
)

// nonceCache is an in-memory replay guard for signed registrations. Entries
// expire after the ttl; expired entries are swept on each insert.
type nonceCache struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
}

func newNonceCache(ttl time.Duration) *nonceCache {
	return &nonceCache{ttl: ttl, seen: make(map[string]time.Time)}
}

// mark records the nonce and reports whether it was fresh.
func (c *nonceCache) mark(nonce string) bool {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, exp := range c.seen {
		if now.After(exp) {
			delete(c.seen, k)
		}
	}
	if _, ok := c.seen[nonce]; ok {
		return false
	}
	c.seen[nonce] = now.Add(c.ttl)
	return true
}
