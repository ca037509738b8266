package cache

import (
	"time"
)

// DefaultTTL is the time an existence verdict stays valid
const DefaultTTL = time.Hour

// New returns a new Cache instance
// ttl represents the age after which an entry is treated as absent
// cleanupInterval represents how often expired entries are swept (0 disables sweeping)
func New(ttl, cleanupInterval time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Cache{
		b: newBackend(ttl, cleanupInterval),
	}
}

// Cache represents a time bounded memo of existence verdicts keyed by
// candidate URL
type Cache struct {
	b *backend
}

// Get returns the cached verdict for the candidate URL
// ok is false when no live entry exists, an expired entry is evicted
func (c *Cache) Get(candidateURL string) (exists bool, ok bool) {
	e, err := c.b.lookup(candidateURL)
	if err != nil {
		return false, false
	}

	return e.Exists, true
}

// Set stores a verdict for the candidate URL observed now
func (c *Cache) Set(candidateURL string, exists bool) {
	c.b.store(candidateURL, exists)
}

// Len returns the amount of entries held, expired or not
func (c *Cache) Len() int {
	return c.b.len()
}

// Cleanup periodically removes expired entries until quit is closed
func (c *Cache) Cleanup(quit <-chan struct{}) {
	c.b.cleanup(quit)
}
