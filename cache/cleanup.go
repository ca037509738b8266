package cache

import (
	"time"

	log "github.com/sirupsen/logrus"
)

func (b *backend) cleanup(quit <-chan struct{}) {
	if b.cleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(b.cleanupInterval)
	for {
		select {
		case <-ticker.C:
			b.removeExpired()
		case <-quit:
			ticker.Stop()
			return
		}
	}
}

// removeExpired deletes every entry that outlived the ttl
func (b *backend) removeExpired() int {
	b.m.Lock()
	defer b.m.Unlock()

	log.Debug("Started removing expired cache entries")
	now := b.now()
	removed := 0
	for key, e := range b.data {
		if e.expired(now, b.ttl) {
			delete(b.data, key)
			removed++
		}
	}
	log.Debugf("Finished removing expired cache entries, %d removed", removed)

	return removed
}
