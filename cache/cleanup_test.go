package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRemoveExpired(t *testing.T) {
	assert := assert.New(t)
	now := time.Now()

	b := &backend{
		ttl: 10 * time.Minute,
		m:   &sync.Mutex{},
		now: func() time.Time { return now },
		data: map[string]*Entry{
			"1": {Exists: true, ObservedAt: JSONTime(now)},
			"2": {Exists: false, ObservedAt: JSONTime(now.Add(-9 * time.Minute))},
			// should expire
			"3": {Exists: true, ObservedAt: JSONTime(now.Add(-15 * time.Minute))},
			// should expire
			"4": {Exists: false, ObservedAt: JSONTime(time.Time{})},
			// should expire
			"5": {Exists: true, ObservedAt: JSONTime(now.Add(-601 * time.Second))},
		},
	}

	assert.Equal(3, b.removeExpired())

	for _, i := range []string{"1", "2"} {
		assert.Contains(b.data, i)
	}
	for _, i := range []string{"3", "4", "5"} {
		assert.NotContains(b.data, i)
	}
}

func TestCleanupStopsOnQuit(t *testing.T) {
	b := newBackend(time.Minute, time.Millisecond)
	quit := make(chan struct{})
	done := make(chan struct{})
	go func() {
		b.cleanup(quit)
		close(done)
	}()
	close(quit)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup did not return after quit was closed")
	}
}

func TestCleanupDisabled(t *testing.T) {
	b := newBackend(time.Minute, 0)
	// returns immediately without a quit signal
	b.cleanup(nil)
}
