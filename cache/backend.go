package cache

import (
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrEntryNotFound represents an error where a cache entry was not found
	ErrEntryNotFound = errors.New("cache entry not found")
	// ErrEntryExpired represents an error where a cache entry outlived the ttl
	ErrEntryExpired = errors.New("cache entry expired")
)

func newBackend(ttl, cleanupInterval time.Duration) *backend {
	return &backend{
		ttl:             ttl,
		cleanupInterval: cleanupInterval,
		data:            make(map[string]*Entry),
		m:               &sync.Mutex{},
		now:             time.Now,
	}
}

type backend struct {
	ttl             time.Duration
	cleanupInterval time.Duration
	data            map[string]*Entry
	m               *sync.Mutex
	now             func() time.Time
}

// lookup returns a copy of the live entry for key
// Expired entries are evicted before ErrEntryExpired is returned
func (b *backend) lookup(key string) (Entry, error) {
	b.m.Lock()
	defer b.m.Unlock()

	e, ok := b.data[key]
	if !ok {
		return Entry{}, ErrEntryNotFound
	}
	if e.expired(b.now(), b.ttl) {
		log.Debugf("cache entry for %s expired", key)
		delete(b.data, key)
		return Entry{}, ErrEntryExpired
	}

	return *e, nil
}

func (b *backend) store(key string, exists bool) {
	b.m.Lock()
	defer b.m.Unlock()

	b.data[key] = &Entry{
		Exists:     exists,
		ObservedAt: JSONTime(b.now()),
	}
}

func (b *backend) len() int {
	b.m.Lock()
	defer b.m.Unlock()

	return len(b.data)
}

// JSONTime is a time.Time wrapper that JSON (un)marshals into a unix timestamp
type JSONTime time.Time

// MarshalJSON is used to convert the timestamp to JSON
func (t JSONTime) MarshalJSON() ([]byte, error) {
	unix := time.Time(t).Unix()
	// Negative time stamps make no sense for our use cases
	if unix < 0 {
		unix = 0
	}

	return []byte(strconv.FormatInt(unix, 10)), nil
}

// UnmarshalJSON is used to convert the timestamp from JSON
func (t *JSONTime) UnmarshalJSON(s []byte) (err error) {
	q, err := strconv.ParseInt(string(s), 10, 64)
	if err != nil {
		return err
	}
	*(*time.Time)(t) = time.Unix(q, 0)

	return nil
}

// Time returns the JSON time as a time.Time instance
func (t JSONTime) Time() time.Time {
	return time.Time(t)
}

// String returns time as a formatted string
func (t JSONTime) String() string {
	return t.Time().String()
}
