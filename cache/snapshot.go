package cache

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Snapshot returns the current cache entries as indented JSON keyed by
// candidate URL
func (c *Cache) Snapshot() ([]byte, error) {
	return c.b.snapshot()
}

func (b *backend) snapshot() ([]byte, error) {
	b.m.Lock()
	defer b.m.Unlock()

	data, err := json.MarshalIndent(b.data, "", "\t")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal cache data to json")
	}

	return data, nil
}
