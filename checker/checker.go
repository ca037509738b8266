// Package checker decides whether a candidate URL resolves to a genuine
// article on the alternate site.
//
// Two implementations share the Checker interface: Verifier performs the
// network verification itself, Proxy delegates it over a Transport to a
// process that runs a Verifier. Both keep their own existence cache.
package checker

import (
	"context"

	"github.com/chrisvdg/linkswap/cache"
	"github.com/chrisvdg/linkswap/metrics"
	"golang.org/x/sync/singleflight"
)

// Checker reports whether a candidate URL exists
// Implementations are fail closed: any doubt reports false.
type Checker interface {
	Exists(ctx context.Context, candidateURL string) bool
}

// memo serves verdicts from the cache and collapses concurrent resolutions
// of the same URL into one
type memo struct {
	cache   *cache.Cache
	group   singleflight.Group
	metrics *metrics.Metrics
}

// do returns the verdict for candidateURL, resolving it when not cached
// The resolution is shared by every concurrent caller and is not bound to
// any single caller's context, resolve applies its own bounds. A caller
// whose context ends first gets false, the shared verdict is still cached.
func (m *memo) do(ctx context.Context, candidateURL string, resolve func(context.Context, string) bool) bool {
	if exists, ok := m.cache.Get(candidateURL); ok {
		m.metrics.CacheLookup(true)
		return exists
	}
	m.metrics.CacheLookup(false)
	if ctx.Err() != nil {
		return false
	}

	flight := context.WithoutCancel(ctx)
	ch := m.group.DoChan(candidateURL, func() (interface{}, error) {
		// a flight that just landed may have filled the cache
		if exists, ok := m.cache.Get(candidateURL); ok {
			return exists, nil
		}
		exists := resolve(flight, candidateURL)
		m.cache.Set(candidateURL, exists)
		return exists, nil
	})

	select {
	case r := <-ch:
		return r.Val.(bool)
	case <-ctx.Done():
		return false
	}
}
