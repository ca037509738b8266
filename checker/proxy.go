package checker

import (
	"context"

	"github.com/chrisvdg/linkswap/cache"
	"github.com/chrisvdg/linkswap/metrics"
	log "github.com/sirupsen/logrus"
)

// Transport delivers an existence question to the process doing the
// network verification
type Transport interface {
	Check(ctx context.Context, candidateURL string) (bool, error)
}

// NewProxy returns a Proxy asking t and remembering answers in c
func NewProxy(c *cache.Cache, t Transport, m *metrics.Metrics) *Proxy {
	return &Proxy{
		memo:      memo{cache: c, metrics: m},
		transport: t,
	}
}

// Proxy is the Checker of a process that may not fetch candidate URLs itself
// Transport failures are answered, and remembered, as not existing.
type Proxy struct {
	memo
	transport Transport
}

// Exists returns the cached verdict for candidateURL or asks the transport
func (p *Proxy) Exists(ctx context.Context, candidateURL string) bool {
	return p.do(ctx, candidateURL, func(ctx context.Context, candidateURL string) bool {
		exists, err := p.transport.Check(ctx, candidateURL)
		if err != nil {
			log.Debugf("existence check for %s failed: %s", candidateURL, err)
			return false
		}
		return exists
	})
}
