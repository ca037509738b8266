// Package pipeline assembles the link rewriting components from a
// configuration.
package pipeline

import (
	"context"
	"net/http"

	"github.com/chrisvdg/linkswap/cache"
	"github.com/chrisvdg/linkswap/channel"
	"github.com/chrisvdg/linkswap/checker"
	"github.com/chrisvdg/linkswap/config"
	"github.com/chrisvdg/linkswap/dom"
	"github.com/chrisvdg/linkswap/extract"
	"github.com/chrisvdg/linkswap/metrics"
	"github.com/chrisvdg/linkswap/processor"
	"github.com/chrisvdg/linkswap/translate"
	"github.com/chrisvdg/linkswap/watcher"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// NewVerifier returns the network backed checker and the cache it fills
func NewVerifier(c *config.Config, m *metrics.Metrics) (*checker.Verifier, *cache.Cache) {
	ca := cache.New(c.Check.CacheTTL, c.Check.CleanupInterval)
	v := checker.NewVerifier(
		ca,
		&http.Client{},
		checker.NewClassifier(c.Alternate.ArticlePaths, c.Alternate.SoftNotFound),
		checker.VerifierConfig{
			Timeout:       c.Check.Timeout,
			BodyLimit:     c.Check.BodyLimit,
			UserAgent:     c.Check.UserAgent,
			RatePerSecond: c.Check.RatePerSecond,
		},
		m,
	)

	return v, ca
}

// NewProxy returns the checker of a page, asking the verification service
// over the channel
func NewProxy(c *config.Config, m *metrics.Metrics) *checker.Proxy {
	client := channel.NewClient(c.Channel.Endpoint, c.Channel.Retries, c.Channel.Timeout)
	return checker.NewProxy(cache.New(c.Check.CacheTTL, 0), client, m)
}

// NewTranslator returns the translator onto the alternate origin
func NewTranslator(c *config.Config) (*translate.Translator, error) {
	t, err := translate.New(c.Alternate.Origin)
	if err != nil {
		return nil, errors.Wrap(err, "invalid alternate origin")
	}
	return t, nil
}

// NewExtractor returns the extractor of source article links
func NewExtractor(c *config.Config) *extract.Extractor {
	return extract.New(extract.Config{
		SourceHost:      c.Source.Host,
		ArticlePath:     c.Source.ArticlePath,
		AltHrefAttr:     c.Source.AltHrefAttr,
		RedirectMarkers: c.Redirect.Markers,
		RedirectParams:  c.Redirect.Params,
	})
}

// NewProcessor returns a processor deciding with ch
func NewProcessor(c *config.Config, ch checker.Checker) (*processor.Processor, error) {
	t, err := NewTranslator(c)
	if err != nil {
		return nil, err
	}

	return processor.New(NewExtractor(c), t, ch, c.Watch.Concurrency), nil
}

// Rewrite processes doc until the delayed bootstrap scan completed or ctx is
// done, mutations made meanwhile are picked up, including those still
// waiting out the debounce window
// It returns the amount of links pointing at the alternate site.
func Rewrite(ctx context.Context, c *config.Config, doc *dom.Document, p *processor.Processor) int {
	w := watcher.New(doc, p, c.Watch.Debounce, c.Watch.BootstrapDelay)
	w.Start(ctx)
	select {
	case <-w.Settled():
	case <-ctx.Done():
	}
	w.Stop()

	rewritten, pending := 0, 0
	for _, el := range doc.Find("a[" + dom.StateAttr + "]") {
		switch state := el.State(); {
		case state == dom.StateRewritten:
			rewritten++
		case !state.Finalized():
			pending++
		}
	}
	if pending > 0 {
		log.Warnf("%d link(s) still being checked, left at their original target", pending)
	}

	return rewritten
}
