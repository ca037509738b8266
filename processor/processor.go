// Package processor rewrites source article links of a document to the
// alternate site when the alternate article exists.
package processor

import (
	"context"
	"sync/atomic"

	"github.com/chrisvdg/linkswap/checker"
	"github.com/chrisvdg/linkswap/dom"
	"github.com/chrisvdg/linkswap/extract"
	"github.com/chrisvdg/linkswap/translate"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Outcome represents what happened to an element
type Outcome string

const (
	// OutcomeSkipped represents an element another pass already claimed
	OutcomeSkipped Outcome = "skipped"
	// OutcomeRewritten represents an element now pointing at the alternate site
	OutcomeRewritten Outcome = "rewritten"
	// OutcomeKept represents an element left at its original target
	OutcomeKept Outcome = "kept"
)

// New returns a Processor
// concurrency bounds the element pipelines a Scan runs at once.
func New(x *extract.Extractor, t *translate.Translator, c checker.Checker, concurrency int) *Processor {
	if concurrency <= 0 {
		concurrency = 1
	}

	return &Processor{
		extractor:   x,
		translator:  t,
		checker:     c,
		concurrency: concurrency,
	}
}

// Processor drives elements from unprocessed to finalized
type Processor struct {
	extractor   *extract.Extractor
	translator  *translate.Translator
	checker     checker.Checker
	concurrency int
}

// Matches is the cheap candidate test used to select elements for processing
func (p *Processor) Matches(el *dom.Element) bool {
	return p.extractor.Matches(el)
}

// Scan processes every unclaimed candidate anchor of doc and waits for them
// It returns the amount of elements rewritten.
func (p *Processor) Scan(ctx context.Context, doc *dom.Document) int {
	var (
		g         errgroup.Group
		found     int
		rewritten int64
	)
	g.SetLimit(p.concurrency)

	for _, el := range doc.Links() {
		if !p.Matches(el) {
			continue
		}
		// claimed before any goroutine starts so an overlapping scan skips it
		if !el.Claim() {
			continue
		}
		found++
		el := el
		g.Go(func() error {
			if p.finish(ctx, doc, el) == OutcomeRewritten {
				atomic.AddInt64(&rewritten, 1)
			}
			return nil
		})
	}
	_ = g.Wait()

	if found > 0 {
		log.Debugf("processed %d source link(s), %d rewritten", found, rewritten)
	}

	return int(rewritten)
}

// Process runs the whole pipeline for a single element
// Elements already processing or finalized are skipped.
func (p *Processor) Process(ctx context.Context, doc *dom.Document, el *dom.Element) Outcome {
	if !el.Claim() {
		return OutcomeSkipped
	}

	return p.finish(ctx, doc, el)
}

// finish takes a claimed element to a finalized state, whatever happens
func (p *Processor) finish(ctx context.Context, doc *dom.Document, el *dom.Element) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Warnf("processing link failed: %v", r)
			el.Keep()
			outcome = OutcomeKept
		}
	}()

	source, candidate, err := p.resolve(doc, el)
	if err != nil {
		log.Debugf("keeping link: %s", err)
		el.Keep()
		return OutcomeKept
	}

	if !p.checker.Exists(ctx, candidate) {
		log.Debugf("keeping %s, %s does not exist", source, candidate)
		el.Keep()
		return OutcomeKept
	}

	el.Rewrite(candidate, source)
	log.Infof("replaced %s -> %s", source, candidate)

	return OutcomeRewritten
}

func (p *Processor) resolve(doc *dom.Document, el *dom.Element) (source, candidate string, err error) {
	source, err = p.extractor.Extract(el, doc.Base())
	if err != nil {
		return "", "", err
	}
	candidate, ok := p.translator.Translate(source)
	if !ok {
		return "", "", errors.Errorf("no translation for %s", source)
	}

	return source, candidate, nil
}
