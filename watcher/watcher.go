package watcher

import (
	"context"
	"sync"
	"time"

	"github.com/chrisvdg/linkswap/dom"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultDebounce is the quiet period a mutation burst must end with
	// before the document is scanned again
	DefaultDebounce = 500 * time.Millisecond
	// DefaultBootstrapDelay is the delay of the second bootstrap scan
	DefaultBootstrapDelay = time.Second
)

// Scanner processes the candidate links of a document
type Scanner interface {
	Scan(ctx context.Context, doc *dom.Document) int
	Matches(el *dom.Element) bool
}

// New returns a Watcher keeping doc scanned by s
func New(doc *dom.Document, s Scanner, debounce, bootstrapDelay time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if bootstrapDelay <= 0 {
		bootstrapDelay = DefaultBootstrapDelay
	}
	w := &Watcher{
		doc:            doc,
		scanner:        s,
		bootstrapDelay: bootstrapDelay,
		settled:        make(chan struct{}),
	}
	w.debouncer = NewDebouncer(debounce, w.rescan)

	return w
}

// Watcher scans a document on start, once more after a short delay, and
// after every burst of mutations adding candidate links
type Watcher struct {
	doc            *dom.Document
	scanner        Scanner
	debouncer      *Debouncer
	bootstrapDelay time.Duration

	m         sync.Mutex
	ctx       context.Context
	unobserve func()
	bootstrap *time.Timer
	settled   chan struct{}
	once      sync.Once
}

// Start begins watching the document and scans it
// The bootstrap delay and mutation observation start before the initial
// scan, Start returns once that scan completed.
func (w *Watcher) Start(ctx context.Context) {
	w.m.Lock()
	w.ctx = ctx
	w.bootstrap = time.AfterFunc(w.bootstrapDelay, func() {
		defer w.settle()
		n := w.scanner.Scan(ctx, w.doc)
		log.Debugf("bootstrap scan rewrote %d link(s)", n)
	})
	w.unobserve = w.doc.Observe(w.onMutation)
	w.m.Unlock()

	n := w.scanner.Scan(ctx, w.doc)
	log.Debugf("initial scan rewrote %d link(s)", n)
}

// Settled is closed once the delayed bootstrap scan completed or the watcher
// was stopped
func (w *Watcher) Settled() <-chan struct{} {
	return w.settled
}

// Stop stops watching
// A rescan still pending for earlier mutations runs before Stop returns, a
// scan already running is not interrupted.
func (w *Watcher) Stop() {
	w.m.Lock()
	if w.unobserve != nil {
		w.unobserve()
		w.unobserve = nil
	}
	if w.bootstrap != nil && w.bootstrap.Stop() {
		w.settle()
	}
	w.m.Unlock()

	w.debouncer.Flush()
	w.debouncer.Stop()
}

func (w *Watcher) settle() {
	w.once.Do(func() {
		close(w.settled)
	})
}

// onMutation schedules a rescan when the batch added a candidate link
func (w *Watcher) onMutation(b dom.Batch) {
	for _, added := range b.Added {
		for _, a := range added.Anchors() {
			if w.scanner.Matches(a) {
				w.debouncer.Trigger()
				return
			}
		}
	}
}

func (w *Watcher) rescan() {
	w.m.Lock()
	ctx := w.ctx
	w.m.Unlock()
	if ctx.Err() != nil {
		return
	}

	n := w.scanner.Scan(ctx, w.doc)
	log.Debugf("rescan rewrote %d link(s)", n)
}
