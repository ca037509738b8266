package watcher_test

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"testing/synctest"
	"time"

	"github.com/chrisvdg/linkswap/dom"
	"github.com/chrisvdg/linkswap/extract"
	"github.com/chrisvdg/linkswap/processor"
	"github.com/chrisvdg/linkswap/translate"
	"github.com/chrisvdg/linkswap/watcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feed = `<html><body><div id="feed"><a href="https://en.example.org/wiki/Foo">Foo</a></div></body></html>`

type fakeScanner struct {
	scans counter
	delay time.Duration
}

func (s *fakeScanner) Scan(ctx context.Context, doc *dom.Document) int {
	s.scans.inc()
	time.Sleep(s.delay)
	return 0
}

func (s *fakeScanner) Matches(el *dom.Element) bool {
	href, _ := el.Attr("href")
	return strings.Contains(href, "en.example.org/wiki/")
}

func parse(t *testing.T) *dom.Document {
	t.Helper()
	doc, err := dom.Parse(strings.NewReader(feed), nil)
	require.NoError(t, err)
	return doc
}

func TestWatcher_Bootstrap(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		s := &fakeScanner{}
		w := watcher.New(parse(t), s, 500*time.Millisecond, time.Second)

		w.Start(context.Background())
		defer w.Stop()
		assert.Equal(t, 1, s.scans.get())

		time.Sleep(999 * time.Millisecond)
		synctest.Wait()
		assert.Equal(t, 1, s.scans.get())

		time.Sleep(2 * time.Millisecond)
		<-w.Settled()
		assert.Equal(t, 2, s.scans.get())
	})
}

func TestWatcher_DebouncesMutationBursts(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		s := &fakeScanner{}
		doc := parse(t)
		w := watcher.New(doc, s, 500*time.Millisecond, time.Second)
		w.Start(context.Background())
		defer w.Stop()
		<-w.Settled()
		require.Equal(t, 2, s.scans.get())

		for i := 0; i < 5; i++ {
			require.NoError(t, doc.AppendHTML("#feed", `<div><a href="https://en.example.org/wiki/Bar">Bar</a></div>`))
			time.Sleep(100 * time.Millisecond)
		}
		synctest.Wait()
		assert.Equal(t, 2, s.scans.get())

		time.Sleep(401 * time.Millisecond)
		synctest.Wait()
		assert.Equal(t, 3, s.scans.get())
	})
}

func TestWatcher_IgnoresUninterestingMutations(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		s := &fakeScanner{}
		doc := parse(t)
		w := watcher.New(doc, s, 500*time.Millisecond, time.Second)
		w.Start(context.Background())
		defer w.Stop()
		<-w.Settled()

		require.NoError(t, doc.AppendHTML("#feed", `<p>text <a href="https://other.test/">other</a></p>`))
		require.NoError(t, doc.AppendHTML("#feed", `plain text`))
		time.Sleep(time.Second)
		synctest.Wait()

		assert.Equal(t, 2, s.scans.get())
	})
}

func TestWatcher_Stop(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		s := &fakeScanner{}
		doc := parse(t)
		w := watcher.New(doc, s, 500*time.Millisecond, time.Second)
		w.Start(context.Background())
		w.Stop()
		<-w.Settled()

		require.NoError(t, doc.AppendHTML("#feed", `<a href="https://en.example.org/wiki/Bar">Bar</a>`))
		time.Sleep(2 * time.Second)
		synctest.Wait()

		assert.Equal(t, 1, s.scans.get())
	})
}

func TestWatcher_StopRunsPendingRescan(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		s := &fakeScanner{}
		doc := parse(t)
		w := watcher.New(doc, s, 500*time.Millisecond, time.Second)
		w.Start(context.Background())
		<-w.Settled()
		require.Equal(t, 2, s.scans.get())

		require.NoError(t, doc.AppendHTML("#feed", `<a href="https://en.example.org/wiki/Bar">Bar</a>`))
		w.Stop()
		assert.Equal(t, 3, s.scans.get())

		time.Sleep(time.Second)
		synctest.Wait()
		assert.Equal(t, 3, s.scans.get())
	})
}

func TestWatcher_WatchesDuringInitialScan(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		s := &fakeScanner{delay: 5 * time.Second}
		doc := parse(t)
		w := watcher.New(doc, s, 500*time.Millisecond, time.Second)
		started := make(chan struct{})
		go func() {
			w.Start(context.Background())
			close(started)
		}()

		time.Sleep(100 * time.Millisecond)
		require.NoError(t, doc.AppendHTML("#feed", `<a href="https://en.example.org/wiki/Bar">Bar</a>`))

		// initial scan plus the debounced rescan of the addition
		time.Sleep(550 * time.Millisecond)
		assert.Equal(t, 2, s.scans.get())

		// bootstrap scan one second after start, initial scan still running
		time.Sleep(400 * time.Millisecond)
		assert.Equal(t, 3, s.scans.get())

		<-started
		<-w.Settled()
		w.Stop()
	})
}

type staticChecker map[string]bool

func (s staticChecker) Exists(ctx context.Context, candidateURL string) bool {
	return s[candidateURL]
}

func TestWatcher_RewritesAddedLinks(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tr, err := translate.New("https://alt.example.org")
		require.NoError(t, err)
		x := extract.New(extract.Config{
			SourceHost:      "en.example.org",
			ArticlePath:     "/wiki/",
			RedirectMarkers: []string{"/url?"},
			RedirectParams:  []string{"q"},
		})
		c := staticChecker{
			"https://alt.example.org/wiki/Foo": true,
			"https://alt.example.org/wiki/Bar": true,
		}
		base, err := url.Parse("https://www.search.test/")
		require.NoError(t, err)
		doc, err := dom.Parse(strings.NewReader(feed), base)
		require.NoError(t, err)

		w := watcher.New(doc, processor.New(x, tr, c, 2), 500*time.Millisecond, time.Second)
		w.Start(context.Background())
		defer w.Stop()
		assert.Contains(t, render(t, doc), `href="https://alt.example.org/wiki/Foo"`)

		require.NoError(t, doc.AppendHTML("#feed", `<a id="bar" href="/url?q=https%3A%2F%2Fen.example.org%2Fwiki%2FBar">Bar</a>`))
		time.Sleep(600 * time.Millisecond)
		synctest.Wait()

		bar := doc.Find("#bar")
		require.Len(t, bar, 1)
		href, _ := bar[0].Attr("href")
		assert.Equal(t, "https://alt.example.org/wiki/Bar", href)
		assert.Equal(t, dom.StateRewritten, bar[0].State())
	})
}

func render(t *testing.T, doc *dom.Document) string {
	t.Helper()
	var b strings.Builder
	require.NoError(t, doc.Render(&b))
	return b.String()
}
