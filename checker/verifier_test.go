package checker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chrisvdg/linkswap/cache"
	"github.com/chrisvdg/linkswap/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// altSite serves a fake alternate site and counts the requests it receives
type altSite struct {
	*httptest.Server
	hits  int64
	delay time.Duration
}

func newAltSite(t *testing.T) *altSite {
	s := &altSite{}
	mux := http.NewServeMux()
	mux.HandleFunc("/wiki/Foo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body><h1>Foo</h1></body></html>"))
	})
	mux.HandleFunc("/wiki/Ghost", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body><p>Article not found</p></body></html>"))
	})
	mux.HandleFunc("/wiki/Moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/page/Moved", http.StatusFound)
	})
	mux.HandleFunc("/page/Moved", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<h1>Moved</h1>"))
	})
	mux.HandleFunc("/wiki/Home", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusFound)
	})
	mux.HandleFunc("/wiki/Late", func(w http.ResponseWriter, r *http.Request) {
		// the marker sits past the scanned prefix
		_, _ = w.Write(append(make([]byte, 64), []byte("Article not found")...))
	})
	mux.HandleFunc("/wiki/Slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			_, _ = w.Write([]byte("home"))
			return
		}
		http.NotFound(w, r)
	})

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&s.hits, 1)
		if s.delay > 0 {
			time.Sleep(s.delay)
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(s.Close)

	return s
}

func (s *altSite) Hits() int64 {
	return atomic.LoadInt64(&s.hits)
}

func newTestVerifier(site *altSite, ttl time.Duration, conf VerifierConfig) *Verifier {
	classifier := NewClassifier([]string{"/wiki/", "/page/"}, []string{"Article not found"})
	return NewVerifier(cache.New(ttl, 0), site.Client(), classifier, conf, nil)
}

func TestVerify(t *testing.T) {
	site := newAltSite(t)
	v := newTestVerifier(site, time.Hour, VerifierConfig{BodyLimit: 32})

	tests := []struct {
		path string
		want Verdict
	}{
		{"/wiki/Foo", Verdict{Exists: true, Reason: ReasonArticle}},
		{"/wiki/Ghost", Verdict{Reason: ReasonSoft404}},
		{"/wiki/Moved", Verdict{Exists: true, Reason: ReasonArticle}},
		{"/wiki/Home", Verdict{Reason: ReasonRedirected}},
		{"/wiki/Missing", Verdict{Reason: ReasonStatus}},
		{"/wiki/Late", Verdict{Exists: true, Reason: ReasonArticle}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, v.Verify(context.Background(), site.URL+tt.path))
		})
	}
}

func TestVerifyTimeout(t *testing.T) {
	site := newAltSite(t)
	v := newTestVerifier(site, time.Hour, VerifierConfig{Timeout: 50 * time.Millisecond})

	start := time.Now()
	verdict := v.Verify(context.Background(), site.URL+"/wiki/Slow")
	assert.Equal(t, Verdict{Reason: ReasonTimeout}, verdict)
	assert.Less(t, int64(time.Since(start)), int64(time.Second))
}

func TestVerifyNetworkFailure(t *testing.T) {
	site := newAltSite(t)
	v := newTestVerifier(site, time.Hour, VerifierConfig{})
	url := site.URL + "/wiki/Foo"
	site.Close()

	assert.Equal(t, Verdict{Reason: ReasonNetwork}, v.Verify(context.Background(), url))
}

func TestVerifyInvalidURL(t *testing.T) {
	site := newAltSite(t)
	v := newTestVerifier(site, time.Hour, VerifierConfig{})

	assert.Equal(t, Verdict{Reason: ReasonInvalid}, v.Verify(context.Background(), "http://[::1"))
}

func TestExistsCachesVerdicts(t *testing.T) {
	assert := assert.New(t)
	site := newAltSite(t)
	v := newTestVerifier(site, time.Hour, VerifierConfig{})

	assert.True(v.Exists(context.Background(), site.URL+"/wiki/Foo"))
	assert.True(v.Exists(context.Background(), site.URL+"/wiki/Foo"))
	assert.False(v.Exists(context.Background(), site.URL+"/wiki/Ghost"))
	assert.False(v.Exists(context.Background(), site.URL+"/wiki/Ghost"))
	assert.Equal(int64(2), site.Hits())
}

func TestExistsCachesTimeouts(t *testing.T) {
	assert := assert.New(t)
	site := newAltSite(t)
	v := newTestVerifier(site, time.Hour, VerifierConfig{Timeout: 50 * time.Millisecond})

	assert.False(v.Exists(context.Background(), site.URL+"/wiki/Slow"))
	assert.False(v.Exists(context.Background(), site.URL+"/wiki/Slow"))
	assert.Equal(int64(1), site.Hits())
}

func TestExistsRefreshesExpiredEntries(t *testing.T) {
	assert := assert.New(t)
	site := newAltSite(t)
	v := newTestVerifier(site, 100*time.Millisecond, VerifierConfig{})

	assert.True(v.Exists(context.Background(), site.URL+"/wiki/Foo"))
	assert.True(v.Exists(context.Background(), site.URL+"/wiki/Foo"))
	assert.Equal(int64(1), site.Hits())

	time.Sleep(150 * time.Millisecond)
	assert.True(v.Exists(context.Background(), site.URL+"/wiki/Foo"))
	assert.Equal(int64(2), site.Hits())
}

func TestExistsCollapsesConcurrentChecks(t *testing.T) {
	site := newAltSite(t)
	site.delay = 50 * time.Millisecond
	v := newTestVerifier(site, time.Hour, VerifierConfig{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, v.Exists(context.Background(), site.URL+"/wiki/Foo"))
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), site.Hits())
}

func TestExistsSurvivesCancelledFirstCaller(t *testing.T) {
	site := newAltSite(t)
	site.delay = 200 * time.Millisecond
	v := newTestVerifier(site, time.Hour, VerifierConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan bool)
	go func() { first <- v.Exists(ctx, site.URL+"/wiki/Foo") }()
	time.Sleep(50 * time.Millisecond)

	second := make(chan bool)
	go func() { second <- v.Exists(context.Background(), site.URL+"/wiki/Foo") }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	assert.False(t, <-first)
	assert.True(t, <-second)
	assert.True(t, v.Exists(context.Background(), site.URL+"/wiki/Foo"))
	assert.Equal(t, int64(1), site.Hits())
}

func TestExistsDoesNotCacheCancelledCallers(t *testing.T) {
	site := newAltSite(t)
	v := newTestVerifier(site, time.Hour, VerifierConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, v.Exists(ctx, site.URL+"/wiki/Foo"))
	assert.True(t, v.Exists(context.Background(), site.URL+"/wiki/Foo"))
}

func TestExistsRecordsMetrics(t *testing.T) {
	site := newAltSite(t)
	classifier := NewClassifier([]string{"/wiki/"}, nil)
	reg := prometheus.NewRegistry()
	v := NewVerifier(cache.New(time.Hour, 0), site.Client(), classifier, VerifierConfig{}, metrics.New(reg))

	require.True(t, v.Exists(context.Background(), site.URL+"/wiki/Foo"))
	require.True(t, v.Exists(context.Background(), site.URL+"/wiki/Foo"))

	n, err := testutil.GatherAndCount(reg, "linkswap_cache_lookups_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "one hit and one miss series")
	n, err = testutil.GatherAndCount(reg, "linkswap_checks_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRateLimit(t *testing.T) {
	site := newAltSite(t)
	v := newTestVerifier(site, time.Hour, VerifierConfig{RatePerSecond: 1000, Timeout: time.Second})

	assert.True(t, v.Exists(context.Background(), site.URL+"/wiki/Foo"))
	assert.True(t, v.Exists(context.Background(), site.URL+"/wiki/Moved"))
}
