package checker

import (
	"context"
	"io"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/chrisvdg/linkswap/cache"
	"github.com/chrisvdg/linkswap/metrics"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds a single verification request
	DefaultTimeout = 5 * time.Second
	// DefaultBodyLimit is the amount of body scanned for soft 404 markers
	DefaultBodyLimit = 8 * 1024
)

// VerifierConfig configures a Verifier
type VerifierConfig struct {
	Timeout   time.Duration
	BodyLimit int64
	UserAgent string
	// RatePerSecond limits outbound requests, 0 means unlimited
	RatePerSecond float64
}

// NewVerifier returns a Verifier fetching with client and remembering
// verdicts in c
func NewVerifier(c *cache.Cache, client *http.Client, classifier *Classifier, conf VerifierConfig, m *metrics.Metrics) *Verifier {
	if conf.Timeout <= 0 {
		conf.Timeout = DefaultTimeout
	}
	if conf.BodyLimit <= 0 {
		conf.BodyLimit = DefaultBodyLimit
	}
	if client == nil {
		client = &http.Client{}
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if conf.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(conf.RatePerSecond), 1)
	}

	return &Verifier{
		memo:       memo{cache: c, metrics: m},
		conf:       conf,
		http:       client,
		classifier: classifier,
		limiter:    limiter,
		metrics:    m,
	}
}

// Verifier checks candidate URLs over the network
type Verifier struct {
	memo
	conf       VerifierConfig
	http       *http.Client
	classifier *Classifier
	limiter    *rate.Limiter
	metrics    *metrics.Metrics
}

// Exists returns the cached verdict for candidateURL or verifies it
func (v *Verifier) Exists(ctx context.Context, candidateURL string) bool {
	return v.do(ctx, candidateURL, func(ctx context.Context, candidateURL string) bool {
		verdict := v.Verify(ctx, candidateURL)
		log.Debugf("verified %s: exists=%t (%s)", candidateURL, verdict.Exists, verdict.Reason)
		v.metrics.Check(verdict.Exists, verdict.Reason)
		return verdict.Exists
	})
}

// Verify fetches candidateURL, bypassing the cache, and classifies the result
func (v *Verifier) Verify(ctx context.Context, candidateURL string) Verdict {
	ctx, cancel := context.WithTimeout(ctx, v.conf.Timeout)
	defer cancel()

	if err := v.limiter.Wait(ctx); err != nil {
		return v.failure(ctx, errors.Wrap(err, "rate limit wait"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, candidateURL, nil)
	if err != nil {
		log.Debugf("failed to build verification request for %s: %s", candidateURL, err)
		return Verdict{Reason: ReasonInvalid}
	}
	if v.conf.UserAgent != "" {
		req.Header.Set("User-Agent", v.conf.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	start := time.Now()
	resp, err := v.http.Do(req)
	if err != nil {
		return v.failure(ctx, errors.Wrap(err, "verification request failed"))
	}
	defer resp.Body.Close()

	finalURL := candidateURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	var body []byte
	if resp.StatusCode == http.StatusOK && v.classifier.IsArticle(finalURL) {
		body, err = readPrefix(resp.Body, resp.Header.Get("Content-Type"), v.conf.BodyLimit)
		if err != nil {
			return v.failure(ctx, errors.Wrap(err, "failed to read response body"))
		}
	}
	v.metrics.Fetch(time.Since(start))

	return v.classifier.Classify(resp.StatusCode, finalURL, body)
}

// failure classifies a request that could not complete
func (v *Verifier) failure(ctx context.Context, err error) Verdict {
	reason := ReasonNetwork
	switch ctx.Err() {
	case context.DeadlineExceeded:
		reason = ReasonTimeout
	case context.Canceled:
		reason = ReasonCancelled
	}
	log.Debugf("verification failed (%s): %s", reason, err)

	return Verdict{Reason: reason}
}

// readPrefix reads at most limit bytes of body decoded to UTF-8
func readPrefix(body io.Reader, contentType string, limit int64) ([]byte, error) {
	prefix := io.LimitReader(body, limit)
	r, err := charset.NewReader(prefix, contentType)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return ioutil.ReadAll(r)
}
