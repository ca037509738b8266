// Package extract finds source site article URLs behind anchor elements,
// including links wrapped by search engine redirects.
package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ErrNotApplicable is returned when an element does not reference a source
// site article
var ErrNotApplicable = errors.New("element does not reference a source article")

// Element is the attribute access the extractor needs
type Element interface {
	Attr(name string) (string, bool)
}

// Config configures an Extractor
type Config struct {
	// SourceHost is matched as a substring, e.g. wikipedia.org
	SourceHost string
	// ArticlePath is the path segment of article links, e.g. /wiki/
	ArticlePath string
	// AltHrefAttr is the secondary link attribute, e.g. data-href
	AltHrefAttr string
	// RedirectMarkers identify a search engine redirect wrapper in href
	RedirectMarkers []string
	// RedirectParams are the query parameters that may hold the wrapped
	// target, in order of preference
	RedirectParams []string
}

// New returns an Extractor for the given config
func New(c Config) *Extractor {
	x := &Extractor{
		c:       c,
		article: c.SourceHost + c.ArticlePath,
	}
	for _, p := range c.RedirectParams {
		x.patterns = append(x.patterns, regexp.MustCompile(`[?&]`+regexp.QuoteMeta(p)+`=([^&#]*)`))
	}

	return x
}

// Extractor resolves source article URLs from anchors
type Extractor struct {
	c        Config
	article  string
	patterns []*regexp.Regexp
}

// Matches is a cheap test for whether el is worth extracting: its primary or
// secondary attribute references a source article directly, or it is a
// redirect wrapper mentioning the source host
func (x *Extractor) Matches(el Element) bool {
	href, _ := el.Attr("href")
	if href == "" && x.c.AltHrefAttr != "" {
		href, _ = el.Attr(x.c.AltHrefAttr)
	}
	if strings.Contains(href, x.article) {
		return true
	}

	return x.isRedirect(href) && strings.Contains(href, x.c.SourceHost)
}

// Extract returns the absolute source article URL el references, relative
// values are resolved against base
func (x *Extractor) Extract(el Element, base *url.URL) (string, error) {
	href, _ := el.Attr("href")

	if x.isRedirect(href) {
		if target, ok := x.unwrap(href, base); ok {
			href = target
		}
	}

	if !strings.Contains(href, x.c.SourceHost) && x.c.AltHrefAttr != "" {
		if alt, ok := el.Attr(x.c.AltHrefAttr); ok && strings.Contains(alt, x.c.SourceHost) {
			href = alt
		}
	}

	if !strings.Contains(href, x.article) {
		return "", ErrNotApplicable
	}

	u, err := url.Parse(href)
	if err != nil {
		log.Debugf("failed to parse link target %q: %s", href, err)
		return "", ErrNotApplicable
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", ErrNotApplicable
	}

	return u.String(), nil
}

func (x *Extractor) isRedirect(href string) bool {
	for _, m := range x.c.RedirectMarkers {
		if strings.Contains(href, m) {
			return true
		}
	}

	return false
}

// unwrap decodes the target of a redirect wrapper
// Raw pattern matches are tried for every parameter before falling back to
// parsing the query string.
func (x *Extractor) unwrap(href string, base *url.URL) (string, bool) {
	for _, re := range x.patterns {
		m := re.FindStringSubmatch(href)
		if m == nil {
			continue
		}
		// a literal + in a wrapped target is part of the article name
		v, err := url.PathUnescape(m[1])
		if err != nil {
			continue
		}
		if strings.Contains(v, x.c.SourceHost) {
			return v, true
		}
	}

	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	q, err := url.ParseQuery(u.RawQuery)
	if err != nil && len(q) == 0 {
		return "", false
	}
	for _, p := range x.c.RedirectParams {
		v := q.Get(p)
		if v != "" && strings.Contains(v, x.c.SourceHost) {
			return v, true
		}
	}

	return "", false
}
