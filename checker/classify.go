package checker

import (
	"bytes"
	"net/http"
	"net/url"
	"strings"
)

// Reasons reported with a verdict
const (
	ReasonArticle    = "article"
	ReasonStatus     = "status"
	ReasonRedirected = "redirected"
	ReasonSoft404    = "soft404"
	ReasonTimeout    = "timeout"
	ReasonNetwork    = "network"
	ReasonInvalid    = "invalid"
	ReasonCancelled  = "cancelled"
)

// Verdict is the outcome of a verification
type Verdict struct {
	Exists bool
	Reason string
}

// NewClassifier returns a Classifier accepting final URLs under one of
// articlePaths and rejecting bodies containing one of the softNotFound phrases
func NewClassifier(articlePaths, softNotFound []string) *Classifier {
	c := &Classifier{
		articlePaths: articlePaths,
	}
	for _, phrase := range softNotFound {
		if phrase = strings.TrimSpace(phrase); phrase != "" {
			c.markers = append(c.markers, bytes.ToLower([]byte(phrase)))
		}
	}

	return c
}

// Classifier applies the existence policy to a completed response
type Classifier struct {
	articlePaths []string
	markers      [][]byte
}

// Classify returns the verdict for a response with the given status, final
// (post redirect) URL and body prefix
func (c *Classifier) Classify(status int, finalURL string, body []byte) Verdict {
	if status != http.StatusOK {
		return Verdict{Reason: ReasonStatus}
	}
	if !c.IsArticle(finalURL) {
		return Verdict{Reason: ReasonRedirected}
	}
	lower := bytes.ToLower(body)
	for _, m := range c.markers {
		if bytes.Contains(lower, m) {
			return Verdict{Reason: ReasonSoft404}
		}
	}

	return Verdict{Exists: true, Reason: ReasonArticle}
}

// IsArticle returns true when rawURL has an article path with a non empty
// article name
func (c *Classifier) IsArticle(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	for _, p := range c.articlePaths {
		if strings.HasPrefix(u.Path, p) && len(strings.Trim(u.Path[len(p):], "/")) > 0 {
			return true
		}
	}

	return false
}
