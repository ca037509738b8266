// Package translate maps source site article URLs onto the alternate site.
package translate

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// New returns a Translator rewriting onto origin, e.g. https://grokipedia.com
func New(origin string) (*Translator, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse alternate origin")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("alternate origin %q is not absolute", origin)
	}

	return &Translator{
		origin: u.Scheme + "://" + u.Host,
	}, nil
}

// Translator produces candidate alternate site URLs
type Translator struct {
	origin string
}

// Translate keeps the path and fragment of sourceURL and swaps its origin
// The query string is dropped. ok is false when sourceURL is not an absolute URL.
func (t *Translator) Translate(sourceURL string) (string, bool) {
	u, err := url.Parse(sourceURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}

	var b strings.Builder
	b.WriteString(t.origin)
	b.WriteString(u.EscapedPath())
	if u.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(u.EscapedFragment())
	}

	return b.String(), true
}
