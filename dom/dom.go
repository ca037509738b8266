// Package dom provides a goroutine safe HTML document with the small set of
// capabilities the link pipeline consumes: querying anchors, reading and
// writing attributes, appending content and observing additions.
package dom

import (
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Batch is the set of nodes added to the document by a single mutation
type Batch struct {
	Added []*Element
}

// Document represents a parsed HTML document
type Document struct {
	m         sync.Mutex
	doc       *goquery.Document
	base      *url.URL
	observers map[int]func(Batch)
	nextID    int
}

// Parse reads an HTML document, base is the URL the document was loaded from
// and is used to resolve relative links (may be nil)
func Parse(r io.Reader, base *url.URL) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse html document")
	}
	if base == nil {
		base = &url.URL{}
	}

	return &Document{
		doc:       doc,
		base:      base,
		observers: make(map[int]func(Batch)),
	}, nil
}

// Base returns the URL relative links resolve against
func (d *Document) Base() *url.URL {
	return d.base
}

// Find returns the elements matching the CSS selector
func (d *Document) Find(selector string) []*Element {
	d.m.Lock()
	defer d.m.Unlock()

	return d.wrap(d.doc.Find(selector).Nodes)
}

// Links returns every anchor of the document that has not been claimed by
// the link processor yet
func (d *Document) Links() []*Element {
	return d.Find("a:not([" + StateAttr + "])")
}

// Render writes the document as HTML to w
func (d *Document) Render(w io.Writer) error {
	d.m.Lock()
	defer d.m.Unlock()

	return html.Render(w, d.doc.Get(0))
}

// AppendHTML parses fragment in the context of the first element matching
// selector and appends the resulting nodes to it
// Observers are notified with the top level nodes that were added.
func (d *Document) AppendHTML(selector, fragment string) error {
	d.m.Lock()
	target := d.doc.Find(selector).First()
	if target.Length() == 0 {
		d.m.Unlock()
		return errors.Errorf("no element matches %q", selector)
	}
	parent := target.Get(0)
	nodes, err := html.ParseFragment(strings.NewReader(fragment), parent)
	if err != nil {
		d.m.Unlock()
		return errors.Wrap(err, "failed to parse html fragment")
	}
	for _, n := range nodes {
		parent.AppendChild(n)
	}
	batch := Batch{Added: d.wrap(nodes)}
	observers := make([]func(Batch), 0, len(d.observers))
	for _, fn := range d.observers {
		observers = append(observers, fn)
	}
	d.m.Unlock()

	for _, fn := range observers {
		fn(batch)
	}

	return nil
}

// Observe registers fn to be called after every mutation of the document
// The returned function unregisters it.
func (d *Document) Observe(fn func(Batch)) func() {
	d.m.Lock()
	defer d.m.Unlock()

	id := d.nextID
	d.nextID++
	d.observers[id] = fn

	return func() {
		d.m.Lock()
		defer d.m.Unlock()
		delete(d.observers, id)
	}
}

// wrap must be called with the document locked
func (d *Document) wrap(nodes []*html.Node) []*Element {
	els := make([]*Element, 0, len(nodes))
	for _, n := range nodes {
		els = append(els, &Element{d: d, n: n})
	}

	return els
}

// Element represents a node of a Document
type Element struct {
	d *Document
	n *html.Node
}

// Attr returns the value of the named attribute
func (e *Element) Attr(name string) (string, bool) {
	e.d.m.Lock()
	defer e.d.m.Unlock()

	return getAttr(e.n, name)
}

// Anchors returns the element itself when it is an anchor followed by all
// anchors it contains
func (e *Element) Anchors() []*Element {
	e.d.m.Lock()
	defer e.d.m.Unlock()

	if e.n.Type != html.ElementNode {
		return nil
	}
	sel := goquery.NewDocumentFromNode(e.n).Selection
	nodes := sel.Find("a").Nodes
	if e.n.DataAtom == atom.A {
		nodes = append([]*html.Node{e.n}, nodes...)
	}

	return e.d.wrap(nodes)
}

func getAttr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}

	return "", false
}

func setAttr(n *html.Node, name, value string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}
