// Package dom holds the Go-side model of the host page: an x/net/html tree
// queried with CSS selectors, mutated only through Document methods so that
// every change can be reported to observers.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Scheduler runs tasks on the page's event loop. Post queues a task for a
// later turn; Microtask runs fn once the current task finishes.
type Scheduler interface {
	Post(fn func()) bool
	Microtask(fn func()) bool
}

// Document is a page. Tree reads may happen from any goroutine; mutations,
// observer callbacks and event handlers belong to the loop behind sched.
type Document struct {
	mu    sync.RWMutex
	root  *html.Node
	loc   string
	sched Scheduler

	observers []*Observer
	listeners map[*html.Node]map[string][]*listener

	selMu     sync.Mutex
	selectors map[string]cascadia.Selector
}

// Parse reads an HTML document
func Parse(r io.Reader, location string, sched Scheduler) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return &Document{
		root:      root,
		loc:       location,
		sched:     sched,
		listeners: make(map[*html.Node]map[string][]*listener),
		selectors: make(map[string]cascadia.Selector),
	}, nil
}

// ParseString is Parse over a string
func ParseString(s, location string, sched Scheduler) (*Document, error) {
	return Parse(strings.NewReader(s), location, sched)
}

// Root returns the document node
func (d *Document) Root() *html.Node { return d.root }

// Location returns the current page URL
func (d *Document) Location() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loc
}

// SetLocation changes the URL without touching the tree, the way
// history.pushState does.
func (d *Document) SetLocation(url string) {
	d.mu.Lock()
	d.loc = url
	d.mu.Unlock()
}

// Compile parses and caches a selector
func (d *Document) Compile(selector string) (cascadia.Selector, error) {
	d.selMu.Lock()
	defer d.selMu.Unlock()

	if sel, ok := d.selectors[selector]; ok {
		return sel, nil
	}
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	d.selectors[selector] = sel
	return sel, nil
}

// QueryAll returns all matches under within, or under the document when
// within is nil, in document order.
func (d *Document) QueryAll(selector string, within *html.Node) ([]*html.Node, error) {
	sel, err := d.Compile(selector)
	if err != nil {
		return nil, err
	}
	if within == nil {
		within = d.root
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	return goquery.NewDocumentFromNode(within).FindMatcher(sel).Nodes, nil
}

// Query returns the first match or nil
func (d *Document) Query(selector string, within *html.Node) *html.Node {
	nodes, err := d.QueryAll(selector, within)
	if err != nil || len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// Text returns the concatenated text content of n, trimmed
func (d *Document) Text(n *html.Node) string {
	if n == nil {
		return ""
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return strings.TrimSpace(goquery.NewDocumentFromNode(n).Text())
}

// Attr returns the value of an attribute and whether it is present
func (d *Document) Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return attr(n, key)
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// Children returns the element children of n
func (d *Document) Children(n *html.Node) []*html.Node {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// Connected reports whether n is still attached to the document
func (d *Document) Connected(n *html.Node) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return contains(d.root, n)
}

// Render serializes n, or the whole document when n is nil
func (d *Document) Render(n *html.Node) string {
	if n == nil {
		n = d.root
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	var buf bytes.Buffer
	_ = html.Render(&buf, n)
	return buf.String()
}

// contains reports whether anc is n or one of its ancestors
func contains(anc, n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == anc {
			return true
		}
	}
	return false
}

// ParseFragment parses markup as the children of context, returning detached
// nodes ready to be inserted.
func (d *Document) ParseFragment(markup string, context *html.Node) ([]*html.Node, error) {
	if context == nil || context.Type != html.ElementNode {
		context = &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), context)
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	return nodes, nil
}
