package host

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"artgrab/internal/dom"
	"artgrab/internal/loop"
	errs "artgrab/pkg/errors"
	"artgrab/pkg/logger"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Config locates the swappable parts of a page
type Config struct {
	RegionSelector string
	PanelSelector  string
	IsDetail       func(location string) bool
}

// Tab is one open page
type Tab struct {
	loop  *loop.Loop
	fetch Fetcher
	cfg   Config
	doc   *dom.Document
	log   logger.Logger

	mu     sync.Mutex
	source string
}

// Open fetches url and parses it into a document driven by l
func Open(ctx context.Context, fetch Fetcher, l *loop.Loop, url string, cfg Config, log logger.Logger) (*Tab, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if cfg.IsDetail == nil {
		cfg.IsDetail = func(string) bool { return false }
	}

	src, err := fetch.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := dom.ParseString(src, url, l)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeMalformedData, "parse page", err)
	}

	log.InfoWithFields("Page opened", map[string]interface{}{"url": url})
	return &Tab{loop: l, fetch: fetch, cfg: cfg, doc: doc, log: log.WithField("component", "tab"), source: src}, nil
}

// Document returns the live page
func (t *Tab) Document() *dom.Document { return t.doc }

// Source returns the markup of the most recently fetched page
func (t *Tab) Source() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.source
}

// Navigate fetches url and applies it to the live document on the loop.
// Moving between two detail pages whose panels both exist only swaps the
// panel's children; anything else replaces the page region's children.
func (t *Tab) Navigate(ctx context.Context, url string) error {
	src, err := t.fetch.Fetch(ctx, url)
	if err != nil {
		return err
	}
	next, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return errs.Wrap(errs.ErrorTypeMalformedData, "parse page", err)
	}

	t.mu.Lock()
	t.source = src
	t.mu.Unlock()

	return t.loop.Call(ctx, func() error {
		from := t.doc.Location()
		if t.cfg.IsDetail(from) && t.cfg.IsDetail(url) {
			panel := t.doc.Query(t.cfg.PanelSelector, nil)
			incoming := next.Find(t.cfg.PanelSelector).First()
			if panel != nil && incoming.Length() > 0 {
				t.doc.SetLocation(url)
				t.doc.ReplaceChildren(panel, takeChildren(incoming.Get(0))...)
				t.log.DebugWithFields("Swapped item panel", map[string]interface{}{"url": url})
				return nil
			}
		}

		region := t.doc.Query(t.cfg.RegionSelector, nil)
		if region == nil {
			return errs.New(errs.ErrorTypeSelectorMiss, fmt.Sprintf("%s not in current page", t.cfg.RegionSelector))
		}
		incoming := next.Find(t.cfg.RegionSelector).First()
		if incoming.Length() == 0 {
			return errs.New(errs.ErrorTypeSelectorMiss, fmt.Sprintf("%s not in %s", t.cfg.RegionSelector, url))
		}

		t.doc.SetLocation(url)
		t.doc.ReplaceChildren(region, takeChildren(incoming.Get(0))...)
		t.log.DebugWithFields("Swapped page region", map[string]interface{}{"url": url})
		return nil
	})
}

// takeChildren unlinks the children of a node from a parsed page that is
// about to be discarded
func takeChildren(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		out = append(out, c)
		c = next
	}
	return out
}
