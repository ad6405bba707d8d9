package nav

import (
	"regexp"
	"time"

	"artgrab/internal/dom"
	"artgrab/internal/scope"
	"artgrab/pkg/logger"

	"golang.org/x/net/html"
)

// Matcher reports whether a location is a detail page
type Matcher func(location string) bool

// RegexpMatcher matches locations against re
func RegexpMatcher(re *regexp.Regexp) Matcher {
	return re.MatchString
}

// ClassifierConfig names the containers the classifier watches
type ClassifierConfig struct {
	// RegionSelector finds the element whose direct children are the page
	RegionSelector string
	// PanelSelector finds the item panel of a detail page
	PanelSelector string
	IsDetail      Matcher
	// WaitTimeout bounds how long the region and panel are waited for
	WaitTimeout time.Duration
}

// Classifier derives navigation events from mutation batches. It runs one
// classification pass per batch, never per record.
type Classifier struct {
	doc *dom.Document
	bus *Bus
	cfg ClassifierConfig
	log logger.Logger

	root   *scope.Scope
	region *html.Node
	detail *scope.Scope
	panel  *html.Node
	ready  func(error)
}

// NewClassifier creates a classifier publishing to bus
func NewClassifier(doc *dom.Document, bus *Bus, cfg ClassifierConfig, log logger.Logger) *Classifier {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 10 * time.Second
	}
	return &Classifier{doc: doc, bus: bus, cfg: cfg, log: log.WithField("component", "classifier")}
}

// Start waits for the page region and begins observing it. If the current
// location is already a detail page, ItemNavigateStart and ItemNavigate are
// emitted without a WholeNavigate. ready, if non-nil, is called once the
// region is found or the wait fails. Everything stops when sc is cancelled.
func (c *Classifier) Start(sc *scope.Scope, ready func(error)) {
	c.root = sc
	c.ready = ready
	c.doc.WaitFor(c.cfg.RegionSelector, nil, sc, c.cfg.WaitTimeout, c.attach)
}

func (c *Classifier) attach(region *html.Node, err error) {
	if err != nil {
		c.log.WithError(err).Warn("Page region not found")
		c.signal(err)
		return
	}

	c.region = region
	c.doc.Observe(region, dom.ObserveOptions{ChildList: true}, c.onRegion, c.root)
	c.log.Debug("Observing page region")

	if c.cfg.IsDetail(c.doc.Location()) {
		c.enterDetail()
	}
	c.signal(nil)
}

func (c *Classifier) signal(err error) {
	if c.ready != nil {
		ready := c.ready
		c.ready = nil
		ready(err)
	}
}

func (c *Classifier) onRegion([]dom.MutationRecord) {
	loc := c.doc.Location()
	c.publish(WholeNavigate, loc)

	if c.detail != nil {
		c.publish(ItemNavigateEnd, loc)
		c.detail.Cancel()
		c.detail = nil
		c.panel = nil
	}

	if c.cfg.IsDetail(loc) {
		c.enterDetail()
	}
}

func (c *Classifier) enterDetail() {
	c.detail = c.root.Child("detail")
	loc := c.doc.Location()
	c.publish(ItemNavigateStart, loc)
	c.publish(ItemNavigate, loc)

	detail := c.detail
	c.doc.WaitFor(c.cfg.PanelSelector, nil, detail, c.cfg.WaitTimeout, func(panel *html.Node, err error) {
		if err != nil {
			c.log.WithError(err).Debug("Item panel not found")
			return
		}
		c.panel = panel
		c.doc.Observe(panel, dom.ObserveOptions{ChildList: true}, func([]dom.MutationRecord) {
			c.publish(ItemNavigate, c.doc.Location())
		}, detail)
	})
}

func (c *Classifier) publish(kind Kind, loc string) {
	logger.LogNavigation(c.log, kind.String(), loc)
	c.bus.Publish(kind, loc)
}

// InDetail reports whether a detail page is current
func (c *Classifier) InDetail() bool {
	return c.detail != nil && c.detail.Active()
}

// Region returns the observed page region, nil before Start completes
func (c *Classifier) Region() *html.Node { return c.region }

// Panel returns the observed item panel, nil when none is current
func (c *Classifier) Panel() *html.Node { return c.panel }
