// Package patch defines units of page behaviour and the registry that
// attaches them to one page instance.
package patch

import (
	"fmt"
	"sync"

	"artgrab/internal/dom"
	"artgrab/internal/downloader"
	"artgrab/internal/nav"
	"artgrab/internal/scope"
	"artgrab/pkg/logger"
	"artgrab/pkg/settings"
)

// Page is the per-page-instance state handed to every patch. Nothing a patch
// needs is reachable through globals.
type Page struct {
	Doc        *dom.Document
	Bus        *nav.Bus
	Sched      dom.Scheduler
	Scope      *scope.Scope
	Settings   settings.Store
	Downloader downloader.Capability
	Log        logger.Logger

	// Source, if set, returns the markup of the current page
	Source func() string
}

// Patch is a unit of UI behaviour. Attach subscribes it to the page's bus;
// everything it creates afterwards must hang off scopes derived from
// Page.Scope.
type Patch interface {
	Name() string
	Attach(p *Page) error
}

// Registry holds the patches attached to one page
type Registry struct {
	page *Page

	mu      sync.Mutex
	patches []Patch
	names   map[string]bool
}

// NewRegistry creates a registry for page
func NewRegistry(page *Page) *Registry {
	if page.Log == nil {
		page.Log = logger.NewNopLogger()
	}
	return &Registry{page: page, names: make(map[string]bool)}
}

// Register attaches p and keeps it for the page's lifetime. A patch name can
// only be registered once.
func (r *Registry) Register(p Patch) error {
	r.mu.Lock()
	if r.names[p.Name()] {
		r.mu.Unlock()
		return fmt.Errorf("patch %q already registered", p.Name())
	}
	r.names[p.Name()] = true
	r.mu.Unlock()

	if err := p.Attach(r.page); err != nil {
		r.mu.Lock()
		delete(r.names, p.Name())
		r.mu.Unlock()
		r.page.Log.WithError(err).ErrorWithFields("Patch failed to attach", map[string]interface{}{"patch": p.Name()})
		return fmt.Errorf("attach %s: %w", p.Name(), err)
	}

	r.mu.Lock()
	r.patches = append(r.patches, p)
	r.mu.Unlock()

	r.page.Log.DebugWithFields("Patch attached", map[string]interface{}{"patch": p.Name()})
	return nil
}

// Patches returns the attached patches in registration order
func (r *Registry) Patches() []Patch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Patch(nil), r.patches...)
}

// Page returns the page the registry attaches to
func (r *Registry) Page() *Page { return r.page }
