// Package artwork implements the artwork download toolbar: a patch that puts
// a download button, part selector, bulk toggle and status line on every
// artwork detail page and keeps them in step with navigation.
package artwork

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"artgrab/internal/dom"
	"artgrab/internal/downloader"
	"artgrab/internal/filename"
	"artgrab/internal/nav"
	"artgrab/internal/pagedata"
	"artgrab/internal/patch"
	"artgrab/internal/scope"
	"artgrab/pkg/config"
	"artgrab/pkg/logger"
	"artgrab/pkg/settings"

	"golang.org/x/net/html"
)

// Name is the registry name of the patch
const Name = "artwork-download"

// Options configure the patch
type Options struct {
	Selectors config.SelectorConfig
	Anchor    Anchor
	// Template is used when the settings store has no filename template
	Template       string
	SaveAs         bool
	HighResolution bool
	Referer        string
	Timeout        time.Duration
	WaitTimeout    time.Duration

	// Marker and Terminator locate the preload JSON in the page source
	Marker     *regexp.Regexp
	Terminator string

	// OnStatus observes every status change, on the loop
	OnStatus func(Status)
	// OnParts observes every parts rebuild, on the loop
	OnParts func([]Part)
}

// itemState is what the patch knows about the current item. It is replaced
// wholesale on every ItemNavigate and dropped when the page scope ends.
type itemState struct {
	scope    *scope.Scope
	parts    []Part
	illust   *pagedata.Illust
	selected int
	bulk     bool
}

// Patch is the artwork download toolbar
type Patch struct {
	opts Options
	page *patch.Page
	log  logger.Logger

	pageScope *scope.Scope
	bar       *toolbar
	item      *itemState
}

// New creates the patch
func New(opts Options) *Patch {
	if opts.Anchor == nil {
		opts.Anchor = beforeTitle{}
	}
	if opts.Template == "" {
		opts.Template = config.DefaultFilenameTemplate
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = 10 * time.Second
	}
	return &Patch{opts: opts}
}

// Name implements patch.Patch
func (p *Patch) Name() string { return Name }

// Attach implements patch.Patch
func (p *Patch) Attach(page *patch.Page) error {
	p.page = page
	p.log = page.Log.WithFields(map[string]interface{}{"patch": Name, "anchor": p.opts.Anchor.Name()})

	page.Bus.SubscribeScoped(nav.ItemNavigateStart, p.onStart, page.Scope)
	page.Bus.SubscribeScoped(nav.ItemNavigate, p.onItem, page.Scope)
	page.Bus.SubscribeScoped(nav.ItemNavigateEnd, p.onEnd, page.Scope)
	page.Bus.SubscribeScoped(nav.WholeNavigate, p.onEnd, page.Scope)
	return nil
}

func (p *Patch) onStart(e nav.Event) {
	if p.pageScope != nil {
		p.pageScope.Cancel()
	}

	sc := p.page.Scope.Child("artwork-page")
	if !sc.Active() {
		return
	}
	bar := newToolbar(p.page.Doc)
	p.pageScope, p.bar = sc, bar

	doc := p.page.Doc
	sc.OnCancel(doc.AddEventListener(bar.button, "click", func(_ dom.Event) { p.download() }))
	sc.OnCancel(doc.AddEventListener(bar.parts, "change", func(_ dom.Event) {
		if p.item != nil {
			p.item.selected = doc.SelectedIndex(bar.parts)
		}
	}))
	sc.OnCancel(doc.AddEventListener(bar.bulk, "change", func(_ dom.Event) {
		if p.item != nil {
			p.item.bulk = bar.bulkChecked(doc)
		}
	}))
	sc.OnCancel(func() {
		if doc.Connected(bar.root) {
			doc.Remove(bar.root)
		}
		if p.pageScope == sc {
			p.pageScope, p.bar, p.item = nil, nil, nil
		}
	})

	p.log.DebugWithFields("Artwork page started", map[string]interface{}{"url": e.Location})
	p.ensureToolbar(sc, bar)
}

// ensureToolbar inserts the toolbar once the title exists. A panel re-render
// can take the toolbar with it, so this also runs on every ItemNavigate and
// is a no-op while the toolbar is attached.
func (p *Patch) ensureToolbar(sc *scope.Scope, bar *toolbar) {
	doc := p.page.Doc
	if doc.Connected(bar.root) {
		return
	}
	doc.WaitFor(p.opts.Selectors.Title, nil, sc, p.opts.WaitTimeout, func(title *html.Node, err error) {
		if err != nil {
			p.log.WithError(err).Warn("Artwork title not found, toolbar not shown")
			return
		}
		if doc.Connected(bar.root) {
			return
		}
		if err := p.opts.Anchor.Place(doc, title, bar.root); err != nil {
			p.log.WithError(err).Warn("Failed to place toolbar")
			return
		}
		p.log.Debug("Toolbar inserted")
	})
}

func (p *Patch) onItem(e nav.Event) {
	if p.pageScope == nil || !p.pageScope.Active() {
		return
	}
	if p.item != nil {
		p.item.scope.Cancel()
	}
	p.item = &itemState{scope: p.pageScope.Child("artwork-item")}

	p.ensureToolbar(p.pageScope, p.bar)
	p.refresh()

	if len(p.item.parts) == 0 && p.opts.Selectors.Parts != "" {
		item := p.item
		p.page.Doc.WaitFor(p.opts.Selectors.Parts, nil, item.scope, p.opts.WaitTimeout, func(_ *html.Node, err error) {
			if err != nil {
				p.log.WithError(err).Debug("No artwork parts found")
				return
			}
			if p.item == item {
				p.refresh()
			}
		})
	}
}

// refresh re-queries the parts, rebuilds the selector from scratch and
// resets bulk mode.
func (p *Patch) refresh() {
	doc := p.page.Doc
	item := p.item

	item.illust = p.preload(doc.Location())
	item.parts = queryParts(doc, p.opts.Selectors, item.illust)
	item.selected = 0
	item.bulk = false

	p.bar.setParts(doc, len(item.parts))
	doc.SetBoolAttr(p.bar.bulk, "checked", false)
	doc.SetText(p.bar.status, "")

	p.log.DebugWithFields("Artwork parts refreshed", map[string]interface{}{"parts": len(item.parts)})
	if p.opts.OnParts != nil {
		p.opts.OnParts(append([]Part(nil), item.parts...))
	}
}

func (p *Patch) preload(loc string) *pagedata.Illust {
	if p.page.Source == nil || p.opts.Marker == nil {
		return nil
	}
	id := ArtworkIDFromURL(loc)
	if id == "" {
		return nil
	}
	ill, err := pagedata.ReadIllust(p.pageScope.Context(), strings.NewReader(p.page.Source()), p.opts.Marker, p.opts.Terminator, id)
	if err != nil {
		p.log.WithError(err).Debug("Preload data unavailable")
		return nil
	}
	return ill
}

func (p *Patch) onEnd(e nav.Event) {
	if p.pageScope == nil {
		return
	}
	p.log.DebugWithFields("Artwork page ended", map[string]interface{}{"event": e.Kind.String()})
	p.pageScope.Cancel()
}

// download runs on a click. Format data is read synchronously here; every
// continuation afterwards re-checks the item scope before touching the page.
func (p *Patch) download() {
	item := p.item
	if item == nil || !item.scope.Active() || len(item.parts) == 0 {
		return
	}
	doc := p.page.Doc
	bar := p.bar
	sc := item.scope

	data := readFormatData(doc, p.opts.Selectors, item.illust, len(item.parts))
	template := settings.GetOr(p.page.Settings, settings.KeyFilenameTemplate, p.opts.Template)
	saveAs := settings.GetOr(p.page.Settings, settings.KeySaveAs, strconv.FormatBool(p.opts.SaveAs)) == "true"

	parts := item.parts
	if !item.bulk {
		idx := item.selected
		if idx < 0 || idx >= len(parts) {
			idx = 0
		}
		parts = parts[idx : idx+1]
	}

	status := Status{ArtworkID: data.ArtworkID, Title: data.Title, Parts: make([]PartStatus, len(parts))}
	notify := func() {
		if p.opts.OnStatus != nil {
			p.opts.OnStatus(status.clone())
		}
	}
	render := func() {
		doc.SetText(bar.status, status.String())
		notify()
	}

	for i, part := range parts {
		src := part.URL
		if p.opts.HighResolution {
			src = filename.HighResolution(src)
		}
		name := filename.Format(template, data.Fields(part.Index, src))
		status.Parts[i] = PartStatus{Index: part.Index, Name: name, Total: -1}

		req := downloader.Request{
			Name:     name,
			URL:      src,
			SaveAs:   saveAs,
			Timeout:  p.opts.Timeout,
			Metadata: data.Metadata(part.Index, src),
			OnProgress: func(pr downloader.Progress) {
				p.continueOn(sc, func() {
					status.Parts[i].Loaded, status.Parts[i].Total = pr.Loaded, pr.Total
					notify()
				})
			},
			OnLoad: func(res downloader.Result) {
				p.continueOn(sc, func() {
					status.Parts[i].State, status.Parts[i].Path = PartDone, res.Path
					logger.LogDownload(p.log, data.ArtworkID, part.Index, res.Path, nil)
					render()
				})
			},
			OnError: func(err error) {
				p.continueOn(sc, func() {
					status.Parts[i].State, status.Parts[i].Err = PartFailed, err
					logger.LogDownload(p.log, data.ArtworkID, part.Index, name, err)
					render()
				})
			},
			OnTimeout: func() {
				p.continueOn(sc, func() {
					status.Parts[i].State = PartTimedOut
					p.log.WarnWithFields("Download timed out", map[string]interface{}{"part": part.Index, "name": name})
					render()
				})
			},
		}
		if p.opts.Referer != "" {
			req.Headers = map[string]string{"Referer": p.opts.Referer}
		}
		p.page.Downloader.Download(sc.Context(), req)
	}
	render()
}

// continueOn hands fn back to the loop, dropping it if sc ended meanwhile
func (p *Patch) continueOn(sc *scope.Scope, fn func()) {
	p.page.Sched.Post(func() {
		if !sc.Active() {
			p.log.Debug("Dropping continuation for a finished item")
			return
		}
		fn()
	})
}
