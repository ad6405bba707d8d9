package artwork

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"artgrab/internal/dom"
	"artgrab/internal/downloader"
	"artgrab/internal/loop"
	"artgrab/internal/nav"
	"artgrab/internal/patch"
	"artgrab/internal/scope"
	"artgrab/pkg/config"
	"artgrab/pkg/metadata"
	"artgrab/pkg/settings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

const imgBase = "https://i.pximg.net/img-master/img/2024/01/02/03/04/05/42"

func detailRegion(parts int) string {
	var figure strings.Builder
	for i := 0; i < parts; i++ {
		fmt.Fprintf(&figure, `<div role="presentation"><a href="#"><img src="%s_p%d_master1200.jpg"></a></div>`, imgBase, i)
	}
	return `<main><figure>` + figure.String() + `</figure>` +
		`<figcaption><h1>Sunset</h1><footer>tags</footer></figcaption>` +
		`<a data-gtm-value="7" href="/users/7">someone</a>` +
		`<span title="Posting date">January 2, 2024</span>` +
		`<dl><dd title="Like">10</dd><dd title="Bookmarks">4</dd><dd title="Views">99</dd></dl>` +
		`</main>`
}

const listRegion = `<section><a href="/artworks/42">one</a></section>`

type fakeDownloader struct {
	reqs []downloader.Request
	ctxs []context.Context
}

func (f *fakeDownloader) Download(ctx context.Context, req downloader.Request) {
	f.reqs = append(f.reqs, req)
	f.ctxs = append(f.ctxs, ctx)
}

type harness struct {
	t        *testing.T
	loop     *loop.Loop
	doc      *dom.Document
	cls      *nav.Classifier
	root     *scope.Scope
	dl       *fakeDownloader
	store    *settings.MemoryStore
	statuses []Status
	parts    [][]Part
	source   string
}

func newHarness(t *testing.T, location, region string, mutate func(*Options)) *harness {
	t.Helper()
	l := loop.New(nil)
	doc, err := dom.ParseString(`<html><body><div class="charcoal-token"><div>`+region+`</div></div></body></html>`, location, l)
	require.NoError(t, err)

	h := &harness{t: t, loop: l, doc: doc, root: scope.New("session"), dl: &fakeDownloader{}, store: settings.NewMemoryStore()}
	bus := nav.NewBus(nil)
	sel := config.DefaultConfig().Site.Selectors

	opts := Options{
		Selectors:      sel,
		Referer:        "https://www.pixiv.net/",
		HighResolution: true,
		WaitTimeout:    time.Second,
		OnStatus:       func(s Status) { h.statuses = append(h.statuses, s) },
		OnParts:        func(p []Part) { h.parts = append(h.parts, p) },
	}
	if mutate != nil {
		mutate(&opts)
	}

	page := &patch.Page{
		Doc:        doc,
		Bus:        bus,
		Sched:      l,
		Scope:      h.root,
		Settings:   h.store,
		Downloader: h.dl,
		Source:     func() string { return h.source },
	}
	require.NoError(t, patch.NewRegistry(page).Register(New(opts)))

	h.cls = nav.NewClassifier(doc, bus, nav.ClassifierConfig{
		RegionSelector: sel.Region,
		PanelSelector:  sel.Panel,
		IsDetail:       nav.RegexpMatcher(regexp.MustCompile(`/artworks/\d+`)),
		WaitTimeout:    time.Second,
	}, nil)
	h.cls.Start(h.root, nil)
	l.RunPending()
	return h
}

func (h *harness) run(fn func()) {
	h.loop.Post(fn)
	h.loop.RunPending()
}

func (h *harness) navigate(location, region string) {
	h.run(func() {
		h.doc.SetLocation(location)
		nodes, err := h.doc.ParseFragment(region, h.cls.Region())
		require.NoError(h.t, err)
		h.doc.ReplaceChildren(h.cls.Region(), nodes...)
	})
}

func (h *harness) rerenderPanel(location, region string) {
	h.run(func() {
		h.doc.SetLocation(location)
		panel := h.cls.Panel()
		require.NotNil(h.t, panel)
		nodes, err := h.doc.ParseFragment(region, panel)
		require.NoError(h.t, err)
		// the fragment's own <main> wrapper is dropped; its children become the panel's
		var inner []*html.Node
		for _, n := range nodes {
			if n.Data == "main" {
				for c := n.FirstChild; c != nil; {
					next := c.NextSibling
					n.RemoveChild(c)
					inner = append(inner, c)
					c = next
				}
				continue
			}
			inner = append(inner, n)
		}
		h.doc.ReplaceChildren(panel, inner...)
	})
}

func (h *harness) query(selector string) *html.Node {
	return h.doc.Query(selector, nil)
}

func (h *harness) toolbars() int {
	nodes, err := h.doc.QueryAll("."+ToolbarClass, nil)
	require.NoError(h.t, err)
	return len(nodes)
}

func (h *harness) statusText() string {
	return h.doc.Text(h.query("." + StatusClass))
}

func (h *harness) click() {
	h.doc.Click(h.query("." + ButtonClass))
	h.loop.RunPending()
}

func countNodes(n *html.Node) int {
	total := 1
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		total += countNodes(c)
	}
	return total
}

func TestToolbarInsertedOnceBeforeTitle(t *testing.T) {
	h := newHarness(t, "https://www.pixiv.net/artworks/42", detailRegion(3), nil)

	require.Equal(t, 1, h.toolbars())
	bar := h.query("." + ToolbarClass)
	title := h.query("figcaption h1")
	assert.Equal(t, title, bar.NextSibling)

	opts, err := h.doc.QueryAll("."+PartsClass+" option", nil)
	require.NoError(t, err)
	assert.Len(t, opts, 3)
	assert.Equal(t, "1 / 3", h.doc.Text(opts[0]))
}

func TestAnchorVariants(t *testing.T) {
	for _, name := range []string{config.AnchorAfterTitle, config.AnchorPanel} {
		t.Run(name, func(t *testing.T) {
			anchor, err := AnchorFor(name)
			require.NoError(t, err)
			h := newHarness(t, "https://www.pixiv.net/artworks/42", detailRegion(1), func(o *Options) { o.Anchor = anchor })

			bar := h.query("." + ToolbarClass)
			require.NotNil(t, bar)
			switch name {
			case config.AnchorAfterTitle:
				assert.Equal(t, h.query("figcaption h1"), bar.PrevSibling)
			case config.AnchorPanel:
				assert.Equal(t, h.query("figcaption"), bar.Parent)
				assert.Nil(t, bar.NextSibling)
			}
		})
	}

	_, err := AnchorFor("sideways")
	assert.Error(t, err)
}

func TestToolbarRemovedWhenLeavingDetail(t *testing.T) {
	h := newHarness(t, "https://www.pixiv.net/artworks/42", detailRegion(2), nil)
	require.Equal(t, 1, h.toolbars())

	h.navigate("https://www.pixiv.net/", listRegion)
	assert.Equal(t, 0, h.toolbars())
	assert.Equal(t, 1, h.doc.ObserverCount())

	h.navigate("https://www.pixiv.net/artworks/42", detailRegion(2))
	assert.Equal(t, 1, h.toolbars())
}

func TestDetailToDetailKeepsOneToolbar(t *testing.T) {
	h := newHarness(t, "https://www.pixiv.net/artworks/42", detailRegion(2), nil)

	h.navigate("https://www.pixiv.net/artworks/43", detailRegion(4))
	assert.Equal(t, 1, h.toolbars())

	opts, _ := h.doc.QueryAll("."+PartsClass+" option", nil)
	assert.Len(t, opts, 4)
}

func TestPartsRebuildIsIdempotent(t *testing.T) {
	h := newHarness(t, "https://www.pixiv.net/artworks/42", detailRegion(3), nil)
	require.NotEmpty(t, h.parts)

	before := countNodes(h.doc.Root())
	first := h.parts[len(h.parts)-1]

	for i := 0; i < 2; i++ {
		h.rerenderPanel("https://www.pixiv.net/artworks/42", detailRegion(3))
	}

	require.Len(t, h.parts, 3)
	assert.Equal(t, first, h.parts[1])
	assert.Equal(t, first, h.parts[2])
	assert.Equal(t, before, countNodes(h.doc.Root()))
	assert.Equal(t, 1, h.toolbars())
}

func TestItemNavigateResetsBulk(t *testing.T) {
	h := newHarness(t, "https://www.pixiv.net/artworks/42", detailRegion(3), nil)

	box := h.query("." + BulkClass)
	h.doc.Toggle(box)
	h.loop.RunPending()
	_, checked := h.doc.Attr(box, "checked")
	require.True(t, checked)

	h.rerenderPanel("https://www.pixiv.net/artworks/44", detailRegion(2))

	_, checked = h.doc.Attr(h.query("."+BulkClass), "checked")
	assert.False(t, checked)

	h.click()
	assert.Len(t, h.dl.reqs, 1)
}

func TestSingleDownloadUsesSelectedPart(t *testing.T) {
	h := newHarness(t, "https://www.pixiv.net/artworks/42", detailRegion(3), nil)
	require.NoError(t, h.store.Set(settings.KeyFilenameTemplate, "%artworkId%-%artworkPart%.%imageFileExtension%"))

	h.doc.Select(h.query("."+PartsClass), 1)
	h.loop.RunPending()
	h.click()

	require.Len(t, h.dl.reqs, 1)
	req := h.dl.reqs[0]
	assert.Equal(t, "42-1.jpg", req.Name)
	assert.Equal(t, "https://i.pximg.net/img-original/img/2024/01/02/03/04/05/42_p1.jpg", req.URL)
	assert.Equal(t, "https://www.pixiv.net/", req.Headers["Referer"])
	assert.False(t, req.SaveAs)
	assert.Equal(t, "Downloading 0/1", h.statusText())

	req.OnLoad(downloader.Result{Path: "/out/42-1.jpg"})
	h.loop.RunPending()
	assert.Equal(t, "Downloaded 1/1", h.statusText())
}

func TestDefaultTemplateAndMetadata(t *testing.T) {
	h := newHarness(t, "https://www.pixiv.net/en/artworks/42", detailRegion(1), nil)
	require.NoError(t, h.store.Set(settings.KeySaveAs, "true"))
	h.click()

	require.Len(t, h.dl.reqs, 1)
	req := h.dl.reqs[0]
	assert.Equal(t, "Sunset by someone [42] p0.jpg", req.Name)
	assert.True(t, req.SaveAs)

	meta, ok := req.Metadata.(*metadata.ArtworkMetadata)
	require.True(t, ok)
	assert.Equal(t, "en", meta.Lang)
	assert.Equal(t, "someone", meta.Author.Name)
	assert.Equal(t, 1, meta.PartCount)
}

func TestBulkDownloadIsolatesFailures(t *testing.T) {
	const n, failing = 4, 2 // failing is 1-indexed
	h := newHarness(t, "https://www.pixiv.net/artworks/42", detailRegion(n), nil)

	h.doc.Toggle(h.query("." + BulkClass))
	h.loop.RunPending()
	h.click()

	require.Len(t, h.dl.reqs, n)
	for i, req := range h.dl.reqs {
		assert.Contains(t, req.URL, fmt.Sprintf("42_p%d.jpg", i))
	}

	h.dl.reqs[failing-1].OnError(errors.New("connection reset"))
	for i, req := range h.dl.reqs {
		if i != failing-1 {
			req.OnLoad(downloader.Result{Path: req.Name})
		}
	}
	h.loop.RunPending()

	for _, ctx := range h.dl.ctxs {
		assert.NoError(t, ctx.Err())
	}

	last := h.statuses[len(h.statuses)-1]
	assert.Equal(t, "Sunset", last.Title)
	assert.True(t, last.Done())
	assert.Equal(t, n-1, last.Completed())
	assert.Equal(t, n, last.Total())
	assert.True(t, last.Failed())
	assert.Equal(t, PartFailed, last.Parts[failing-1].State)
	assert.Equal(t, fmt.Sprintf("Downloaded %d/%d (error)", n-1, n), h.statusText())
}

func TestTimeoutFlag(t *testing.T) {
	h := newHarness(t, "https://www.pixiv.net/artworks/42", detailRegion(2), nil)
	h.doc.Toggle(h.query("." + BulkClass))
	h.loop.RunPending()
	h.click()

	require.Len(t, h.dl.reqs, 2)
	h.dl.reqs[0].OnTimeout()
	h.dl.reqs[1].OnLoad(downloader.Result{})
	h.loop.RunPending()

	assert.Equal(t, "Downloaded 1/2 (timeout)", h.statusText())
}

func TestStaleContinuationsAreDropped(t *testing.T) {
	h := newHarness(t, "https://www.pixiv.net/artworks/42", detailRegion(2), nil)
	h.click()
	require.Len(t, h.dl.reqs, 1)
	statuses := len(h.statuses)

	h.navigate("https://www.pixiv.net/", listRegion)
	assert.ErrorIs(t, h.dl.ctxs[0].Err(), context.Canceled)

	h.dl.reqs[0].OnLoad(downloader.Result{Path: "late"})
	require.NotPanics(t, func() { h.loop.RunPending() })
	assert.Len(t, h.statuses, statuses)
	assert.Equal(t, 0, h.toolbars())
}

func TestPreloadFillsMissingParts(t *testing.T) {
	h := newHarness(t, "https://www.pixiv.net/artworks/42", listRegion, func(o *Options) {
		o.Marker = regexp.MustCompile(`id="meta-preload-data" content='`)
		o.Terminator = `'>`
	})
	h.source = `<meta id="meta-preload-data" content='{"illust":{"42":{"illustId":"42","illustTitle":"Sunset","pageCount":3,"likeCount":10}}}'>`

	h.navigate("https://www.pixiv.net/artworks/42", detailRegion(1))

	require.NotEmpty(t, h.parts)
	got := h.parts[len(h.parts)-1]
	require.Len(t, got, 3)
	assert.Contains(t, got[2].URL, "42_p2_master1200.jpg")
}

func TestFormatDataReadsPage(t *testing.T) {
	h := newHarness(t, "https://www.pixiv.net/artworks/42", detailRegion(2), nil)
	d := readFormatData(h.doc, config.DefaultConfig().Site.Selectors, nil, 2)

	assert.Equal(t, "42", d.ArtworkID)
	assert.Equal(t, "Sunset", d.Title)
	assert.Equal(t, "someone", d.AuthorName)
	assert.Equal(t, "7", d.AuthorID)
	assert.Equal(t, "January 2, 2024", d.CreationDate)
	assert.Equal(t, "10", d.Likes)
	assert.Equal(t, "4", d.Bookmarks)
	assert.Equal(t, "99", d.Views)

	fields := d.Fields(1, imgBase+"_p1.png")
	assert.Equal(t, "png", fields["imageFileExtension"])
	assert.Equal(t, "2", fields["artworkPartCount"])
	assert.Equal(t, "2024-01-02_03-04-05", fields["imageDateFromUrlPath"])
}

func TestStatusString(t *testing.T) {
	s := Status{Parts: []PartStatus{{State: PartDone}, {State: PartPending}, {State: PartFailed}}}
	assert.Equal(t, "Downloading 1/3 (error)", s.String())
	assert.False(t, s.Done())

	s.Parts[1].State = PartTimedOut
	assert.Equal(t, "Downloaded 1/3 (error, timeout)", s.String())
	assert.Equal(t, "timeout", PartTimedOut.String())
}
