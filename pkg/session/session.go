package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"artgrab/internal/artwork"
	"artgrab/internal/downloader"
	"artgrab/internal/host"
	"artgrab/internal/loop"
	"artgrab/internal/nav"
	"artgrab/internal/patch"
	"artgrab/internal/scope"
	"artgrab/pkg/checkpoint"
	"artgrab/pkg/config"
	errs "artgrab/pkg/errors"
	"artgrab/pkg/logger"
	"artgrab/pkg/metadata"
	"artgrab/pkg/ratelimit"
	"artgrab/pkg/retry"
	"artgrab/pkg/settings"
	"artgrab/pkg/storage"
	"artgrab/pkg/ui"

	"golang.org/x/net/html"
)

// ErrAlreadyRun is returned by a second call to Run
var ErrAlreadyRun = errors.New("session already run")

// Options wire a session. Only Config is required.
type Options struct {
	Config *config.Config
	// Settings defaults to an in-memory store
	Settings settings.Store
	// Cookie is sent with page and image requests, e.g. "PHPSESSID=..."
	Cookie string
	// UserAgent overrides Config.Site.UserAgent when set
	UserAgent string
	Prompter  downloader.Prompter
	View      ui.SessionView
	Notifier  *ui.Notifier
	Logger    logger.Logger

	// CheckpointDir overrides the per-user checkpoint directory
	CheckpointDir string

	// Pages and Images replace the HTTP transports
	Pages  host.Fetcher
	Images downloader.Fetcher
}

// Selection says what to download from each artwork
type Selection struct {
	// Bulk downloads every part; otherwise only Part (0-based)
	Bulk bool
	Part int
}

// Session is a one-shot page session
type Session struct {
	cfg      *config.Config
	opts     Options
	log      logger.Logger
	view     ui.SessionView
	settings settings.Store

	pages   host.Fetcher
	pool    *downloader.WorkerPool
	store   *storage.Manager
	detail  *regexp.Regexp
	marker  *regexp.Regexp
	tracker *tracker

	journal *checkpoint.Manager
	cp      *checkpoint.Checkpoint

	used bool
}

// New builds a session from opts
func New(opts Options) (*Session, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("session: config is required")
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	log = log.WithField("component", "session")

	detail, err := cfg.DetailMatcher()
	if err != nil {
		return nil, fmt.Errorf("invalid detail pattern: %w", err)
	}

	userAgent := cfg.Site.UserAgent
	if opts.UserAgent != "" {
		userAgent = opts.UserAgent
	}

	store, err := storage.NewManager(cfg.Output.BaseDirectory, cfg.Output.OverwriteExisting)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare output directory: %w", err)
	}

	images := opts.Images
	if images == nil {
		images = downloader.NewClient(downloader.ClientOptions{
			UserAgent:   userAgent,
			Referer:     cfg.Site.Referer,
			Cookie:      opts.Cookie,
			Timeout:     cfg.Download.DownloadTimeout,
			MaxFileSize: cfg.Download.MaxFileSize,
		}, log)
	}
	pages := opts.Pages
	if pages == nil {
		pages = host.NewHTTPFetcher(userAgent, opts.Cookie, cfg.Download.DownloadTimeout, log)
	}

	limiter := ratelimit.NewTokenBucket(cfg.RateLimit.BurstSize, cfg.RateLimit.RequestsPerMinute)
	pool := downloader.NewWorkerPool(cfg.Download.ConcurrentDownloads, images, store, limiter, log)
	pool.SetDefaultTimeout(cfg.Download.DownloadTimeout)
	attempts := cfg.Download.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	pool.SetRetry(&retry.Config{
		MaxAttempts: attempts,
		Backoff:     retry.DefaultExponentialBackoff(),
		ByType:      retry.NewErrorTypeBackoff(cfg.RateLimit.RetryDelay, cfg.RateLimit.BackoffMultiplier),
		RetryIf:     retry.DefaultRetryIf,
		Logger:      log,
	})
	pool.SetSkipper(store)
	if opts.Prompter != nil {
		pool.SetPrompter(opts.Prompter)
	}
	if cfg.Output.WriteMetadata {
		pool.SetMetadataWriter(metadata.NewWriter())
	}

	s := &Session{
		cfg:      cfg,
		opts:     opts,
		log:      log,
		view:     opts.View,
		settings: opts.Settings,
		pages:    pages,
		pool:     pool,
		store:    store,
		detail:   detail,
		tracker:  newTracker(),
	}
	if s.view == nil {
		s.view = nopView{}
	}
	if s.settings == nil {
		s.settings = settings.NewMemoryStore()
	}
	if cfg.Site.EmbeddedMarker != "" {
		s.marker = regexp.MustCompile(regexp.QuoteMeta(cfg.Site.EmbeddedMarker))
	}

	if cfg.Session.Resume {
		journal, err := checkpoint.NewManager(opts.CheckpointDir, cfg.Session.Checkpoint, log)
		if err != nil {
			return nil, err
		}
		cp, err := journal.LoadOrCreate(cfg.Session.Checkpoint)
		if err != nil {
			return nil, err
		}
		s.journal, s.cp = journal, cp
	}

	return s, nil
}

// Run visits every URL in order and downloads the selected parts. A failure
// on one URL is reported and the session moves on; the returned error joins
// all of them. Run may be called once.
func (s *Session) Run(ctx context.Context, urls []string, sel Selection) (ui.Summary, error) {
	if s.used {
		return ui.Summary{}, ErrAlreadyRun
	}
	s.used = true
	start := time.Now()

	l := loop.New(s.log)
	loopCtx, stopLoop := context.WithCancel(context.Background())
	go l.Run(loopCtx)
	defer stopLoop()

	s.pool.Start()
	defer s.pool.Stop()

	root := scope.New("session")
	defer func() {
		cleanup, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = l.Call(cleanup, func() error {
			root.Cancel()
			return nil
		})
	}()

	logger.LogComponentStart(s.log, "session", map[string]interface{}{
		"urls": len(urls),
		"bulk": sel.Bulk,
		"part": sel.Part,
	})

	var (
		tab    *host.Tab
		failed []error
	)
	for _, url := range urls {
		if err := ctx.Err(); err != nil {
			failed = append(failed, err)
			break
		}

		id := artwork.ArtworkIDFromURL(url)
		if s.cp != nil && id != "" && s.cp.IsArtworkComplete(id) {
			s.view.Info("Skipping %s, already downloaded", id)
			continue
		}

		var err error
		if tab == nil {
			tab, err = s.open(ctx, l, root, url)
		} else {
			s.tracker.reset(id)
			err = tab.Navigate(ctx, url)
		}
		if err == nil {
			err = s.grab(ctx, l, root, tab, id, sel)
		}
		if err != nil {
			s.log.WithError(err).ErrorWithFields("Artwork failed", map[string]interface{}{"url": url})
			s.view.Error("%s: %v", url, err)
			failed = append(failed, fmt.Errorf("%s: %w", url, err))
		}
	}

	idle, cancel := context.WithTimeout(context.Background(), s.cfg.Download.DownloadTimeout)
	_ = s.pool.WaitIdle(idle)
	cancel()

	summary := s.summarize(time.Since(start))
	s.view.Finished(summary)
	if s.opts.Notifier != nil {
		s.opts.Notifier.SessionFinished(summary)
	}
	logger.LogComponentStop(s.log, "session", summary.String())

	return summary, errors.Join(failed...)
}

// open loads the first page and attaches the classifier and the patch
func (s *Session) open(ctx context.Context, l *loop.Loop, root *scope.Scope, url string) (*host.Tab, error) {
	sel := s.cfg.Site.Selectors
	tab, err := host.Open(ctx, s.pages, l, url, host.Config{
		RegionSelector: sel.Region,
		PanelSelector:  sel.Panel,
		IsDetail:       s.detail.MatchString,
	}, s.log)
	if err != nil {
		return nil, err
	}
	doc := tab.Document()

	anchorName := settings.GetOr(s.settings, settings.KeyAnchor, s.cfg.Session.Anchor)
	anchor, err := artwork.AnchorFor(anchorName)
	if err != nil {
		s.log.WithError(err).Warn("Falling back to the default toolbar anchor")
		anchor, _ = artwork.AnchorFor("")
	}

	ready := make(chan error, 1)
	err = l.Call(ctx, func() error {
		bus := nav.NewBus(s.log)
		for _, kind := range nav.Kinds() {
			bus.SubscribeScoped(kind, func(e nav.Event) {
				s.view.Navigated(e.Kind.String(), e.Location)
			}, root)
		}

		page := &patch.Page{
			Doc:        doc,
			Bus:        bus,
			Sched:      l,
			Scope:      root,
			Settings:   s.settings,
			Downloader: s.pool,
			Log:        s.log,
			Source:     tab.Source,
		}
		registry := patch.NewRegistry(page)
		if err := registry.Register(artwork.New(artwork.Options{
			Selectors:      sel,
			Anchor:         anchor,
			Template:       s.cfg.Output.FilenameTemplate,
			SaveAs:         s.cfg.Output.SaveAs,
			HighResolution: s.cfg.Download.HighResolution,
			Referer:        s.cfg.Site.Referer,
			Timeout:        s.cfg.Download.DownloadTimeout,
			WaitTimeout:    s.cfg.Session.WaitTimeout,
			Marker:         s.marker,
			Terminator:     s.cfg.Site.EmbeddedTerminator,
			OnParts: func(parts []artwork.Part) {
				s.tracker.setParts(artwork.ArtworkIDFromURL(doc.Location()), len(parts))
			},
			OnStatus: func(st artwork.Status) {
				s.tracker.setStatus(st)
				s.view.ArtworkChanged(artworkView(st))
			},
		})); err != nil {
			return err
		}

		classifier := nav.NewClassifier(doc, bus, nav.ClassifierConfig{
			RegionSelector: sel.Region,
			PanelSelector:  sel.Panel,
			IsDetail:       s.detail.MatchString,
			WaitTimeout:    s.cfg.Session.WaitTimeout,
		}, s.log)
		classifier.Start(root, func(err error) { ready <- err })
		return nil
	})
	if err != nil {
		return nil, err
	}

	select {
	case err := <-ready:
		if err != nil {
			return nil, err
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return tab, nil
}

// grab operates the toolbar of the current artwork and waits for the batch
func (s *Session) grab(ctx context.Context, l *loop.Loop, root *scope.Scope, tab *host.Tab, id string, sel Selection) error {
	if id == "" {
		return errs.New(errs.ErrorTypeNavigationRace, "not an artwork page")
	}
	doc := tab.Document()
	t := s.tracker

	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.Session.WaitTimeout)
	err := t.wait(waitCtx, func() bool { return t.parts[id] > 0 })
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errs.New(errs.ErrorTypeSelectorMiss, "no artwork parts found")
	}
	count := t.partCount(id)
	if !sel.Bulk && (sel.Part < 0 || sel.Part >= count) {
		return fmt.Errorf("part %d out of range, artwork %s has %d parts", sel.Part, id, count)
	}

	found := make(chan error, 1)
	if err := l.Call(ctx, func() error {
		doc.WaitFor("."+artwork.ButtonClass, nil, root, s.cfg.Session.WaitTimeout, func(_ *html.Node, err error) {
			found <- err
		})
		return nil
	}); err != nil {
		return err
	}
	select {
	case err := <-found:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	err = l.Call(ctx, func() error {
		button := doc.Query("."+artwork.ButtonClass, nil)
		if button == nil {
			return errs.New(errs.ErrorTypeSelectorMiss, "download toolbar disappeared")
		}
		if sel.Bulk {
			if bulk := doc.Query("."+artwork.BulkClass, nil); bulk != nil {
				if _, checked := doc.Attr(bulk, "checked"); !checked {
					doc.Toggle(bulk)
				}
			}
		} else if parts := doc.Query("."+artwork.PartsClass, nil); parts != nil {
			doc.Select(parts, sel.Part)
		}
		doc.Click(button)
		return nil
	})
	if err != nil {
		return err
	}
	s.view.Info("Downloading %s", id)

	if err := t.wait(ctx, func() bool {
		st, ok := t.statuses[id]
		return ok && st.Total() > 0 && st.Done()
	}); err != nil {
		return err
	}

	st, _ := t.status(id)
	s.record(st, count)
	if st.Failed() || st.TimedOut() {
		return errs.New(errs.ErrorTypeDownload, st.String())
	}
	return nil
}

func (s *Session) record(st artwork.Status, partCount int) {
	if s.journal == nil {
		return
	}
	for _, p := range st.Parts {
		if p.State != artwork.PartDone {
			continue
		}
		if err := s.journal.RecordPart(s.cp, st.ArtworkID, p.Index, partCount, p.Path); err != nil {
			s.log.WithError(err).Warn("Failed to update checkpoint")
			return
		}
	}
}

func (s *Session) summarize(elapsed time.Duration) ui.Summary {
	stats := s.pool.Stats()
	sum := ui.Summary{
		Elapsed: elapsed,
		Bytes:   stats.Bytes,
		Saved:   s.store.SavedCount(),
		Skipped: int(stats.Skipped),
	}
	for _, st := range s.tracker.all() {
		sum.Artworks++
		for _, p := range st.Parts {
			sum.Parts++
			switch p.State {
			case artwork.PartDone:
				sum.Completed++
			case artwork.PartFailed:
				sum.Failed++
			case artwork.PartTimedOut:
				sum.TimedOut++
			}
		}
	}
	return sum
}

// OutputDir returns where files are saved
func (s *Session) OutputDir() string { return s.store.OutputDir() }

func artworkView(st artwork.Status) ui.ArtworkView {
	v := ui.ArtworkView{ID: st.ArtworkID, Title: st.Title, Status: st.String(), Parts: make([]ui.PartView, len(st.Parts))}
	for i, p := range st.Parts {
		pv := ui.PartView{Index: p.Index, Name: p.Name, State: p.State.String(), Loaded: p.Loaded, Total: p.Total}
		if p.Err != nil {
			pv.Err = p.Err.Error()
		}
		v.Parts[i] = pv
	}
	return v
}

type nopView struct{}

func (nopView) Navigated(string, string)      {}
func (nopView) ArtworkChanged(ui.ArtworkView) {}
func (nopView) Info(string, ...interface{})   {}
func (nopView) Warn(string, ...interface{})   {}
func (nopView) Error(string, ...interface{})  {}
func (nopView) Finished(ui.Summary)           {}
