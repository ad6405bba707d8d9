package session

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"artgrab/pkg/checkpoint"
	"artgrab/pkg/config"
	"artgrab/pkg/ui"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type artworkPage struct {
	title string
	parts int
}

type site struct {
	srv *httptest.Server

	mu     sync.Mutex
	broken map[string]bool
	hits   map[string]int
}

func (s *site) breakImage(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broken[name] = true
}

func (s *site) hitCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *site) imageHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for path, hits := range s.hits {
		if strings.HasPrefix(path, "/img-original/") {
			n += hits
		}
	}
	return n
}

func newSite(t *testing.T, pages map[string]artworkPage) *site {
	t.Helper()
	s := &site{broken: make(map[string]bool), hits: make(map[string]int)}
	mux := http.NewServeMux()
	mux.HandleFunc("/artworks/", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		s.mu.Unlock()

		id := strings.TrimPrefix(r.URL.Path, "/artworks/")
		page, ok := pages[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, s.page(id, page))
	})
	mux.HandleFunc("/img-original/", func(w http.ResponseWriter, r *http.Request) {
		name := filepath.Base(r.URL.Path)
		s.mu.Lock()
		s.hits[r.URL.Path]++
		broken := s.broken[name]
		s.mu.Unlock()
		if broken {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		fmt.Fprintf(w, "image %s", name)
	})
	s.srv = httptest.NewServer(mux)
	t.Cleanup(s.srv.Close)
	return s
}

func (s *site) page(id string, p artworkPage) string {
	var figure strings.Builder
	for i := 0; i < p.parts; i++ {
		fmt.Fprintf(&figure, `<div role="presentation"><a href="#"><img src="%s/img-master/img/2024/01/02/03/04/05/%s_p%d_master1200.jpg"></a></div>`, s.srv.URL, id, i)
	}
	return `<html><body><div class="charcoal-token"><div><main><figure>` + figure.String() + `</figure>` +
		`<figcaption><h1>` + p.title + `</h1></figcaption>` +
		`<a data-gtm-value="7" href="/users/7">someone</a>` +
		`</main></div></div></body></html>`
}

func (s *site) url(id string) string { return s.srv.URL + "/artworks/" + id }

type recordingView struct {
	mu        sync.Mutex
	navigated []string
	errors    []string
	artworks  map[string]ui.ArtworkView
	summary   *ui.Summary
}

func (v *recordingView) Navigated(kind, location string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.navigated = append(v.navigated, kind)
}

func (v *recordingView) ArtworkChanged(a ui.ArtworkView) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.artworks == nil {
		v.artworks = make(map[string]ui.ArtworkView)
	}
	v.artworks[a.ID] = a
}

func (v *recordingView) Info(string, ...interface{}) {}
func (v *recordingView) Warn(string, ...interface{}) {}

func (v *recordingView) Error(format string, args ...interface{}) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *recordingView) Finished(s ui.Summary) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.summary = &s
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Output.BaseDirectory = t.TempDir()
	cfg.Output.FilenameTemplate = "%artworkId%_p%artworkPart%.%imageFileExtension%"
	cfg.Session.WaitTimeout = 2 * time.Second
	cfg.Download.DownloadTimeout = 5 * time.Second
	cfg.Download.RetryAttempts = 1
	cfg.Download.ConcurrentDownloads = 2
	cfg.RateLimit.RequestsPerMinute = 6000
	cfg.RateLimit.BurstSize = 10
	return cfg
}

func runSession(t *testing.T, opts Options, urls []string, sel Selection) (ui.Summary, error) {
	t.Helper()
	s, err := New(opts)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	return s.Run(ctx, urls, sel)
}

func TestSession_BulkAcrossArtworks(t *testing.T) {
	st := newSite(t, map[string]artworkPage{
		"42": {title: "Sunset", parts: 2},
		"43": {title: "Sunrise", parts: 3},
	})
	cfg := testConfig(t)
	view := &recordingView{}

	summary, err := runSession(t, Options{Config: cfg, View: view}, []string{st.url("42"), st.url("43")}, Selection{Bulk: true})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Artworks)
	assert.Equal(t, 5, summary.Parts)
	assert.Equal(t, 5, summary.Completed)
	assert.True(t, summary.OK())
	assert.Greater(t, summary.Bytes, int64(0))

	for _, name := range []string{"42_p0.jpg", "42_p1.jpg", "43_p0.jpg", "43_p1.jpg", "43_p2.jpg"} {
		data, err := os.ReadFile(filepath.Join(cfg.Output.BaseDirectory, name))
		require.NoError(t, err, name)
		assert.Equal(t, "image "+name, string(data))
	}

	view.mu.Lock()
	defer view.mu.Unlock()
	require.NotNil(t, view.summary)
	assert.Equal(t, summary.Completed, view.summary.Completed)
	assert.Contains(t, view.navigated, "item-navigate")
	assert.Equal(t, "Sunrise", view.artworks["43"].Title)
	assert.Len(t, view.artworks["43"].Parts, 3)
}

func TestSession_SinglePart(t *testing.T) {
	st := newSite(t, map[string]artworkPage{"42": {title: "Sunset", parts: 3}})
	cfg := testConfig(t)

	summary, err := runSession(t, Options{Config: cfg}, []string{st.url("42")}, Selection{Part: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Parts)
	assert.Equal(t, 1, summary.Completed)

	entries, err := os.ReadDir(cfg.Output.BaseDirectory)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "42_p1.jpg", entries[0].Name())
}

func TestSession_FailedPartKeepsSiblings(t *testing.T) {
	st := newSite(t, map[string]artworkPage{"42": {title: "Sunset", parts: 3}})
	st.breakImage("42_p1.jpg")
	cfg := testConfig(t)
	view := &recordingView{}

	summary, err := runSession(t, Options{Config: cfg, View: view}, []string{st.url("42")}, Selection{Bulk: true})
	require.Error(t, err)
	assert.Equal(t, 3, summary.Parts)
	assert.Equal(t, 2, summary.Completed)
	assert.Equal(t, 1, summary.Failed)
	assert.False(t, summary.OK())

	assert.FileExists(t, filepath.Join(cfg.Output.BaseDirectory, "42_p0.jpg"))
	assert.FileExists(t, filepath.Join(cfg.Output.BaseDirectory, "42_p2.jpg"))
	assert.NoFileExists(t, filepath.Join(cfg.Output.BaseDirectory, "42_p1.jpg"))

	view.mu.Lock()
	defer view.mu.Unlock()
	assert.Len(t, view.errors, 1)
}

func TestSession_SecondRunSkipsSavedFiles(t *testing.T) {
	st := newSite(t, map[string]artworkPage{"42": {title: "Sunset", parts: 2}})
	cfg := testConfig(t)

	first, err := runSession(t, Options{Config: cfg}, []string{st.url("42")}, Selection{Bulk: true})
	require.NoError(t, err)
	assert.Equal(t, 2, first.Saved)
	assert.Zero(t, first.Skipped)
	require.Equal(t, 2, st.imageHits())

	view := &recordingView{}
	second, err := runSession(t, Options{Config: cfg, View: view}, []string{st.url("42")}, Selection{Bulk: true})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Completed)
	assert.Equal(t, 2, second.Skipped)
	assert.Zero(t, second.Saved)
	assert.Equal(t, 2, st.imageHits())

	entries, err := os.ReadDir(cfg.Output.BaseDirectory)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"42_p0.jpg", "42_p1.jpg"}, names)

	view.mu.Lock()
	defer view.mu.Unlock()
	parts := view.artworks["42"].Parts
	require.Len(t, parts, 2)
	for _, p := range parts {
		assert.Equal(t, "done", p.State)
	}
}

func TestSession_OverwriteReplacesSavedFiles(t *testing.T) {
	st := newSite(t, map[string]artworkPage{"42": {title: "Sunset", parts: 1}})
	cfg := testConfig(t)
	cfg.Output.OverwriteExisting = true
	target := filepath.Join(cfg.Output.BaseDirectory, "42_p0.jpg")
	require.NoError(t, os.WriteFile(target, []byte("stale"), 0644))

	summary, err := runSession(t, Options{Config: cfg}, []string{st.url("42")}, Selection{Bulk: true})
	require.NoError(t, err)
	assert.Zero(t, summary.Skipped)
	assert.Equal(t, 1, summary.Saved)
	assert.Equal(t, 1, st.imageHits())

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "image 42_p0.jpg", string(data))
}

func TestSession_ResumeSkipsCompletedArtworks(t *testing.T) {
	st := newSite(t, map[string]artworkPage{
		"42": {title: "Sunset", parts: 1},
		"43": {title: "Sunrise", parts: 1},
	})
	cfg := testConfig(t)
	cfg.Session.Resume = true
	cfg.Session.Checkpoint = "resume-test"
	dir := t.TempDir()

	journal, err := checkpoint.NewManager(dir, "resume-test", nil)
	require.NoError(t, err)
	cp, err := journal.LoadOrCreate("resume-test")
	require.NoError(t, err)
	require.NoError(t, journal.RecordPart(cp, "42", 0, 1, "/elsewhere/42_p0.jpg"))

	summary, err := runSession(t, Options{Config: cfg, CheckpointDir: dir}, []string{st.url("42"), st.url("43")}, Selection{Bulk: true})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Artworks)
	assert.NoFileExists(t, filepath.Join(cfg.Output.BaseDirectory, "42_p0.jpg"))
	assert.FileExists(t, filepath.Join(cfg.Output.BaseDirectory, "43_p0.jpg"))
	assert.Zero(t, st.hitCount("/artworks/42"))

	saved, err := journal.Load()
	require.NoError(t, err)
	assert.True(t, saved.IsArtworkComplete("42"))
	assert.True(t, saved.IsArtworkComplete("43"))
}

func TestSession_PartOutOfRange(t *testing.T) {
	st := newSite(t, map[string]artworkPage{"42": {title: "Sunset", parts: 1}})
	cfg := testConfig(t)

	summary, err := runSession(t, Options{Config: cfg}, []string{st.url("42")}, Selection{Part: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
	assert.Equal(t, 0, summary.Parts)

	entries, err := os.ReadDir(cfg.Output.BaseDirectory)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSession_MissingPageIsReported(t *testing.T) {
	st := newSite(t, map[string]artworkPage{"43": {title: "Sunrise", parts: 1}})
	cfg := testConfig(t)

	summary, err := runSession(t, Options{Config: cfg}, []string{st.url("404"), st.url("43")}, Selection{Bulk: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/artworks/404")
	assert.Equal(t, 1, summary.Completed)
}

func TestSession_RunsOnce(t *testing.T) {
	s, err := New(Options{Config: testConfig(t)})
	require.NoError(t, err)

	_, err = s.Run(context.Background(), nil, Selection{})
	require.NoError(t, err)
	_, err = s.Run(context.Background(), nil, Selection{})
	assert.ErrorIs(t, err, ErrAlreadyRun)
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}
