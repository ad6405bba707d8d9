// Package downloader performs file transfers on behalf of patches. A request
// carries its own callbacks; exactly one of OnLoad, OnError or OnTimeout is
// called per request, always from a worker goroutine.
package downloader

import (
	"context"
	"time"
)

// Progress reports bytes received so far. Total is -1 when unknown.
type Progress struct {
	Loaded int64
	Total  int64
}

// Result describes a completed transfer
type Result struct {
	RequestID string
	Path      string
	Size      int64
	Duration  time.Duration
	// Skipped is set when Path was already saved and nothing was fetched
	Skipped bool
}

// Request is one file transfer
type Request struct {
	ID      string
	Name    string
	URL     string
	SaveAs  bool
	Headers map[string]string
	Timeout time.Duration

	// Metadata, when set, is written next to the saved file
	Metadata interface{}

	OnProgress func(Progress)
	OnLoad     func(Result)
	OnError    func(error)
	OnTimeout  func()
}

// Capability starts transfers. Download never blocks on the transfer itself
// and reports the outcome only through the request callbacks.
type Capability interface {
	Download(ctx context.Context, req Request)
}

func (r Request) progress(p Progress) {
	if r.OnProgress != nil {
		r.OnProgress(p)
	}
}

func (r Request) loaded(res Result) {
	if r.OnLoad != nil {
		r.OnLoad(res)
	}
}

func (r Request) failed(err error) {
	if r.OnError != nil {
		r.OnError(err)
	}
}

func (r Request) timedOut() {
	if r.OnTimeout != nil {
		r.OnTimeout()
	}
}
