// Package host loads site pages into a dom.Document and replays navigation
// the way the site's client-side router does: swapping the page region, or
// only the item panel when moving between adjacent items.
package host

import (
	"context"
	"fmt"
	"net/http"
	"time"

	errs "artgrab/pkg/errors"
	"artgrab/pkg/logger"

	"github.com/go-resty/resty/v2"
)

// Fetcher returns the markup of a page
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// HTTPFetcher fetches pages over HTTP
type HTTPFetcher struct {
	http *resty.Client
	log  logger.Logger
}

// NewHTTPFetcher creates a fetcher. cookie may be empty.
func NewHTTPFetcher(userAgent, cookie string, timeout time.Duration, log logger.Logger) *HTTPFetcher {
	if log == nil {
		log = logger.NewNopLogger()
	}
	client := resty.New()
	client.SetHeader("Accept", "text/html")
	if userAgent != "" {
		client.SetHeader("User-Agent", userAgent)
	}
	if cookie != "" {
		client.SetHeader("Cookie", cookie)
	}
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &HTTPFetcher{http: client, log: log.WithField("component", "host")}
}

// Fetch implements Fetcher
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	start := time.Now()
	resp, err := f.http.R().SetContext(ctx).Get(url)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", errs.Wrap(errs.ErrorTypeNetwork, "fetch page", err)
	}
	logger.LogRequest(f.log, http.MethodGet, url, resp.StatusCode(), time.Since(start).Seconds())

	if resp.StatusCode() != http.StatusOK {
		return "", errs.FromStatus(resp.StatusCode(), fmt.Sprintf("GET %s", url))
	}
	return resp.String(), nil
}
