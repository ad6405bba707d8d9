package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	errs "artgrab/pkg/errors"
	"artgrab/pkg/logger"

	"github.com/go-resty/resty/v2"
)

// ClientOptions configures the HTTP side of transfers
type ClientOptions struct {
	UserAgent string
	Referer   string
	// Cookie is sent verbatim, e.g. "PHPSESSID=..."
	Cookie      string
	Timeout     time.Duration
	MaxFileSize int64
}

// Client opens image streams over HTTP
type Client struct {
	http    *resty.Client
	maxSize int64
	log     logger.Logger
}

// NewClient creates a client sending the configured identity headers on
// every request
func NewClient(opts ClientOptions, log logger.Logger) *Client {
	if log == nil {
		log = logger.NewNopLogger()
	}

	client := resty.New()
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}
	if opts.Referer != "" {
		client.SetHeader("Referer", opts.Referer)
	}
	if opts.Cookie != "" {
		client.SetHeader("Cookie", opts.Cookie)
	}
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}

	return &Client{http: client, maxSize: opts.MaxFileSize, log: log.WithField("component", "http")}
}

// Open starts a GET for url and returns the unread body with its declared
// length (-1 if unknown). The caller closes the body.
func (c *Client) Open(ctx context.Context, url string, headers map[string]string) (io.ReadCloser, int64, error) {
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		return nil, 0, errs.Wrap(errs.ErrorTypeNetwork, "request failed", err)
	}

	body := resp.RawBody()
	logger.LogRequest(c.log, http.MethodGet, url, resp.StatusCode(), time.Since(start).Seconds())

	if resp.StatusCode() != http.StatusOK {
		body.Close()
		return nil, 0, errs.FromStatus(resp.StatusCode(), fmt.Sprintf("GET %s", url))
	}

	size := resp.RawResponse.ContentLength
	if c.maxSize > 0 && size > c.maxSize {
		body.Close()
		return nil, 0, errs.New(errs.ErrorTypeDownload, fmt.Sprintf("file is %d bytes, limit is %d", size, c.maxSize))
	}
	if c.maxSize > 0 {
		return &limitedBody{ReadCloser: body, left: c.maxSize}, size, nil
	}
	return body, size, nil
}

type limitedBody struct {
	io.ReadCloser
	left int64
}

func (l *limitedBody) Read(p []byte) (int, error) {
	if l.left <= 0 {
		return 0, errs.New(errs.ErrorTypeDownload, "file exceeds size limit")
	}
	if int64(len(p)) > l.left {
		p = p[:l.left+1]
	}
	n, err := l.ReadCloser.Read(p)
	l.left -= int64(n)
	if l.left < 0 {
		return n, errs.New(errs.ErrorTypeDownload, "file exceeds size limit")
	}
	return n, err
}
