package downloader

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	errs "artgrab/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSendsIdentityHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte("image bytes"))
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{
		UserAgent: "artgrab-test",
		Referer:   "https://www.pixiv.net/",
		Cookie:    "PHPSESSID=abc",
	}, nil)

	body, size, err := c.Open(context.Background(), srv.URL+"/img.png", map[string]string{"X-Part": "2"})
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "image bytes", string(data))
	assert.Equal(t, int64(len("image bytes")), size)

	assert.Equal(t, "artgrab-test", got.Get("User-Agent"))
	assert.Equal(t, "https://www.pixiv.net/", got.Get("Referer"))
	assert.Equal(t, "PHPSESSID=abc", got.Get("Cookie"))
	assert.Equal(t, "2", got.Get("X-Part"))
}

func TestClientClassifiesStatus(t *testing.T) {
	tests := []struct {
		status int
		want   errs.ErrorType
	}{
		{http.StatusNotFound, errs.ErrorTypeNotFound},
		{http.StatusForbidden, errs.ErrorTypeAuth},
		{http.StatusTooManyRequests, errs.ErrorTypeRateLimit},
		{http.StatusBadGateway, errs.ErrorTypeServerError},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, _, err := NewClient(ClientOptions{}, nil).Open(context.Background(), srv.URL, nil)
			require.Error(t, err)
			assert.Equal(t, tt.want, errs.TypeOf(err))
		})
	}
}

func TestClientSizeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	_, _, err := NewClient(ClientOptions{MaxFileSize: 10}, nil).Open(context.Background(), srv.URL, nil)
	assert.True(t, errs.Is(err, errs.ErrorTypeDownload))

	body, _, err := NewClient(ClientOptions{MaxFileSize: 100}, nil).Open(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Len(t, data, 64)
}

func TestClientNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, _, err := NewClient(ClientOptions{}, nil).Open(context.Background(), url, nil)
	assert.True(t, errs.Is(err, errs.ErrorTypeNetwork))
}
