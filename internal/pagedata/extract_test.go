package pagedata

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"testing"
	"testing/iotest"

	errs "artgrab/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var marker = regexp.MustCompile(`id="meta-preload-data" content='`)

func page(payload string) string {
	return `<html><head><meta name="global-data" content='{}'>` +
		`<meta name="preload-data" id="meta-preload-data" content='` + payload + `'>` +
		`</head><body></body></html>`
}

func TestExtract(t *testing.T) {
	got, err := Extract(context.Background(), strings.NewReader(page(`{"a":1}`)), marker, `'>`)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))
}

func TestExtractAcrossSmallReads(t *testing.T) {
	payload := `{"illust":{"1":{"illustTitle":"` + strings.Repeat("x", 5000) + `"}}}`
	r := iotest.OneByteReader(strings.NewReader(strings.Repeat(" ", 9000) + page(payload)))

	got, err := Extract(context.Background(), r, marker, `'>`)
	require.NoError(t, err)
	assert.Equal(t, payload, string(got))
}

func TestExtractMissingMarker(t *testing.T) {
	_, err := Extract(context.Background(), strings.NewReader("<html></html>"), marker, `'>`)
	assert.True(t, errs.Is(err, errs.ErrorTypeMalformedData))
	assert.ErrorIs(t, err, ErrMarkerNotFound)
}

func TestExtractUnterminated(t *testing.T) {
	_, err := Extract(context.Background(), strings.NewReader(`id="meta-preload-data" content='{"a":`), marker, `'>`)
	assert.True(t, errs.Is(err, errs.ErrorTypeMalformedData))
	assert.ErrorIs(t, err, ErrUnterminated)
}

func TestExtractReadError(t *testing.T) {
	r := io.MultiReader(strings.NewReader("partial"), iotest.ErrReader(errors.New("reset")))
	_, err := Extract(context.Background(), r, marker, `'>`)
	assert.True(t, errs.Is(err, errs.ErrorTypeNetwork))
}

func TestExtractCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Extract(ctx, strings.NewReader(page("{}")), marker, `'>`)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadIllust(t *testing.T) {
	payload := `{"illust":{"42":{"illustId":"42","illustTitle":"Tom &amp; Jerry","userId":"7","userName":"someone",` +
		`"pageCount":3,"likeCount":10,"bookmarkCount":5,"viewCount":100,"createDate":"2024-01-02T03:04:05+00:00",` +
		`"urls":{"original":"https://i.pximg.net/img-original/img/2024/01/02/03/04/05/42_p0.png"}}}}`

	ill, err := ReadIllust(context.Background(), strings.NewReader(page(payload)), marker, `'>`, "42")
	require.NoError(t, err)
	assert.Equal(t, "Tom & Jerry", ill.Title)
	assert.Equal(t, 3, ill.PageCount)
	assert.Equal(t, "someone", ill.UserName)
	assert.Contains(t, ill.URLs.Original, "42_p0.png")

	_, err = ReadIllust(context.Background(), strings.NewReader(page(payload)), marker, `'>`, "43")
	assert.True(t, errs.Is(err, errs.ErrorTypeMalformedData))

	_, err = ParseIllust([]byte("{not json"), "42")
	assert.True(t, errs.Is(err, errs.ErrorTypeMalformedData))
}
