package filename

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

var (
	masterSuffix = regexp.MustCompile(`_master\d+\.(jpg)?$`)
	pathDate     = regexp.MustCompile(`/img/(\d{4})/(\d{2})/(\d{2})/(\d{2})/(\d{2})/(\d{2})/`)
)

// HighResolution rewrites a sample image URL to its original-size variant.
// URLs that are not samples come back unchanged.
func HighResolution(imageURL string) string {
	u := strings.Replace(imageURL, "-master", "-original", 1)
	return masterSuffix.ReplaceAllString(u, ".$1")
}

// Extension returns the file extension of an image URL without the dot
func Extension(imageURL string) string {
	ext := path.Ext(urlPath(imageURL))
	return strings.TrimPrefix(ext, ".")
}

// OriginalName returns the last path element of an image URL without its
// extension
func OriginalName(imageURL string) string {
	base := path.Base(urlPath(imageURL))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

// DateFromPath extracts the upload timestamp encoded in an image URL path as
// "YYYY-MM-DD_hh-mm-ss", or "" when the path carries none.
func DateFromPath(imageURL string) string {
	m := pathDate.FindStringSubmatch(urlPath(imageURL))
	if m == nil {
		return ""
	}
	return m[1] + "-" + m[2] + "-" + m[3] + "_" + m[4] + "-" + m[5] + "-" + m[6]
}

// Lang returns the language segment of a page URL such as /en/artworks/1,
// or "" when the page is in the default language.
func Lang(pageURL string) string {
	p := strings.TrimPrefix(urlPath(pageURL), "/")
	first, _, found := strings.Cut(p, "/")
	if !found || len(first) != 2 {
		return ""
	}
	return first
}

func urlPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Path
}
