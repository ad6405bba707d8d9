// Package filename renders download names from %token% templates.
package filename

import (
	"regexp"
	"sort"
)

// Tokens understood by the artwork download toolbar
const (
	ArtworkID         = "artworkId"
	ArtworkTitle      = "artworkTitle"
	ArtworkAuthorName = "artworkAuthorName"
	ArtworkAuthorID   = "artworkAuthorId"
	ArtworkCreated    = "artworkCreationDate"
	ArtworkPart       = "artworkPart"
	ArtworkPartCount  = "artworkPartCount"
	ArtworkLikes      = "artworkLikeCount"
	ArtworkBookmarks  = "artworkBookmarkCount"
	ArtworkViews      = "artworkViewCount"
	ImageExtension    = "imageFileExtension"
	ImageOriginalName = "imageOriginalFilename"
	ImageDate         = "imageDateFromUrlPath"
	WebLang           = "webLang"
)

var known = map[string]string{
	ArtworkID:         "numeric artwork id",
	ArtworkTitle:      "artwork title",
	ArtworkAuthorName: "author display name",
	ArtworkAuthorID:   "numeric author id",
	ArtworkCreated:    "posting date as shown on the page",
	ArtworkPart:       "zero-based index of the image within the artwork",
	ArtworkPartCount:  "number of images in the artwork",
	ArtworkLikes:      "like count",
	ArtworkBookmarks:  "bookmark count",
	ArtworkViews:      "view count",
	ImageExtension:    "file extension without the dot",
	ImageOriginalName: "file name from the image URL",
	ImageDate:         "upload timestamp encoded in the image URL path",
	WebLang:           "site language from the page URL",
}

var tokenPattern = regexp.MustCompile(`%([A-Za-z0-9_]+)%`)

// Fields maps token names to values
type Fields map[string]string

// Format replaces every %key% whose key is in fields. Tokens without a value
// are left in place verbatim.
func Format(template string, fields Fields) string {
	return tokenPattern.ReplaceAllStringFunc(template, func(tok string) string {
		if v, ok := fields[tok[1:len(tok)-1]]; ok {
			return v
		}
		return tok
	})
}

// Referenced returns the distinct token names used by template, in order
func Referenced(template string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range tokenPattern.FindAllStringSubmatch(template, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// Unknown returns tokens in template that the toolbar never fills
func Unknown(template string) []string {
	var out []string
	for _, name := range Referenced(template) {
		if _, ok := known[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

// TokenInfo describes one known token
type TokenInfo struct {
	Name        string
	Description string
}

// Known lists the tokens the toolbar fills, sorted by name
func Known() []TokenInfo {
	out := make([]TokenInfo, 0, len(known))
	for name, desc := range known {
		out = append(out, TokenInfo{Name: name, Description: desc})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
