package artwork

import (
	"fmt"
	"regexp"
	"strings"

	"artgrab/internal/dom"
	"artgrab/internal/filename"
	"artgrab/internal/pagedata"
	"artgrab/pkg/config"
	"artgrab/pkg/metadata"

	"golang.org/x/net/html"
)

var (
	artworkIDPattern = regexp.MustCompile(`works/(\d+)`)
	userIDPattern    = regexp.MustCompile(`users/(\d+)`)
	partPattern      = regexp.MustCompile(`_p0([._])`)
)

// FormatData is everything known about the current artwork that file names
// can refer to
type FormatData struct {
	PageURL      string
	ArtworkID    string
	Title        string
	AuthorName   string
	AuthorID     string
	CreationDate string
	Likes        string
	Bookmarks    string
	Views        string
	Lang         string
	PartCount    int
}

// Fields returns the template values for one part
func (d FormatData) Fields(part int, imageURL string) filename.Fields {
	return filename.Fields{
		filename.ArtworkID:         d.ArtworkID,
		filename.ArtworkTitle:      d.Title,
		filename.ArtworkAuthorName: d.AuthorName,
		filename.ArtworkAuthorID:   d.AuthorID,
		filename.ArtworkCreated:    d.CreationDate,
		filename.ArtworkPart:       fmt.Sprint(part),
		filename.ArtworkPartCount:  fmt.Sprint(d.PartCount),
		filename.ArtworkLikes:      d.Likes,
		filename.ArtworkBookmarks:  d.Bookmarks,
		filename.ArtworkViews:      d.Views,
		filename.ImageExtension:    filename.Extension(imageURL),
		filename.ImageOriginalName: filename.OriginalName(imageURL),
		filename.ImageDate:         filename.DateFromPath(imageURL),
		filename.WebLang:           d.Lang,
	}
}

// Metadata builds the sidecar document for one part
func (d FormatData) Metadata(part int, imageURL string) *metadata.ArtworkMetadata {
	return &metadata.ArtworkMetadata{
		ArtworkID:    d.ArtworkID,
		Part:         part,
		PartCount:    d.PartCount,
		PageURL:      d.PageURL,
		ImageURL:     imageURL,
		Title:        d.Title,
		CreationDate: d.CreationDate,
		Lang:         d.Lang,
		Likes:        d.Likes,
		Bookmarks:    d.Bookmarks,
		Views:        d.Views,
		Author:       metadata.Author{ID: d.AuthorID, Name: d.AuthorName},
	}
}

// ArtworkIDFromURL returns the numeric id of an artwork page URL
func ArtworkIDFromURL(pageURL string) string {
	if m := artworkIDPattern.FindStringSubmatch(pageURL); m != nil {
		return m[1]
	}
	return ""
}

// readFormatData reads the page synchronously. Values missing from the DOM
// fall back to the preload record when one is available.
func readFormatData(doc *dom.Document, sel config.SelectorConfig, ill *pagedata.Illust, partCount int) FormatData {
	loc := doc.Location()
	d := FormatData{
		PageURL:   loc,
		ArtworkID: ArtworkIDFromURL(loc),
		Lang:      filename.Lang(loc),
		PartCount: partCount,
	}

	d.Title = doc.Text(doc.Query(sel.Title, nil))
	if author := doc.Query(sel.Author, nil); author != nil {
		d.AuthorName = doc.Text(author)
		if href, ok := doc.Attr(author, "href"); ok {
			if m := userIDPattern.FindStringSubmatch(href); m != nil {
				d.AuthorID = m[1]
			}
		}
	}
	d.CreationDate = doc.Text(doc.Query(sel.PostingDate, nil))
	d.Likes = doc.Text(doc.Query(sel.Likes, nil))
	d.Bookmarks = doc.Text(doc.Query(sel.Bookmarks, nil))
	d.Views = doc.Text(doc.Query(sel.Views, nil))

	if ill == nil {
		return d
	}
	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&d.ArtworkID, ill.ID)
	fill(&d.Title, ill.Title)
	fill(&d.AuthorName, ill.UserName)
	fill(&d.AuthorID, ill.UserID)
	fill(&d.CreationDate, ill.CreateDate)
	fill(&d.Likes, fmt.Sprint(ill.LikeCount))
	fill(&d.Bookmarks, fmt.Sprint(ill.BookmarkCount))
	fill(&d.Views, fmt.Sprint(ill.ViewCount))
	return d
}

// Part is one image of a multi-image artwork
type Part struct {
	Index int
	URL   string
}

// queryParts lists the current item's images in document order. The parts
// list depends only on the DOM and the preload count, so repeated calls on
// an unchanged page agree.
func queryParts(doc *dom.Document, sel config.SelectorConfig, ill *pagedata.Illust) []Part {
	var urls []string
	seen := make(map[string]bool)
	collect := func(selector string) {
		if selector == "" {
			return
		}
		nodes, err := doc.QueryAll(selector, nil)
		if err != nil {
			return
		}
		for _, n := range nodes {
			if u := imageURL(doc, n); u != "" && !seen[u] {
				seen[u] = true
				urls = append(urls, u)
			}
		}
	}
	collect(sel.Parts)
	if len(urls) == 0 {
		collect(sel.ExpandedPart)
	}

	// Only the first page is rendered until the viewer is expanded; the
	// preload record knows how many there are.
	if ill != nil && ill.PageCount > len(urls) && len(urls) > 0 && partPattern.MatchString(urls[0]) {
		first := urls[0]
		for i := len(urls); i < ill.PageCount; i++ {
			urls = append(urls, partPattern.ReplaceAllString(first, fmt.Sprintf("_p%d$1", i)))
		}
	}

	parts := make([]Part, len(urls))
	for i, u := range urls {
		parts[i] = Part{Index: i, URL: u}
	}
	return parts
}

func imageURL(doc *dom.Document, n *html.Node) string {
	for _, key := range []string{"src", "data-src"} {
		if v, ok := doc.Attr(n, key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
