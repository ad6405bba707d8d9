package pagedata

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"regexp"

	errs "artgrab/pkg/errors"
)

// Illust is the subset of an artwork's preload record used for file names
type Illust struct {
	ID            string `json:"illustId"`
	Title         string `json:"illustTitle"`
	UserID        string `json:"userId"`
	UserName      string `json:"userName"`
	CreateDate    string `json:"createDate"`
	PageCount     int    `json:"pageCount"`
	LikeCount     int    `json:"likeCount"`
	BookmarkCount int    `json:"bookmarkCount"`
	ViewCount     int    `json:"viewCount"`
	URLs          struct {
		Regular  string `json:"regular"`
		Original string `json:"original"`
	} `json:"urls"`
}

type preload struct {
	Illust map[string]Illust `json:"illust"`
}

// ParseIllust decodes a preload document and returns the record for id. The
// payload may still carry HTML attribute escaping.
func ParseIllust(data []byte, id string) (*Illust, error) {
	var doc preload
	if err := json.Unmarshal([]byte(html.UnescapeString(string(data))), &doc); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeMalformedData, "decode preload data", err)
	}
	ill, ok := doc.Illust[id]
	if !ok {
		return nil, errs.New(errs.ErrorTypeMalformedData, fmt.Sprintf("preload data has no artwork %s", id))
	}
	return &ill, nil
}

// ReadIllust extracts and decodes the preload record for id from a page stream
func ReadIllust(ctx context.Context, r io.Reader, marker *regexp.Regexp, terminator, id string) (*Illust, error) {
	data, err := Extract(ctx, r, marker, terminator)
	if err != nil {
		return nil, err
	}
	return ParseIllust(data, id)
}
