// Package pagedata pulls the initial-state JSON a page embeds in its markup
// without buffering the whole document.
package pagedata

import (
	"bytes"
	"context"
	"errors"
	"io"
	"regexp"

	errs "artgrab/pkg/errors"
)

var (
	// ErrMarkerNotFound means the stream ended before the marker appeared
	ErrMarkerNotFound = errors.New("marker not found")
	// ErrUnterminated means the marker was seen but the terminator never was
	ErrUnterminated = errors.New("embedded data not terminated")
)

const (
	chunkSize = 32 * 1024
	// keep bounds how much unmatched text is retained while looking for the
	// marker, so a marker split across chunks is still found
	keep = 4096
	// maxPayload bounds the captured document
	maxPayload = 32 << 20
)

// Extract reads r until marker matches, then returns everything up to the
// first occurrence of terminator after it. The stream is read in chunks and
// ctx is checked between them.
func Extract(ctx context.Context, r io.Reader, marker *regexp.Regexp, terminator string) ([]byte, error) {
	if terminator == "" {
		return nil, errs.New(errs.ErrorTypeMalformedData, "empty terminator")
	}
	term := []byte(terminator)

	var (
		buf   []byte
		start = -1
		from  int
		chunk = make([]byte, chunkSize)
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, rerr := r.Read(chunk)
		buf = append(buf, chunk[:n]...)

		if start < 0 {
			if loc := marker.FindIndex(buf); loc != nil {
				buf = buf[loc[1]:]
				start = 0
				from = 0
			} else if len(buf) > keep {
				buf = append(buf[:0], buf[len(buf)-keep:]...)
			}
		}

		if start >= 0 {
			if i := bytes.Index(buf[from:], term); i >= 0 {
				return buf[:from+i], nil
			}
			if from = len(buf) - len(term) + 1; from < 0 {
				from = 0
			}
			if len(buf) > maxPayload {
				return nil, errs.New(errs.ErrorTypeMalformedData, "embedded data exceeds size limit")
			}
		}

		if rerr == io.EOF {
			if start < 0 {
				return nil, errs.Wrap(errs.ErrorTypeMalformedData, "stream ended", ErrMarkerNotFound)
			}
			return nil, errs.Wrap(errs.ErrorTypeMalformedData, "stream ended", ErrUnterminated)
		}
		if rerr != nil {
			return nil, errs.Wrap(errs.ErrorTypeNetwork, "read failed", rerr)
		}
	}
}
