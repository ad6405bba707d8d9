package artwork

import (
	"fmt"
	"strings"
)

// PartState is the lifecycle of one request in a batch
type PartState int

const (
	PartPending PartState = iota
	PartDone
	PartFailed
	PartTimedOut
)

func (s PartState) String() string {
	switch s {
	case PartDone:
		return "done"
	case PartFailed:
		return "error"
	case PartTimedOut:
		return "timeout"
	default:
		return "pending"
	}
}

// PartStatus tracks one request of a batch
type PartStatus struct {
	Index  int
	Name   string
	State  PartState
	Loaded int64
	Total  int64
	Path   string
	Err    error
}

// Status aggregates a download batch. Parts are tracked independently; a
// failed part never affects its siblings.
type Status struct {
	ArtworkID string
	Title     string
	Parts     []PartStatus
}

// Total returns the number of requests in the batch
func (s Status) Total() int { return len(s.Parts) }

func (s Status) count(state PartState) int {
	n := 0
	for _, p := range s.Parts {
		if p.State == state {
			n++
		}
	}
	return n
}

// Completed returns the number of parts saved
func (s Status) Completed() int { return s.count(PartDone) }

// Failed reports whether any part errored
func (s Status) Failed() bool { return s.count(PartFailed) > 0 }

// TimedOut reports whether any part timed out
func (s Status) TimedOut() bool { return s.count(PartTimedOut) > 0 }

// Done reports whether every part has settled
func (s Status) Done() bool { return s.count(PartPending) == 0 }

// String renders the status line, e.g. "Downloaded 2/3 (error)"
func (s Status) String() string {
	verb := "Downloading"
	if s.Done() {
		verb = "Downloaded"
	}
	line := fmt.Sprintf("%s %d/%d", verb, s.Completed(), s.Total())

	var flags []string
	if s.Failed() {
		flags = append(flags, "error")
	}
	if s.TimedOut() {
		flags = append(flags, "timeout")
	}
	if len(flags) > 0 {
		line += " (" + strings.Join(flags, ", ") + ")"
	}
	return line
}

func (s Status) clone() Status {
	s.Parts = append([]PartStatus(nil), s.Parts...)
	return s
}
