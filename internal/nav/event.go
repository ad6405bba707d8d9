// Package nav turns raw page mutations into navigation events and fans them
// out to subscribers.
package nav

import (
	"fmt"
	"time"
)

// Kind classifies a navigation event
type Kind int

const (
	// WholeNavigate fires when the page region's children are replaced
	WholeNavigate Kind = iota + 1
	// ItemNavigateStart fires when a detail page becomes current
	ItemNavigateStart
	// ItemNavigate fires on entering a detail page and whenever its item
	// panel is re-rendered
	ItemNavigate
	// ItemNavigateEnd fires when the current detail page goes away
	ItemNavigateEnd
)

var kindNames = map[Kind]string{
	WholeNavigate:     "whole-navigate",
	ItemNavigateStart: "item-navigate-start",
	ItemNavigate:      "item-navigate",
	ItemNavigateEnd:   "item-navigate-end",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Kinds lists every event kind in declaration order
func Kinds() []Kind {
	return []Kind{WholeNavigate, ItemNavigateStart, ItemNavigate, ItemNavigateEnd}
}

// Event is an immutable navigation notification
type Event struct {
	Kind     Kind
	Location string
	At       time.Time
	Seq      uint64
}
