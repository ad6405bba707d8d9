package dom

import (
	"golang.org/x/net/html"
)

// Event is delivered to listeners
type Event struct {
	Type   string
	Target *html.Node
}

type listener struct {
	fn      func(Event)
	removed bool
}

// AddEventListener registers fn for events of typ dispatched at n and returns
// a function that removes it.
func (d *Document) AddEventListener(n *html.Node, typ string, fn func(Event)) (remove func()) {
	l := &listener{fn: fn}

	d.mu.Lock()
	byType := d.listeners[n]
	if byType == nil {
		byType = make(map[string][]*listener)
		d.listeners[n] = byType
	}
	byType[typ] = append(byType[typ], l)
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()

		l.removed = true
		list := d.listeners[n][typ]
		for i, other := range list {
			if other == l {
				d.listeners[n][typ] = append(list[:i], list[i+1:]...)
				break
			}
		}
		if len(d.listeners[n][typ]) == 0 {
			delete(d.listeners[n], typ)
		}
		if len(d.listeners[n]) == 0 {
			delete(d.listeners, n)
		}
	}
}

// Dispatch runs the listeners for typ at n synchronously. It must be called
// from the loop.
func (d *Document) Dispatch(n *html.Node, typ string) int {
	d.mu.RLock()
	list := append([]*listener(nil), d.listeners[n][typ]...)
	d.mu.RUnlock()

	ran := 0
	for _, l := range list {
		d.mu.RLock()
		removed := l.removed
		d.mu.RUnlock()
		if removed {
			continue
		}
		l.fn(Event{Type: typ, Target: n})
		ran++
	}
	return ran
}

// Click queues a user activation of n on the loop
func (d *Document) Click(n *html.Node) bool {
	return d.sched.Post(func() { d.Dispatch(n, "click") })
}

// Select marks option index i of a select element as chosen and queues a
// change event, the way a user picking from the list would.
func (d *Document) Select(sel *html.Node, i int) bool {
	return d.sched.Post(func() {
		idx := 0
		for c := sel.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode || c.Data != "option" {
				continue
			}
			d.SetBoolAttr(c, "selected", idx == i)
			idx++
		}
		d.Dispatch(sel, "change")
	})
}

// Toggle flips a checkbox and queues a change event
func (d *Document) Toggle(box *html.Node) bool {
	return d.sched.Post(func() {
		_, checked := d.Attr(box, "checked")
		d.SetBoolAttr(box, "checked", !checked)
		d.Dispatch(box, "change")
	})
}

// SelectedIndex returns the index of the selected option, defaulting to 0
func (d *Document) SelectedIndex(sel *html.Node) int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	idx := 0
	for c := sel.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != "option" {
			continue
		}
		if _, ok := attr(c, "selected"); ok {
			return idx
		}
		idx++
	}
	return 0
}
