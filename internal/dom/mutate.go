package dom

import (
	"errors"
	"fmt"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Adjacent positions accepted by InsertAdjacent
const (
	BeforeBegin = "beforebegin"
	AfterBegin  = "afterbegin"
	BeforeEnd   = "beforeend"
	AfterEnd    = "afterend"
)

// ErrDetached is returned when an operation needs a parent the node lacks
var ErrDetached = errors.New("node has no parent")

// CreateElement builds a detached element
func (d *Document) CreateElement(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
		Attr:     append([]html.Attribute(nil), attrs...),
	}
}

// CreateText builds a detached text node
func (d *Document) CreateText(text string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}

// A builds an attribute for CreateElement
func A(key, val string) html.Attribute {
	return html.Attribute{Key: key, Val: val}
}

// detach removes n from its parent and returns the record for that removal
func detach(n *html.Node) *MutationRecord {
	p := n.Parent
	if p == nil {
		return nil
	}
	rec := &MutationRecord{
		Type:            ChildList,
		Target:          p,
		Removed:         []*html.Node{n},
		PreviousSibling: n.PrevSibling,
		NextSibling:     n.NextSibling,
	}
	p.RemoveChild(n)
	return rec
}

// AppendChild moves child to the end of parent's children
func (d *Document) AppendChild(parent, child *html.Node) {
	d.mutate(func() []MutationRecord {
		var recs []MutationRecord
		if r := detach(child); r != nil {
			recs = append(recs, *r)
		}
		prev := parent.LastChild
		parent.AppendChild(child)
		return append(recs, MutationRecord{
			Type: ChildList, Target: parent, Added: []*html.Node{child}, PreviousSibling: prev,
		})
	})
}

// InsertBefore inserts child before ref; a nil ref appends
func (d *Document) InsertBefore(parent, child, ref *html.Node) {
	if ref == nil {
		d.AppendChild(parent, child)
		return
	}
	d.mutate(func() []MutationRecord {
		var recs []MutationRecord
		if r := detach(child); r != nil {
			recs = append(recs, *r)
		}
		prev := ref.PrevSibling
		parent.InsertBefore(child, ref)
		return append(recs, MutationRecord{
			Type: ChildList, Target: parent, Added: []*html.Node{child}, PreviousSibling: prev, NextSibling: ref,
		})
	})
}

// InsertAdjacent places n relative to ref like Element.insertAdjacentElement
func (d *Document) InsertAdjacent(ref *html.Node, position string, n *html.Node) error {
	switch position {
	case BeforeBegin:
		if ref.Parent == nil {
			return ErrDetached
		}
		d.InsertBefore(ref.Parent, n, ref)
	case AfterBegin:
		d.InsertBefore(ref, n, ref.FirstChild)
	case BeforeEnd:
		d.AppendChild(ref, n)
	case AfterEnd:
		if ref.Parent == nil {
			return ErrDetached
		}
		d.InsertBefore(ref.Parent, n, ref.NextSibling)
	default:
		return fmt.Errorf("unknown insert position %q", position)
	}
	return nil
}

// Remove detaches n from the tree; detached nodes are ignored
func (d *Document) Remove(n *html.Node) {
	d.mutate(func() []MutationRecord {
		if r := detach(n); r != nil {
			return []MutationRecord{*r}
		}
		return nil
	})
}

// ReplaceChildren swaps all children of parent for nodes in one record
func (d *Document) ReplaceChildren(parent *html.Node, nodes ...*html.Node) {
	d.mutate(func() []MutationRecord {
		var recs []MutationRecord
		for _, n := range nodes {
			if n.Parent != nil && n.Parent != parent {
				recs = append(recs, *detach(n))
			}
		}

		var removed []*html.Node
		for c := parent.FirstChild; c != nil; {
			next := c.NextSibling
			parent.RemoveChild(c)
			removed = append(removed, c)
			c = next
		}
		for _, n := range nodes {
			parent.AppendChild(n)
		}
		if len(removed) == 0 && len(nodes) == 0 {
			return recs
		}
		return append(recs, MutationRecord{
			Type: ChildList, Target: parent, Added: append([]*html.Node(nil), nodes...), Removed: removed,
		})
	})
}

// SetText replaces the children of n with a single text node
func (d *Document) SetText(n *html.Node, text string) {
	d.ReplaceChildren(n, d.CreateText(text))
}

// SetAttr sets or adds an attribute
func (d *Document) SetAttr(n *html.Node, key, val string) {
	d.mutate(func() []MutationRecord {
		old, had := attr(n, key)
		if had && old == val {
			return nil
		}
		if had {
			for i := range n.Attr {
				if n.Attr[i].Key == key {
					n.Attr[i].Val = val
				}
			}
		} else {
			n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
		}
		return []MutationRecord{{Type: Attributes, Target: n, AttributeName: key, OldValue: old}}
	})
}

// RemoveAttr deletes an attribute if present
func (d *Document) RemoveAttr(n *html.Node, key string) {
	d.mutate(func() []MutationRecord {
		old, had := attr(n, key)
		if !had {
			return nil
		}
		kept := n.Attr[:0]
		for _, a := range n.Attr {
			if a.Key != key {
				kept = append(kept, a)
			}
		}
		n.Attr = kept
		return []MutationRecord{{Type: Attributes, Target: n, AttributeName: key, OldValue: old}}
	})
}

// SetBoolAttr adds key with an empty value when on, removes it otherwise
func (d *Document) SetBoolAttr(n *html.Node, key string, on bool) {
	if on {
		d.SetAttr(n, key, "")
		return
	}
	d.RemoveAttr(n, key)
}

// mutate applies change under the write lock, then queues the resulting
// records to matching observers. Delivery happens in a microtask after the
// current task, so every change made during one task arrives as one batch.
func (d *Document) mutate(change func() []MutationRecord) {
	d.mu.Lock()
	recs := change()
	var flush []*Observer
	for _, rec := range recs {
		for _, o := range d.observers {
			if o.matches(rec) && o.enqueue(rec) {
				flush = append(flush, o)
			}
		}
	}
	d.mu.Unlock()

	for _, o := range flush {
		o := o
		if !d.sched.Microtask(o.flush) {
			o.Disconnect()
		}
	}
}
