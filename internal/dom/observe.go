package dom

import (
	"sync"

	"artgrab/internal/scope"

	"golang.org/x/net/html"
)

// MutationType names the kind of change a record describes
type MutationType string

const (
	ChildList  MutationType = "childList"
	Attributes MutationType = "attributes"
)

// MutationRecord describes one change to the tree
type MutationRecord struct {
	Type            MutationType
	Target          *html.Node
	Added           []*html.Node
	Removed         []*html.Node
	PreviousSibling *html.Node
	NextSibling     *html.Node
	AttributeName   string
	OldValue        string
}

// ObserveOptions selects which changes an observer receives
type ObserveOptions struct {
	ChildList bool
	// Subtree extends observation to all descendants of the target
	Subtree bool
	// Attributes are reported only when AttributeFilter is non-empty and
	// names the attribute.
	AttributeFilter []string
	// Once disconnects after the first delivered batch
	Once bool
}

// Callback receives every record queued since the previous delivery
type Callback func(records []MutationRecord)

// Observer is one registration on a target. Disconnect releases it.
type Observer struct {
	doc    *Document
	target *html.Node
	opts   ObserveOptions
	cb     Callback
	sc     *scope.Scope

	// guarded by doc.mu
	pending   []MutationRecord
	scheduled bool
	closed    bool

	once sync.Once
}

// Observe registers cb for changes to target. Callbacks never run inside the
// mutating call: records are batched and delivered after the current task,
// one batch per observer per turn. The observer disconnects when sc is cancelled
// and is never invoked once sc is inactive.
func (d *Document) Observe(target *html.Node, opts ObserveOptions, cb Callback, sc *scope.Scope) *Observer {
	d.mu.Lock()
	o := &Observer{doc: d, target: target, opts: opts, cb: cb, sc: sc}
	d.observers = append(d.observers, o)
	d.mu.Unlock()

	if sc != nil {
		sc.OnCancel(o.Disconnect)
	}
	return o
}

// ObserverCount returns the number of live observers
func (d *Document) ObserverCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.observers)
}

// Disconnect stops delivery. Calling it again is a no-op.
func (o *Observer) Disconnect() {
	o.once.Do(func() {
		d := o.doc
		d.mu.Lock()
		defer d.mu.Unlock()

		o.closed = true
		o.pending = nil
		for i, other := range d.observers {
			if other == o {
				d.observers = append(d.observers[:i], d.observers[i+1:]...)
				break
			}
		}
	})
}

// Target returns the observed node
func (o *Observer) Target() *html.Node { return o.target }

func (o *Observer) matches(rec MutationRecord) bool {
	if o.closed {
		return false
	}
	if o.opts.Subtree {
		if !contains(o.target, rec.Target) {
			return false
		}
	} else if rec.Target != o.target {
		return false
	}

	switch rec.Type {
	case ChildList:
		return o.opts.ChildList
	case Attributes:
		for _, name := range o.opts.AttributeFilter {
			if name == rec.AttributeName {
				return true
			}
		}
	}
	return false
}

// enqueue adds rec and reports whether a flush task must be posted
func (o *Observer) enqueue(rec MutationRecord) bool {
	o.pending = append(o.pending, rec)
	if o.scheduled {
		return false
	}
	o.scheduled = true
	return true
}

func (o *Observer) flush() {
	d := o.doc
	d.mu.Lock()
	batch := o.pending
	o.pending = nil
	o.scheduled = false
	closed := o.closed
	d.mu.Unlock()

	if closed || len(batch) == 0 {
		return
	}
	if o.sc != nil && !o.sc.Active() {
		o.Disconnect()
		return
	}
	if o.opts.Once {
		o.Disconnect()
	}
	o.cb(batch)
}
