package dom

import (
	"fmt"
	"sync"
	"time"

	"artgrab/internal/scope"
	errs "artgrab/pkg/errors"

	"golang.org/x/net/html"
)

// WaitFor calls fn with the first node under within (or the document)
// matching selector. If none exists yet it watches the subtree until one
// appears or timeout elapses, in which case fn receives a selector_miss
// error. fn always runs on a later loop turn and never after sc is cancelled.
func (d *Document) WaitFor(selector string, within *html.Node, sc *scope.Scope, timeout time.Duration, fn func(*html.Node, error)) {
	if within == nil {
		within = d.root
	}
	if _, err := d.Compile(selector); err != nil {
		d.sched.Post(func() {
			if sc.Active() {
				fn(nil, errs.Wrap(errs.ErrorTypeSelectorMiss, selector, err))
			}
		})
		return
	}

	var (
		mu    sync.Mutex
		done  bool
		obs   *Observer
		timer *time.Timer
	)
	finish := func(n *html.Node, err error) {
		mu.Lock()
		if done {
			mu.Unlock()
			return
		}
		done = true
		o, t := obs, timer
		mu.Unlock()

		if o != nil {
			o.Disconnect()
		}
		if t != nil {
			t.Stop()
		}
		if sc.Active() {
			fn(n, err)
		}
	}

	if n := d.Query(selector, within); n != nil {
		d.sched.Post(func() { finish(n, nil) })
		return
	}

	mu.Lock()
	obs = d.Observe(within, ObserveOptions{ChildList: true, Subtree: true}, func([]MutationRecord) {
		if n := d.Query(selector, within); n != nil {
			finish(n, nil)
		}
	}, sc)
	if timeout > 0 {
		timer = time.AfterFunc(timeout, func() {
			d.sched.Post(func() {
				// the node may have arrived in the same turn the timer fired
				if n := d.Query(selector, within); n != nil {
					finish(n, nil)
					return
				}
				finish(nil, errs.New(errs.ErrorTypeSelectorMiss, fmt.Sprintf("%s not found within %s", selector, timeout)))
			})
		})
	}
	mu.Unlock()

	sc.OnCancel(func() {
		mu.Lock()
		t := timer
		mu.Unlock()
		if t != nil {
			t.Stop()
		}
	})
}
