// Package scope provides cancellation scopes bound to navigation boundaries.
//
// A Scope starts active and becomes inactive exactly once. Cancelling it runs
// its cleanup actions in reverse registration order, cancels every child
// scope first and cancels the context handed to network work. A cancelled
// scope never reactivates.
package scope

import (
	"context"
	"fmt"
	"sync"
)

// Scope is a cancellation scope. The zero value is not usable; call New.
type Scope struct {
	mu       sync.Mutex
	name     string
	active   bool
	cleanups []func()
	children map[*Scope]struct{}
	parent   *Scope

	ctx    context.Context
	cancel context.CancelFunc

	onPanic func(name string, recovered interface{})
}

// New creates an active root scope
func New(name string) *Scope {
	return newScope(context.Background(), name, nil)
}

func newScope(parent context.Context, name string, p *Scope) *Scope {
	ctx, cancel := context.WithCancel(parent)
	return &Scope{
		name:     name,
		active:   true,
		children: make(map[*Scope]struct{}),
		parent:   p,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Child creates a scope that is cancelled along with s. A child of an
// inactive scope is born inactive.
func (s *Scope) Child(name string) *Scope {
	s.mu.Lock()
	child := newScope(s.ctx, name, s)
	child.onPanic = s.onPanic
	if !s.active {
		s.mu.Unlock()
		child.Cancel()
		return child
	}
	s.children[child] = struct{}{}
	s.mu.Unlock()
	return child
}

// Name returns the diagnostic name given at creation
func (s *Scope) Name() string { return s.name }

// Active reports whether the scope has not been cancelled
func (s *Scope) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Context is cancelled when the scope is
func (s *Scope) Context() context.Context { return s.ctx }

// Err returns nil while active and a *CancelledError afterwards
func (s *Scope) Err() error {
	if s.Active() {
		return nil
	}
	return &CancelledError{Scope: s.name}
}

// OnCancel registers fn to run when the scope is cancelled. If the scope is
// already inactive fn runs immediately.
func (s *Scope) OnCancel(fn func()) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		s.run(fn)
		return
	}
	s.cleanups = append(s.cleanups, fn)
	s.mu.Unlock()
}

// OnPanic installs a hook receiving panics recovered from cleanup actions.
// Children created afterwards inherit it.
func (s *Scope) OnPanic(fn func(name string, recovered interface{})) {
	s.mu.Lock()
	s.onPanic = fn
	s.mu.Unlock()
}

// Cancel deactivates the scope. It is synchronous and idempotent: children
// are cancelled first, then cleanups run newest first, then the context is
// cancelled. A panicking cleanup does not stop the others.
func (s *Scope) Cancel() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	children := make([]*Scope, 0, len(s.children))
	for c := range s.children {
		children = append(children, c)
	}
	s.children = nil
	cleanups := s.cleanups
	s.cleanups = nil
	parent := s.parent
	s.mu.Unlock()

	for _, c := range children {
		c.Cancel()
	}
	for i := len(cleanups) - 1; i >= 0; i-- {
		s.run(cleanups[i])
	}
	s.cancel()

	if parent != nil {
		parent.mu.Lock()
		delete(parent.children, s)
		parent.mu.Unlock()
	}
}

func (s *Scope) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.mu.Lock()
			hook := s.onPanic
			s.mu.Unlock()
			if hook != nil {
				hook(s.name, r)
			}
		}
	}()
	fn()
}

// CancelledError is returned by Err once a scope is inactive
type CancelledError struct {
	Scope string
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("scope %q cancelled", e.Scope)
}

// Is lets errors.Is match context.Canceled
func (e *CancelledError) Is(target error) bool {
	return target == context.Canceled
}
