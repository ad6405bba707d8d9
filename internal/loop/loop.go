// Package loop implements the single-threaded cooperative task loop that owns
// a page. All DOM mutation, observer delivery, event dispatch and UI handlers
// run as tasks on one loop, one task at a time. Goroutines doing network work
// hand their continuations back with Post.
package loop

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"artgrab/pkg/logger"
)

// ErrStopped is returned when a task is submitted to a stopped loop
var ErrStopped = errors.New("loop stopped")

// Loop is an unbounded FIFO of tasks. Post never blocks.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	micro   []func()
	wake    chan struct{}
	stopped bool
	running bool
	owner   chan struct{}
	log     logger.Logger
}

// New creates a loop. It does not start a goroutine; call Run or RunPending.
func New(log logger.Logger) *Loop {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Loop{
		wake:  make(chan struct{}, 1),
		owner: make(chan struct{}, 1),
		log:   log,
	}
}

// Post schedules fn for a later turn. It reports false if the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Microtask schedules fn to run right after the current task, before any
// other queued task. Outside a task it runs before the next one.
func (l *Loop) Microtask(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.micro = append(l.micro, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Call runs fn on the loop and waits for it to finish. It must not be
// called from a loop task.
func (l *Loop) Call(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	if !l.Post(func() { done <- fn() }) {
		return ErrStopped
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) nextMicro() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.micro) == 0 {
		return nil, false
	}
	fn := l.micro[0]
	l.micro[0] = nil
	l.micro = l.micro[1:]
	return fn, true
}

// drainMicro runs microtasks, including ones they queue
func (l *Loop) drainMicro() int {
	n := 0
	for {
		fn, ok := l.nextMicro()
		if !ok {
			return n
		}
		l.exec(fn)
		n++
	}
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.ErrorWithFields("Task panicked", map[string]interface{}{
				"panic": fmt.Sprint(r),
			})
		}
	}()
	fn()
}

// acquire ensures only one driver runs tasks at a time
func (l *Loop) acquire() {
	l.owner <- struct{}{}
}

func (l *Loop) release() {
	<-l.owner
}

// RunPending runs queued tasks, including ones they post, until the queue is
// empty. Microtasks are drained after every task. It returns the number of
// tasks and microtasks run. Tests use it to drive the loop
// deterministically.
func (l *Loop) RunPending() int {
	l.acquire()
	defer l.release()

	n := l.drainMicro()
	for {
		fn, ok := l.next()
		if !ok {
			return n
		}
		l.exec(fn)
		n++
		n += l.drainMicro()
	}
}

// Run processes tasks until ctx is done or Stop is called
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return errors.New("loop already running")
	}
	l.running = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	for {
		l.RunPending()

		l.mu.Lock()
		stopped := l.stopped
		l.mu.Unlock()
		if stopped {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Stop refuses further posts. Tasks already queued still run.
func (l *Loop) Stop() {
	l.mu.Lock()
	l.stopped = true
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued tasks and microtasks
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue) + len(l.micro)
}
