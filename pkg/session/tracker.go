package session

import (
	"context"
	"sync"

	"artgrab/internal/artwork"
)

// tracker mirrors what the artwork patch reports from the loop so the
// driving goroutine can wait on it
type tracker struct {
	mu       sync.Mutex
	changed  chan struct{}
	parts    map[string]int
	statuses map[string]artwork.Status
	order    []string
}

func newTracker() *tracker {
	return &tracker{
		changed:  make(chan struct{}),
		parts:    make(map[string]int),
		statuses: make(map[string]artwork.Status),
	}
}

// notify wakes every waiter; callers hold mu
func (t *tracker) notify() {
	close(t.changed)
	t.changed = make(chan struct{})
}

func (t *tracker) setParts(id string, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.parts[id] = n
	t.notify()
}

func (t *tracker) setStatus(st artwork.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.statuses[st.ArtworkID]; !ok {
		t.order = append(t.order, st.ArtworkID)
	}
	t.statuses[st.ArtworkID] = st
	t.notify()
}

// reset forgets an artwork before it is visited again
func (t *tracker) reset(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.parts, id)
	if _, ok := t.statuses[id]; ok {
		delete(t.statuses, id)
		for i, other := range t.order {
			if other == id {
				t.order = append(t.order[:i:i], t.order[i+1:]...)
				break
			}
		}
	}
}

func (t *tracker) partCount(id string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.parts[id]
}

func (t *tracker) status(id string) (artwork.Status, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.statuses[id]
	return st, ok
}

// all returns the statuses in first-seen order
func (t *tracker) all() []artwork.Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]artwork.Status, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.statuses[id])
	}
	return out
}

// wait blocks until cond holds or ctx is done. cond runs under the lock.
func (t *tracker) wait(ctx context.Context, cond func() bool) error {
	for {
		t.mu.Lock()
		if cond() {
			t.mu.Unlock()
			return nil
		}
		changed := t.changed
		t.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
