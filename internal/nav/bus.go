package nav

import (
	"fmt"
	"sync"
	"time"

	"artgrab/internal/scope"
	"artgrab/pkg/logger"
)

// Handler receives navigation events
type Handler func(Event)

// Subscription is one handler registration on a Bus
type Subscription struct {
	bus     *Bus
	kind    Kind
	handler Handler
	sc      *scope.Scope
	once    sync.Once

	removed bool // guarded by bus.mu
}

// Unsubscribe removes the handler. Calling it again is a no-op.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		b := s.bus
		b.mu.Lock()
		defer b.mu.Unlock()

		s.removed = true
		list := b.subs[s.kind]
		for i, other := range list {
			if other == s {
				b.subs[s.kind] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
	})
}

// Bus dispatches events synchronously in subscription order. A Publish made
// while an event is being dispatched is queued and dispatched once the
// current event has reached every handler, so publish order is preserved.
type Bus struct {
	mu          sync.Mutex
	subs        map[Kind][]*Subscription
	queue       []Event
	dispatching bool
	seq         uint64
	now         func() time.Time
	log         logger.Logger
}

// NewBus creates an empty bus
func NewBus(log logger.Logger) *Bus {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Bus{
		subs: make(map[Kind][]*Subscription),
		now:  time.Now,
		log:  log,
	}
}

// Subscribe registers h for events of kind
func (b *Bus) Subscribe(kind Kind, h Handler) *Subscription {
	return b.SubscribeScoped(kind, h, nil)
}

// SubscribeScoped registers h until sc is cancelled. The handler is never
// invoked once sc is inactive.
func (b *Bus) SubscribeScoped(kind Kind, h Handler, sc *scope.Scope) *Subscription {
	s := &Subscription{bus: b, kind: kind, handler: h, sc: sc}

	b.mu.Lock()
	b.subs[kind] = append(b.subs[kind], s)
	b.mu.Unlock()

	if sc != nil {
		sc.OnCancel(s.Unsubscribe)
	}
	return s
}

// Publish emits an event of kind for location
func (b *Bus) Publish(kind Kind, location string) {
	b.mu.Lock()
	b.seq++
	b.queue = append(b.queue, Event{Kind: kind, Location: location, At: b.now(), Seq: b.seq})
	if b.dispatching {
		b.mu.Unlock()
		return
	}
	b.dispatching = true
	b.mu.Unlock()

	for {
		b.mu.Lock()
		if len(b.queue) == 0 {
			b.dispatching = false
			b.mu.Unlock()
			return
		}
		ev := b.queue[0]
		b.queue = b.queue[1:]
		snapshot := append([]*Subscription(nil), b.subs[ev.Kind]...)
		b.mu.Unlock()

		for _, s := range snapshot {
			b.deliver(s, ev)
		}
	}
}

func (b *Bus) deliver(s *Subscription, ev Event) {
	b.mu.Lock()
	removed := s.removed
	b.mu.Unlock()
	if removed || (s.sc != nil && !s.sc.Active()) {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			b.log.ErrorWithFields("Navigation handler panicked", map[string]interface{}{
				"kind":  ev.Kind.String(),
				"panic": fmt.Sprint(r),
			})
		}
	}()
	s.handler(ev)
}

// SubscriberCount returns the number of live subscriptions for kind
func (b *Bus) SubscriberCount(kind Kind) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[kind])
}
