package canvas

import (
	"sync"
	"sync/atomic"

	"github.com/inkslate/inkslate/backend-go/internal/geom"
	"github.com/inkslate/inkslate/backend-go/internal/history"
	"github.com/inkslate/inkslate/backend-go/internal/item"
)

// EventKind classifies a change notification.
type EventKind string

const (
	EventAdded   EventKind = "added"
	EventRemoved EventKind = "removed"
	EventUpdated EventKind = "updated"
	EventCleared EventKind = "cleared"
	EventLoaded  EventKind = "loaded"
)

// Event tells a renderer that something changed. Events are hints, not a
// lossless log: a subscriber that falls behind loses the oldest ones, so
// consumers should re-query the dirty region rather than replay items.
type Event struct {
	Kind    EventKind
	Added   []item.Item
	Removed []item.Item
	// Bounds is the dirty region; valid only when HasBounds is set.
	Bounds    geom.Rect
	HasBounds bool
}

// eventFor describes the effect of applying a forward.
func eventFor(a history.Action) Event {
	var ev Event
	var collect func(history.Action)
	collect = func(a history.Action) {
		switch a := a.(type) {
		case history.Add:
			ev.Added = append(ev.Added, a.Items...)
		case history.Remove:
			ev.Removed = append(ev.Removed, a.Items...)
		case history.Replace:
			ev.Removed = append(ev.Removed, a.Removed...)
			ev.Added = append(ev.Added, a.Added...)
		case history.Batch:
			for _, child := range a.Actions {
				collect(child)
			}
		}
	}
	collect(a)

	switch {
	case len(ev.Removed) == 0:
		ev.Kind = EventAdded
	case len(ev.Added) == 0:
		ev.Kind = EventRemoved
	default:
		ev.Kind = EventUpdated
	}
	return ev
}

// Subscription is one consumer's view of the change stream.
type Subscription struct {
	ch      chan Event
	id      uint64
	b       *Broadcaster
	dropped atomic.Uint64
}

// C returns the receive channel. It is closed by Close.
func (s *Subscription) C() <-chan Event { return s.ch }

// Dropped returns how many events were discarded because the buffer was full.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

// Close unregisters the subscription and closes its channel.
func (s *Subscription) Close() { s.b.unsubscribe(s.id) }

// Broadcaster fans events out to subscribers without ever blocking the
// publisher. When a subscriber's buffer is full its oldest pending event is
// discarded to make room.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[uint64]*Subscription
	next uint64
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[uint64]*Subscription)}
}

// Subscribe registers a subscriber with the given buffer size (minimum 1).
func (b *Broadcaster) Subscribe(buffer int) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	s := &Subscription{ch: make(chan Event, max(1, buffer)), id: b.next, b: b}
	b.subs[s.id] = s
	return s
}

func (b *Broadcaster) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(s.ch)
	}
}

// Publish delivers ev to every subscriber, dropping oldest on overflow.
func (b *Broadcaster) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, s := range b.subs {
		select {
		case s.ch <- ev:
			continue
		default:
		}
		select {
		case <-s.ch:
			s.dropped.Add(1)
		default:
		}
		select {
		case s.ch <- ev:
		default:
			s.dropped.Add(1)
		}
	}
}

// Len returns the number of live subscriptions.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
