// Package event implements the cancelable, typed event dispatch used by the
// locator controller, plus a non-blocking fan-out for remote observers.
package event

import (
	"sync"
)

// Name identifies an event. Names are dispatched with the Namespace suffix
// when forwarded to the browser.
type Name string

// Namespace is appended to names forwarded to host pages.
const Namespace = "locationsMap"

// Qualified returns the namespaced event name, e.g. "showPopup.locationsMap".
func (n Name) Qualified() string {
	return string(n) + "." + Namespace
}

// Event is a single dispatch. Detail is a pointer to the payload struct of
// the event so listeners may adjust it before the dispatcher reads it back.
type Event struct {
	Name     Name
	Detail   any
	canceled bool
}

// PreventDefault vetoes the transition the event announces.
func (e *Event) PreventDefault() {
	e.canceled = true
}

// Canceled reports whether a listener vetoed the event.
func (e *Event) Canceled() bool {
	return e.canceled
}

// Listener receives events synchronously, in registration order.
type Listener func(e *Event)

// Dispatcher is what adapters need to bubble events back into their owner.
type Dispatcher interface {
	Dispatch(name Name, detail any) bool
}

// Notice is the fan-out copy of a dispatched event.
type Notice struct {
	Name     Name
	Canceled bool
	Detail   any
}

type entry struct {
	id int
	fn Listener
}

// Bus dispatches events to synchronous listeners and forwards a Notice of
// every dispatch to asynchronous subscribers.
type Bus struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[Name][]entry
	subs      map[chan Notice]struct{}
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		listeners: make(map[Name][]entry),
		subs:      make(map[chan Notice]struct{}),
	}
}

// On registers a listener and returns a function removing it.
func (b *Bus) On(name Name, fn Listener) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.listeners[name] = append(b.listeners[name], entry{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.listeners[name]
		for i, e := range list {
			if e.id == id {
				b.listeners[name] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// Dispatch runs every listener for name and reports whether the event was
// allowed, i.e. no listener called PreventDefault.
func (b *Bus) Dispatch(name Name, detail any) bool {
	e := &Event{Name: name, Detail: detail}

	b.mu.RLock()
	list := append([]entry(nil), b.listeners[name]...)
	b.mu.RUnlock()

	for _, l := range list {
		l.fn(e)
	}

	b.publish(Notice{Name: name, Canceled: e.canceled, Detail: detail})
	return !e.canceled
}

// publish sends a notice to all subscribers (non-blocking).
func (b *Bus) publish(n Notice) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- n:
		default:
			// subscriber too slow, skip
		}
	}
}

// Subscribe returns a buffered channel that receives a notice per dispatch.
func (b *Bus) Subscribe() chan Notice {
	ch := make(chan Notice, 64)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(ch chan Notice) {
	b.mu.Lock()
	_, ok := b.subs[ch]
	delete(b.subs, ch)
	b.mu.Unlock()
	if ok {
		close(ch)
	}
}

// Handle registers a listener receiving the payload typed as *T. Events whose
// detail is not a *T are ignored.
func Handle[T any](b *Bus, name Name, fn func(e *Event, detail *T)) func() {
	return b.On(name, func(e *Event) {
		if d, ok := e.Detail.(*T); ok {
			fn(e, d)
		}
	})
}
