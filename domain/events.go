package domain

import "sync"

// ChangeKind names a slice of core state the view layer may want to watch.
type ChangeKind string

const (
	SessionChanged    ChangeKind = "session"
	PropertiesChanged ChangeKind = "properties"
	FavoritesChanged  ChangeKind = "favorites"
	InquiriesChanged  ChangeKind = "inquiries"
)

// ChangeBus is the subscription mechanism the services publish on after
// every mutation. Handlers run synchronously on the publishing call.
type ChangeBus struct {
	mu   sync.Mutex
	next int
	subs map[int]func(ChangeKind)
}

func NewChangeBus() *ChangeBus {
	return &ChangeBus{subs: make(map[int]func(ChangeKind))}
}

// Subscribe registers a handler and returns its unsubscribe function.
func (bus *ChangeBus) Subscribe(handler func(ChangeKind)) func() {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	id := bus.next
	bus.next++
	bus.subs[id] = handler

	return func() {
		bus.mu.Lock()
		defer bus.mu.Unlock()
		delete(bus.subs, id)
	}
}

func (bus *ChangeBus) Publish(kind ChangeKind) {
	bus.mu.Lock()
	handlers := make([]func(ChangeKind), 0, len(bus.subs))
	for _, handler := range bus.subs {
		handlers = append(handlers, handler)
	}
	bus.mu.Unlock()

	for _, handler := range handlers {
		handler(kind)
	}
}
