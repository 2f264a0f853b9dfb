package authevents

import (
	"sync"

	"github.com/google/uuid"

	"github.com/the-holiday/member-portal-api/internal/ports/out/identity"
)

// Bus fans identity events out to listeners registered for an access token.
// It is safe for concurrent use. Listeners are invoked outside the lock, in
// registration order, on the publisher's goroutine.
type Bus struct {
	mu        sync.RWMutex
	listeners map[string]map[string]identity.Listener
	order     map[string][]string
}

func NewBus() *Bus {
	return &Bus{
		listeners: make(map[string]map[string]identity.Listener),
		order:     make(map[string][]string),
	}
}

type subscription struct {
	bus   *Bus
	token string
	id    string
	once  sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() { s.bus.remove(s.token, s.id) })
}

// Subscribe registers l for events published under token.
func (b *Bus) Subscribe(token string, l identity.Listener) identity.Subscription {
	id := uuid.NewString()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listeners[token] == nil {
		b.listeners[token] = make(map[string]identity.Listener)
	}
	b.listeners[token][id] = l
	b.order[token] = append(b.order[token], id)
	return &subscription{bus: b, token: token, id: id}
}

// Publish delivers ev to every listener currently registered under token.
func (b *Bus) Publish(token string, ev identity.Event) {
	b.mu.RLock()
	ids := b.order[token]
	targets := make([]identity.Listener, 0, len(ids))
	for _, id := range ids {
		if l, ok := b.listeners[token][id]; ok {
			targets = append(targets, l)
		}
	}
	b.mu.RUnlock()

	for _, l := range targets {
		l(ev)
	}
}

// Len returns the number of listeners registered under token.
func (b *Bus) Len(token string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[token])
}

func (b *Bus) remove(token, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.listeners[token], id)
	ids := b.order[token]
	for i, v := range ids {
		if v == id {
			b.order[token] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(b.listeners[token]) == 0 {
		delete(b.listeners, token)
		delete(b.order, token)
	}
}
