package event

import (
	"reflect"
	"sync"
)

// Bus is a synchronous typed event bus. Publish delivers to every handler
// subscribed for the event's type before it returns; nothing is queued.
type Bus struct {
	mu       sync.Mutex // only protects handler registration
	handlers map[reflect.Type][]any
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[reflect.Type][]any),
	}
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.handlers[t] = append(b.handlers[t], fn)
}

// Publish delivers event to the handlers registered for T, in subscription
// order. A nil bus drops the event.
func Publish[T any](b *Bus, event T) {
	if b == nil {
		return
	}
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.mu.Lock()
	handlers := b.handlers[t]
	b.mu.Unlock()
	for _, h := range handlers {
		// Safe: Subscribe and Publish use the same type key.
		h.(func(T))(event)
	}
}
