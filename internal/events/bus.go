package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Bus is an in-process publish/subscribe hub keyed by event type.
// Handlers run synchronously on the emitter's goroutine, so they must
// not block; stream handlers buffer into channels and drop on overflow.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[EventType]map[int]func(*Event)
	log      zerolog.Logger
}

// NewBus creates a new event bus
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[EventType]map[int]func(*Event)),
		log:      log.With().Str("service", "event_bus").Logger(),
	}
}

// Subscribe registers a handler for one event type and returns a
// subscription id usable with Unsubscribe. Callers that live for the
// whole process may ignore the id.
func (b *Bus) Subscribe(eventType EventType, handler func(*Event)) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID

	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make(map[int]func(*Event))
	}
	b.handlers[eventType][id] = handler

	return id
}

// Unsubscribe removes a previously registered handler.
func (b *Bus) Unsubscribe(eventType EventType, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if handlers, ok := b.handlers[eventType]; ok {
		delete(handlers, id)
	}
}

// Emit delivers an event to every handler registered for its type.
func (b *Bus) Emit(eventType EventType, module string, data map[string]interface{}) {
	event := &Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		Module:    module,
	}

	b.mu.RLock()
	handlers := make([]func(*Event), 0, len(b.handlers[eventType]))
	for _, h := range b.handlers[eventType] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}

// SubscriberCount returns the number of handlers registered for a type.
func (b *Bus) SubscriberCount(eventType EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType])
}
