package gui

import (
	"sync"

	"fyne.io/fyne/v2"

	"jordanella.com/noruhunter-go/internal/events"
)

// EventBus forwards domain events to UI handlers on the fyne main goroutine.
// Handlers may touch widgets directly.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[events.EventType][]events.EventHandler
	source   *events.DefaultEventBus
	subIDs   []events.SubscriptionID

	// run schedules fn on the UI goroutine
	run func(fn func())
}

// NewEventBus creates a bus that dispatches through fyne.Do
func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[events.EventType][]events.EventHandler),
		run:      fyne.Do,
	}
}

// Subscribe registers a UI handler for an event type
func (eb *EventBus) Subscribe(eventType events.EventType, handler events.EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
}

// Attach starts forwarding every event published on bus.
func (eb *EventBus) Attach(bus *events.DefaultEventBus) {
	eb.Detach()
	eb.mu.Lock()
	eb.source = bus
	eb.mu.Unlock()
	ids := bus.SubscribeAll(eb.forward)
	eb.mu.Lock()
	eb.subIDs = ids
	eb.mu.Unlock()
}

// Detach stops forwarding
func (eb *EventBus) Detach() {
	eb.mu.Lock()
	source, ids := eb.source, eb.subIDs
	eb.source, eb.subIDs = nil, nil
	eb.mu.Unlock()

	for _, id := range ids {
		source.Unsubscribe(id)
	}
}

func (eb *EventBus) forward(event events.Event) {
	eb.mu.RLock()
	handlers := append([]events.EventHandler(nil), eb.handlers[event.Type]...)
	eb.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}
	eb.run(func() {
		for _, handler := range handlers {
			handler(event)
		}
	})
}
