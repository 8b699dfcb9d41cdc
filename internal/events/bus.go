package events

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// subscription represents a single event subscription
type subscription struct {
	id      SubscriptionID
	handler EventHandler
}

// DefaultEventBus delivers events in publish order on a single dispatcher goroutine.
// Handlers must not block; slow work belongs on the handler's own goroutine.
type DefaultEventBus struct {
	// Subscriber management
	subscribers map[EventType][]subscription
	mu          sync.RWMutex

	// Event queue
	eventQueue chan Event
	stopCh     chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup

	// Subscription ID generator
	nextSubID atomic.Int64
	dropped   atomic.Int64
}

// NewEventBus creates a new event bus with specified buffer size
func NewEventBus(bufferSize int) *DefaultEventBus {
	bus := &DefaultEventBus{
		subscribers: make(map[EventType][]subscription),
		eventQueue:  make(chan Event, bufferSize),
		stopCh:      make(chan struct{}),
	}

	bus.wg.Add(1)
	go bus.processEvents()

	return bus
}

// Subscribe registers a handler for a specific event type
func (eb *DefaultEventBus) Subscribe(eventType EventType, handler EventHandler) SubscriptionID {
	subID := SubscriptionID(eb.nextSubID.Add(1))

	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscription{
		id:      subID,
		handler: handler,
	})

	return subID
}

// SubscribeAll registers one handler for every known event type.
func (eb *DefaultEventBus) SubscribeAll(handler EventHandler) []SubscriptionID {
	ids := make([]SubscriptionID, 0, len(AllEventTypes))
	for _, t := range AllEventTypes {
		ids = append(ids, eb.Subscribe(t, handler))
	}
	return ids
}

// Unsubscribe removes a subscription by ID
func (eb *DefaultEventBus) Unsubscribe(id SubscriptionID) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for eventType, subs := range eb.subscribers {
		for i, sub := range subs {
			if sub.id == id {
				eb.subscribers[eventType] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish queues an event, blocking while the queue is full
func (eb *DefaultEventBus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case <-eb.stopCh:
		eb.dropped.Add(1)
		return
	default:
	}

	select {
	case eb.eventQueue <- event:
	case <-eb.stopCh:
		eb.dropped.Add(1)
	}
}

// Stop stops the event bus and drains remaining events
func (eb *DefaultEventBus) Stop() {
	eb.stopOnce.Do(func() { close(eb.stopCh) })
	eb.wg.Wait()
}

// processEvents runs in a goroutine and dispatches events to handlers
func (eb *DefaultEventBus) processEvents() {
	defer eb.wg.Done()

	for {
		select {
		case event := <-eb.eventQueue:
			eb.dispatch(event)

		case <-eb.stopCh:
			for {
				select {
				case event := <-eb.eventQueue:
					eb.dispatch(event)
				default:
					return
				}
			}
		}
	}
}

// dispatch sends an event to all registered handlers
func (eb *DefaultEventBus) dispatch(event Event) {
	eb.mu.RLock()
	subs := eb.subscribers[event.Type]
	handlers := make([]EventHandler, len(subs))
	for i, sub := range subs {
		handlers[i] = sub.handler
	}
	eb.mu.RUnlock()

	for _, handler := range handlers {
		eb.safeHandlerCall(handler, event)
	}
}

// safeHandlerCall calls a handler with panic recovery
func (eb *DefaultEventBus) safeHandlerCall(handler EventHandler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "[EventBus] Handler panic for event %v: %v\n", event.Type, r)
		}
	}()

	handler(event)
}

// GetSubscriberCount returns the number of subscribers for an event type
func (eb *DefaultEventBus) GetSubscriberCount(eventType EventType) int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	return len(eb.subscribers[eventType])
}

// Dropped returns how many events were published after Stop.
func (eb *DefaultEventBus) Dropped() int64 {
	return eb.dropped.Load()
}

// Recorder is a synchronous Publisher that keeps every event. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish implements Publisher
func (r *Recorder) Publish(event Event) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events, optionally filtered by type.
func (r *Recorder) Events(types ...EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Event
	for _, e := range r.events {
		if len(types) == 0 {
			out = append(out, e)
			continue
		}
		for _, t := range types {
			if e.Type == t {
				out = append(out, e)
				break
			}
		}
	}
	return out
}
