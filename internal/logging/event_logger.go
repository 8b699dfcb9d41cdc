package logging

import (
	"fmt"

	"jordanella.com/noruhunter-go/internal/events"
)

// EventLogger subscribes to the event bus and logs every event.
type EventLogger struct {
	logger          *Logger
	eventBus        *events.DefaultEventBus
	subscriptionIDs []events.SubscriptionID
}

// NewEventLogger attaches an event logger to bus.
func NewEventLogger(bus *events.DefaultEventBus, logger *Logger) *EventLogger {
	el := &EventLogger{
		logger:   logger,
		eventBus: bus,
	}
	el.subscriptionIDs = bus.SubscribeAll(el.handleEvent)
	return el
}

// handleEvent handles incoming events and logs them
func (el *EventLogger) handleEvent(event events.Event) {
	context := map[string]interface{}{
		"source": event.Source,
	}
	for k, v := range event.Data {
		context[k] = v
	}

	msg := fmt.Sprintf("Event: %s", event.Type)
	switch event.Type {
	case events.EventTypeScrollProgress:
		el.logger.DebugWithContext(msg, context)
	case events.EventTypeExtractionFailed, events.EventTypeError:
		el.logger.WarnWithContext(msg, context)
	default:
		el.logger.InfoWithContext(msg, context)
	}
}

// Close detaches the logger from the bus
func (el *EventLogger) Close() {
	for _, id := range el.subscriptionIDs {
		el.eventBus.Unsubscribe(id)
	}
	el.subscriptionIDs = nil
}
