package events

import "time"

// EventType represents different types of events in the system
type EventType string

const (
	// Extraction lifecycle
	EventTypeExtractionStarted   EventType = "extraction.started"
	EventTypeExtractionCompleted EventType = "extraction.completed"
	EventTypeExtractionFailed    EventType = "extraction.failed"
	EventTypeExtractionCancelled EventType = "extraction.cancelled"

	// Capture progress
	EventTypeScrollProgress EventType = "scroll.progress"
	EventTypeScrollFinished EventType = "scroll.finished"

	// Collaborators
	EventTypeOCRCompleted    EventType = "ocr.completed"
	EventTypeExportCompleted EventType = "export.completed"
	EventTypeRosterChanged   EventType = "roster.changed"
	EventTypeConfigChanged   EventType = "config.changed"

	// Error events
	EventTypeError EventType = "error"
)

// AllEventTypes lists every event type, in declaration order.
var AllEventTypes = []EventType{
	EventTypeExtractionStarted,
	EventTypeExtractionCompleted,
	EventTypeExtractionFailed,
	EventTypeExtractionCancelled,
	EventTypeScrollProgress,
	EventTypeScrollFinished,
	EventTypeOCRCompleted,
	EventTypeExportCompleted,
	EventTypeRosterChanged,
	EventTypeConfigChanged,
	EventTypeError,
}

// Event represents a system event with metadata
type Event struct {
	Type      EventType              // Type of event
	Source    string                 // Component that emitted event (e.g., "scroll", "pipeline")
	Timestamp time.Time              // When the event occurred
	Data      map[string]interface{} // Event-specific data
}

// EventHandler is a function that processes an event
type EventHandler func(Event)

// SubscriptionID uniquely identifies a subscription
type SubscriptionID int64

// Publisher is the producer side of the bus.
type Publisher interface {
	Publish(event Event)
}

// EventBus defines the interface for event pub/sub
type EventBus interface {
	Publisher

	// Subscribe registers a handler for a specific event type
	Subscribe(eventType EventType, handler EventHandler) SubscriptionID

	// Unsubscribe removes a subscription by ID
	Unsubscribe(id SubscriptionID)

	// Stop stops the event bus and drains remaining events
	Stop()
}

// Discard is a Publisher that drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(Event) {}

// Helper functions to create common events

// NewExtractionStartedEvent creates an extraction started event
func NewExtractionStartedEvent(extractor, windowTitle string) Event {
	return Event{
		Type:      EventTypeExtractionStarted,
		Source:    "pipeline",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"extractor":    extractor,
			"window_title": windowTitle,
		},
	}
}

// NewExtractionCompletedEvent creates an extraction completed event
func NewExtractionCompletedEvent(extractor, outputPath string, rows int, duration time.Duration) Event {
	return Event{
		Type:      EventTypeExtractionCompleted,
		Source:    "pipeline",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"extractor":   extractor,
			"output_path": outputPath,
			"rows":        rows,
			"duration_ms": duration.Milliseconds(),
		},
	}
}

// NewExtractionFailedEvent creates an extraction failed event
func NewExtractionFailedEvent(extractor string, err error) Event {
	return Event{
		Type:      EventTypeExtractionFailed,
		Source:    "pipeline",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"extractor": extractor,
			"error":     err.Error(),
		},
	}
}

// NewExtractionCancelledEvent creates an extraction cancelled event
func NewExtractionCancelledEvent(extractor string) Event {
	return Event{
		Type:      EventTypeExtractionCancelled,
		Source:    "pipeline",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"extractor": extractor,
		},
	}
}

// NewScrollProgressEvent reports one iteration of the capture loop
func NewScrollProgressEvent(scroll, maxScrolls int, score float64, offset int, merged bool) Event {
	return Event{
		Type:      EventTypeScrollProgress,
		Source:    "scroll",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"scroll":      scroll,
			"max_scrolls": maxScrolls,
			"score":       score,
			"offset":      offset,
			"merged":      merged,
		},
	}
}

// NewScrollFinishedEvent creates a capture finished event
func NewScrollFinishedEvent(scrolls, merges, height int, converged bool) Event {
	return Event{
		Type:      EventTypeScrollFinished,
		Source:    "scroll",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"scrolls":   scrolls,
			"merges":    merges,
			"height":    height,
			"converged": converged,
		},
	}
}

// NewOCRCompletedEvent creates an OCR completed event
func NewOCRCompletedEvent(backend string, tokens int) Event {
	return Event{
		Type:      EventTypeOCRCompleted,
		Source:    "ocr",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"backend": backend,
			"tokens":  tokens,
		},
	}
}

// NewExportCompletedEvent creates an export completed event
func NewExportCompletedEvent(path, sheet string, rows, copiedSheets int) Event {
	return Event{
		Type:      EventTypeExportCompleted,
		Source:    "excel",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"path":          path,
			"sheet":         sheet,
			"rows":          rows,
			"copied_sheets": copiedSheets,
		},
	}
}

// NewRosterChangedEvent creates a roster changed event
func NewRosterChangedEvent(members int) Event {
	return Event{
		Type:      EventTypeRosterChanged,
		Source:    "roster",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"members": members,
		},
	}
}

// NewConfigChangedEvent creates a config changed event
func NewConfigChangedEvent(path string) Event {
	return Event{
		Type:      EventTypeConfigChanged,
		Source:    "config",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"path": path,
		},
	}
}

// NewErrorEvent creates an error event
func NewErrorEvent(source, component string, err error, metadata map[string]interface{}) Event {
	data := map[string]interface{}{
		"source":    source,
		"component": component,
		"error":     err.Error(),
	}

	// Merge metadata
	for k, v := range metadata {
		data[k] = v
	}

	return Event{
		Type:      EventTypeError,
		Source:    source,
		Timestamp: time.Now(),
		Data:      data,
	}
}
