// Package events distributes engine events, such as preview updates and
// parsed directives, to live subscribers.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is one published occurrence.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Session   string    `json:"session,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Event types
const (
	EventTypePreviewUpdated  = "preview_updated"
	EventTypeDirectiveParsed = "directive_parsed"
	EventTypeDocumentPatched = "document_patched"
	EventTypeError           = "error"
)

// subscriberBuffer is how many events a slow subscriber may fall behind
// before it starts missing them.
const subscriberBuffer = 100

// EventBus fans events out to named subscribers. Publishing never blocks:
// a subscriber whose buffer is full misses the event.
type EventBus struct {
	subscribers map[string]chan Event
	mutex       sync.RWMutex
	closed      bool
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string]chan Event),
	}
}

// Subscribe adds a subscriber. Subscribing again under the same name
// replaces, and closes, the previous channel.
func (eb *EventBus) Subscribe(name string) <-chan Event {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if eb.closed {
		close(ch)
		return ch
	}
	if old, exists := eb.subscribers[name]; exists {
		close(old)
	}
	eb.subscribers[name] = ch
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (eb *EventBus) Unsubscribe(name string) {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	if ch, exists := eb.subscribers[name]; exists {
		delete(eb.subscribers, name)
		close(ch)
	}
}

// SubscriberCount returns the number of subscribers.
func (eb *EventBus) SubscriberCount() int {
	eb.mutex.RLock()
	defer eb.mutex.RUnlock()
	return len(eb.subscribers)
}

// Publish broadcasts an event to all subscribers and returns it.
func (eb *EventBus) Publish(eventType, session string, data any) Event {
	event := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Session:   session,
		Timestamp: time.Now(),
		Data:      data,
	}

	// the read lock keeps Unsubscribe from closing a channel mid-send
	eb.mutex.RLock()
	defer eb.mutex.RUnlock()
	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
	return event
}

// Close closes every subscriber channel. Later subscriptions get a closed
// channel.
func (eb *EventBus) Close() {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	for name, ch := range eb.subscribers {
		delete(eb.subscribers, name)
		close(ch)
	}
	eb.closed = true
}

// PreviewUpdatedEvent carries a new streamed fragment.
func PreviewUpdatedEvent(fragment string, bytesSeen int) map[string]interface{} {
	return map[string]interface{}{
		"fragment":   fragment,
		"bytes_seen": bytesSeen,
	}
}

// DirectiveParsedEvent summarises a finished response.
func DirectiveParsedEvent(operation, message string, directives int, fellBack bool) map[string]interface{} {
	return map[string]interface{}{
		"operation":  operation,
		"message":    message,
		"directives": directives,
		"fell_back":  fellBack,
	}
}

// DocumentPatchedEvent reports an applied edit.
func DocumentPatchedEvent(pageID string, revision int64, matched bool) map[string]interface{} {
	return map[string]interface{}{
		"page_id":  pageID,
		"revision": revision,
		"matched":  matched,
	}
}

// ErrorEvent creates an error event
func ErrorEvent(message string, err error) map[string]interface{} {
	return map[string]interface{}{
		"message": message,
		"error":   err.Error(),
	}
}
