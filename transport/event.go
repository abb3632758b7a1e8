package transport

import (
	"time"

	"github.com/Fayeblade1488/venicebridge/retry"
)

// EventType identifies the kind of event occurring during transport operations.
type EventType string

const (
	// EventRequestStart fires before a logical call begins.
	EventRequestStart EventType = "request_start"

	// EventRequestComplete fires after a call completes successfully.
	EventRequestComplete EventType = "request_complete"

	// EventRequestError fires when a call fails after all retries.
	EventRequestError EventType = "request_error"

	// EventRetry fires for each underlying retry event.
	EventRetry EventType = "retry"
)

// Event represents an observable occurrence during transport operations.
// Error text attached to events has been redacted before emission.
type Event struct {
	// Type identifies the kind of event.
	Type EventType

	// Method and URL identify the call.
	Method string
	URL    string

	// CorrelationID is the locally generated id for this logical call.
	CorrelationID string

	// RequestID is the server-assigned request id, when known.
	RequestID string

	// StatusCode is set for completed calls.
	StatusCode int

	// Attempts is the number of attempts consumed.
	Attempts int

	// Duration is the elapsed time for the whole call including backoff.
	Duration time.Duration

	// Error contains the terminal error for EventRequestError.
	Error error

	// RetryEvent contains the underlying retry event for EventRetry.
	RetryEvent *retry.Event

	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// emit sends an event with timestamp to the channel without blocking.
func emit(ch chan<- Event, event Event) {
	if ch == nil {
		return
	}
	event.Timestamp = time.Now()
	select {
	case ch <- event:
	default:
		// Channel full - don't block
	}
}
