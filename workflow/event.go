package workflow

import "time"

// EventType identifies a pipeline stage transition.
type EventType string

const (
	// EventValidating fires before the request is checked.
	EventValidating EventType = "validating"

	// EventRequesting fires before the transport call begins.
	EventRequesting EventType = "requesting"

	// EventDecoding fires once a raw response has been received.
	EventDecoding EventType = "decoding"

	// EventPersisting fires before output is written to disk.
	EventPersisting EventType = "persisting"

	// EventUpscaling fires before the chained upscale call begins.
	EventUpscaling EventType = "upscaling"

	// EventDone fires when the pipeline completes successfully.
	EventDone EventType = "done"

	// EventFailed fires when the pipeline stops with an error.
	EventFailed EventType = "failed"
)

// Event represents an observable occurrence during a workflow run.
type Event struct {
	// Type identifies the pipeline stage.
	Type EventType

	// Operation identifies the pipeline ("generate", "upscale", "chat").
	Operation string

	// Path is the output path, when one has been decided.
	Path string

	// Duration is the total elapsed time, set on done and failed events.
	Duration time.Duration

	// Error is set on failed events. Its message is already redacted.
	Error error

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
	}
}
