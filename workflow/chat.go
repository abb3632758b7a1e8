package workflow

import (
	"context"
	"net/http"
	"time"

	"github.com/Fayeblade1488/venicebridge"
	"github.com/Fayeblade1488/venicebridge/decode"
	"github.com/Fayeblade1488/venicebridge/registry"
	"github.com/Fayeblade1488/venicebridge/transport"
)

// chatPath is the OpenAI-compatible completion endpoint.
const chatPath = "/chat/completions"

// Dialer builds a transport for a resolved provider configuration.
type Dialer func(cfg venicebridge.ProviderConfig) (Transport, error)

// Chatter runs chat completions against providers resolved from a
// registry, through the same transport and decode path as image
// generation.
type Chatter struct {
	reg    *registry.Registry
	dial   Dialer
	events chan<- Event
	now    func() time.Time
}

// ChatterOption configures a Chatter.
type ChatterOption func(*Chatter)

// WithDialer replaces the transport factory. The default builds a
// transport.Client from the resolved provider configuration.
func WithDialer(dial Dialer) ChatterOption {
	return func(c *Chatter) { c.dial = dial }
}

// WithChatEvents sets a channel for pipeline stage events.
func WithChatEvents(ch chan<- Event) ChatterOption {
	return func(c *Chatter) { c.events = ch }
}

// NewChatter creates a chat pipeline over the given provider registry.
func NewChatter(reg *registry.Registry, opts ...ChatterOption) *Chatter {
	c := &Chatter{
		reg: reg,
		dial: func(cfg venicebridge.ProviderConfig) (Transport, error) {
			return transport.NewClient(cfg)
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Chat runs one completion: resolve the provider, check the model against
// its configured list, call the endpoint, decode. The returned result is
// always non-nil.
func (c *Chatter) Chat(ctx context.Context, req venicebridge.ChatRequest) *venicebridge.ChatResult {
	start := c.now()

	emit(c.events, Event{Type: EventValidating, Operation: "chat"})
	if err := req.Validate(); err != nil {
		return c.fail(start, err)
	}

	cfg, err := c.reg.Resolve(req.Provider)
	if err != nil {
		return c.fail(start, err)
	}
	if !c.reg.HasModel(req.Provider, req.Model) {
		return c.fail(start, venicebridge.NewValidationError("model",
			"not offered by provider "+req.Provider))
	}

	tp, err := c.dial(cfg)
	if err != nil {
		return c.fail(start, err)
	}

	body := map[string]any{
		"model":    req.Model,
		"messages": req.Messages,
	}
	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}

	emit(c.events, Event{Type: EventRequesting, Operation: "chat"})
	raw, err := tp.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   chatPath,
		Body:   body,
	})
	if err != nil {
		return c.fail(start, err)
	}

	emit(c.events, Event{Type: EventDecoding, Operation: "chat"})
	payload, err := decode.Chat(raw)
	if err != nil {
		return c.fail(start, err)
	}

	emit(c.events, Event{Type: EventDone, Operation: "chat", Duration: c.now().Sub(start)})
	return &venicebridge.ChatResult{
		Success:      true,
		Text:         payload.Text,
		FinishReason: payload.FinishReason,
		Usage:        payload.Usage,
		RequestID:    raw.RequestID,
	}
}

func (c *Chatter) fail(start time.Time, err error) *venicebridge.ChatResult {
	emit(c.events, Event{
		Type:      EventFailed,
		Operation: "chat",
		Duration:  c.now().Sub(start),
		Error:     redactedError(err),
	})
	return &venicebridge.ChatResult{Err: err}
}
