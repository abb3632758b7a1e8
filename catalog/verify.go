package catalog

import (
	"context"
	"net/http"

	"github.com/Fayeblade1488/venicebridge"
	"github.com/Fayeblade1488/venicebridge/transport"
)

// KeyStatus reports the outcome of an API key verification probe.
type KeyStatus struct {
	Valid      bool
	StatusCode int
	RequestID  string
	Message    string
}

// VerifyKey checks the provider credential with a minimal chat probe.
// A 200 means the key works; a 400 means the request was rejected on
// validation but the key itself was accepted; a 401 means the key is
// invalid. Anything else is surfaced as the transport error it is.
func (c *Catalog) VerifyKey(ctx context.Context) (*KeyStatus, error) {
	model := c.tp.Provider().DefaultModel
	if model == "" {
		model = "venice-uncensored"
	}

	probe := map[string]any{
		"model":       model,
		"messages":    []map[string]string{{"role": "user", "content": "test"}},
		"temperature": 0.1,
		"max_tokens":  5,
	}

	raw, err := c.tp.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/chat/completions",
		Body:   probe,
	})
	if err == nil {
		return &KeyStatus{
			Valid:      true,
			StatusCode: raw.StatusCode,
			RequestID:  raw.RequestID,
			Message:    "API key is valid",
		}, nil
	}

	switch code := venicebridge.StatusCodeOf(err); code {
	case http.StatusBadRequest:
		// The request was rejected on validation, so the key was accepted.
		return &KeyStatus{Valid: true, StatusCode: code, Message: "API key is valid"}, nil
	case http.StatusUnauthorized:
		return &KeyStatus{Valid: false, StatusCode: code, Message: "Invalid API key"}, nil
	default:
		return nil, err
	}
}
