// Package catalog fetches and caches a provider's model list and derives
// capability classifications from it.
//
// The cache is owned by the Catalog value, not package state, so tests and
// concurrent workers can substitute a fresh instance. It is populated
// lazily on the first request and invalidated only by explicit Refresh;
// the model list changes rarely enough that a stale-for-one-session value
// beats another network round trip.
package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/Fayeblade1488/venicebridge"
	"github.com/Fayeblade1488/venicebridge/transport"
)

// DefaultUncensoredKeywords classify a model as unrestricted-content when
// any of them appears in its id or display name.
var DefaultUncensoredKeywords = []string{"uncensored", "flux-dev", "lustify"}

// Transport executes catalog requests. *transport.Client satisfies it.
type Transport interface {
	Do(ctx context.Context, req transport.Request) (*transport.RawResponse, error)
	Provider() venicebridge.ProviderConfig
}

// Catalog is a process-wide, read-mostly cache of a provider's models.
// Safe for concurrent use.
type Catalog struct {
	mu       sync.RWMutex
	tp       Transport
	keywords []string
	models   []venicebridge.ModelEntry
	loaded   bool
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithUncensoredKeywords replaces the default classification substrings.
func WithUncensoredKeywords(keywords []string) Option {
	return func(c *Catalog) { c.keywords = keywords }
}

// New creates a catalog backed by the given transport.
func New(tp Transport, opts ...Option) *Catalog {
	c := &Catalog{
		tp:       tp,
		keywords: DefaultUncensoredKeywords,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List returns the provider's models in catalog order, fetching them on
// the first call and serving the cache afterwards. Callers receive a copy
// and may mutate it freely.
func (c *Catalog) List(ctx context.Context) ([]venicebridge.ModelEntry, error) {
	c.mu.RLock()
	if c.loaded {
		models := copyModels(c.models)
		c.mu.RUnlock()
		return models, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return copyModels(c.models), nil
	}

	models, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.models = models
	c.loaded = true
	return copyModels(models), nil
}

func copyModels(models []venicebridge.ModelEntry) []venicebridge.ModelEntry {
	out := make([]venicebridge.ModelEntry, len(models))
	copy(out, models)
	return out
}

// Refresh forces a new fetch, replacing the cache on success.
func (c *Catalog) Refresh(ctx context.Context) ([]venicebridge.ModelEntry, error) {
	models, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.models = models
	c.loaded = true
	c.mu.Unlock()
	return copyModels(models), nil
}

// Uncensored returns the cached models classified as unrestricted-content.
func (c *Catalog) Uncensored(ctx context.Context) ([]venicebridge.ModelEntry, error) {
	all, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []venicebridge.ModelEntry
	for _, m := range all {
		if m.IsUncensored() {
			out = append(out, m)
		}
	}
	return out, nil
}

// modelsResponse is the provider /models shape.
type modelsResponse struct {
	Data []struct {
		ID        string `json:"id"`
		Type      string `json:"type"`
		ModelSpec struct {
			Name                   string          `json:"name"`
			AvailableContextTokens int             `json:"availableContextTokens"`
			Capabilities           map[string]bool `json:"capabilities"`
		} `json:"model_spec"`
	} `json:"data"`
}

func (c *Catalog) fetch(ctx context.Context) ([]venicebridge.ModelEntry, error) {
	raw, err := c.tp.Do(ctx, transport.Request{Method: http.MethodGet, Path: "/models"})
	if err != nil {
		return nil, err
	}

	var resp modelsResponse
	if err := json.Unmarshal(raw.Body, &resp); err != nil {
		return nil, venicebridge.NewDecodeError("model list response is not valid JSON", err)
	}

	models := make([]venicebridge.ModelEntry, 0, len(resp.Data))
	for _, m := range resp.Data {
		entry := venicebridge.ModelEntry{
			ID:            m.ID,
			DisplayName:   m.ModelSpec.Name,
			ContextTokens: m.ModelSpec.AvailableContextTokens,
			Type:          m.Type,
		}
		entry.CapabilityTags = c.classify(entry, m.ModelSpec.Capabilities)
		models = append(models, entry)
	}
	return models, nil
}

// capabilityFlags maps provider capability names to catalog tags.
var capabilityFlags = map[string]string{
	"supportsVision":          venicebridge.TagVision,
	"supportsFunctionCalling": venicebridge.TagTools,
	"supportsWebSearch":       venicebridge.TagWebSearch,
	"supportsReasoning":       venicebridge.TagReasoning,
}

// capabilityOrder keeps derived tags deterministic.
var capabilityOrder = []string{
	"supportsVision",
	"supportsFunctionCalling",
	"supportsWebSearch",
	"supportsReasoning",
}

// classify derives capability tags for an entry. The uncensored match is
// case-insensitive substring against id and display name; the first
// matching keyword wins and yields a single tag.
func (c *Catalog) classify(entry venicebridge.ModelEntry, caps map[string]bool) []string {
	var tags []string

	id := strings.ToLower(entry.ID)
	name := strings.ToLower(entry.DisplayName)
	for _, keyword := range c.keywords {
		if strings.Contains(id, keyword) || strings.Contains(name, keyword) {
			tags = append(tags, venicebridge.TagUncensored)
			break
		}
	}

	for _, flag := range capabilityOrder {
		if caps[flag] {
			tags = append(tags, capabilityFlags[flag])
		}
	}
	return tags
}
