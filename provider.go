package venicebridge

import (
	"fmt"
	"strings"
	"time"
)

// Venice API defaults, matching the hosted service.
const (
	VeniceBaseURL      = "https://api.venice.ai/api/v1"
	VeniceDefaultModel = "flux-dev-uncensored"

	DefaultConnectTimeout = 10 * time.Second
	DefaultReadTimeout    = 120 * time.Second
)

// ProviderConfig identifies an external HTTP provider and how to reach it.
// It is constructed once at startup and never mutated; the auth key is
// opaque and excluded from String output.
type ProviderConfig struct {
	ID           string
	Name         string
	BaseURL      string
	AuthKey      string
	DefaultModel string

	// ConnectTimeout bounds connection establishment; ReadTimeout bounds
	// the full request/response exchange. Both are mandatory: a config
	// with either unset is rejected before any call is made.
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

// Venice returns the provider configuration for the hosted Venice.ai API.
func Venice(authKey string) ProviderConfig {
	return ProviderConfig{
		ID:             "venice",
		Name:           "Venice.ai",
		BaseURL:        VeniceBaseURL,
		AuthKey:        authKey,
		DefaultModel:   VeniceDefaultModel,
		ConnectTimeout: DefaultConnectTimeout,
		ReadTimeout:    DefaultReadTimeout,
	}
}

// Validate reports the first problem that would make the config unusable.
func (c ProviderConfig) Validate() error {
	if c.BaseURL == "" {
		return NewValidationError("base_url", "must not be empty")
	}
	if c.AuthKey == "" {
		return NewValidationError("auth_key", "not provided; set VENICE_API_KEY or pass --api-key")
	}
	if c.ConnectTimeout <= 0 {
		return NewValidationError("connect_timeout", "must be positive")
	}
	if c.ReadTimeout <= 0 {
		return NewValidationError("read_timeout", "must be positive")
	}
	return nil
}

// Endpoint joins a path onto the provider base URL.
func (c ProviderConfig) Endpoint(path string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// String describes the provider without exposing the auth key.
func (c ProviderConfig) String() string {
	key := "unset"
	if c.AuthKey != "" {
		key = "[REDACTED]"
	}
	return fmt.Sprintf("provider %s (%s) key=%s", c.ID, c.BaseURL, key)
}
