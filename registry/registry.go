// Package registry loads externally configured chat providers from a YAML
// file, with environment variable interpolation for credential references.
//
// The file is an optional collaborator: a missing file yields an empty
// registry, not an error. Keys are referenced as ${ENV_VAR} placeholders
// so credentials never live in the file itself.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/Fayeblade1488/venicebridge"
)

// Provider is one externally configured provider definition.
type Provider struct {
	ID      string            `yaml:"id"`
	Name    string            `yaml:"name"`
	BaseURL string            `yaml:"base_url"`
	APIKeys map[string]string `yaml:"api_keys"`
	Models  []Model           `yaml:"models"`
}

// Model is a provider's model entry as configured.
type Model struct {
	ID        string    `yaml:"id"`
	Name      string    `yaml:"name"`
	Context   int       `yaml:"context,omitempty"`
	Provider  string    `yaml:"provider,omitempty"`
	Abilities Abilities `yaml:"abilities,omitempty"`
}

// Abilities mirrors the capability block of the providers file.
type Abilities struct {
	Temperature AbilityTemperature `yaml:"temperature,omitempty"`
	Vision      Ability            `yaml:"vision,omitempty"`
	Tools       Ability            `yaml:"tools,omitempty"`
	WebSearch   Ability            `yaml:"web_search,omitempty"`
	Reasoning   Ability            `yaml:"reasoning,omitempty"`
}

// Ability is a single supported/unsupported flag.
type Ability struct {
	Supported bool `yaml:"supported"`
}

// AbilityTemperature carries the temperature flag plus its default value.
type AbilityTemperature struct {
	Supported bool    `yaml:"supported"`
	Default   float64 `yaml:"default,omitempty"`
}

// file is the top-level YAML document.
type file struct {
	Providers []Provider `yaml:"providers"`
}

// Registry resolves provider ids to configurations. Immutable after Load.
type Registry struct {
	providers map[string]Provider
	order     []string
}

// DefaultPaths returns the locations searched when no explicit path is given.
func DefaultPaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{
		filepath.Join(home, ".config", "raycast", "ai", "providers.yaml"),
		filepath.Join(home, ".config", "raycast", "ai", "providers.yml"),
	}
}

// Load reads the providers file at path. An empty path searches
// DefaultPaths; a missing file yields an empty registry.
func Load(path string) (*Registry, error) {
	if path == "" {
		for _, candidate := range DefaultPaths() {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	reg := &Registry{providers: map[string]Provider{}}
	if path == "" {
		return reg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return reg, nil
		}
		return nil, venicebridge.NewPersistenceError("read providers file "+path, err)
	}

	var doc file
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, venicebridge.NewDecodeError("parse providers file "+path, err)
	}

	for _, p := range doc.Providers {
		if p.ID == "" {
			continue
		}
		p.APIKeys = interpolateKeys(p.APIKeys)
		if _, dup := reg.providers[p.ID]; !dup {
			reg.order = append(reg.order, p.ID)
		}
		reg.providers[p.ID] = p
	}
	return reg, nil
}

// Providers returns the configured provider ids in file order.
func (r *Registry) Providers() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len reports how many providers are configured.
func (r *Registry) Len() int { return len(r.providers) }

// Lookup returns the raw provider definition.
func (r *Registry) Lookup(id string) (Provider, bool) {
	p, ok := r.providers[id]
	return p, ok
}

// Models returns the configured models for a provider, or nil when the
// provider is unknown.
func (r *Registry) Models(id string) []Model {
	p, ok := r.providers[id]
	if !ok {
		return nil
	}
	return p.Models
}

// HasModel reports whether the provider lists the model. An empty
// configured model list accepts any model.
func (r *Registry) HasModel(id, model string) bool {
	p, ok := r.providers[id]
	if !ok {
		return false
	}
	if len(p.Models) == 0 {
		return true
	}
	for _, m := range p.Models {
		if m.ID == model {
			return true
		}
	}
	return false
}

// Resolve builds a provider configuration for the given id, preferring
// the "openai" compatible key, then the first non-empty key in name order.
func (r *Registry) Resolve(id string) (venicebridge.ProviderConfig, error) {
	p, ok := r.providers[id]
	if !ok {
		return venicebridge.ProviderConfig{}, venicebridge.NewUnknownProviderError(id)
	}

	key := p.APIKeys["openai"]
	if key == "" {
		names := make([]string, 0, len(p.APIKeys))
		for name := range p.APIKeys {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if p.APIKeys[name] != "" {
				key = p.APIKeys[name]
				break
			}
		}
	}

	cfg := venicebridge.ProviderConfig{
		ID:             p.ID,
		Name:           p.Name,
		BaseURL:        p.BaseURL,
		AuthKey:        key,
		ConnectTimeout: venicebridge.DefaultConnectTimeout,
		ReadTimeout:    venicebridge.DefaultReadTimeout,
	}
	if len(p.Models) > 0 {
		cfg.DefaultModel = p.Models[0].ID
	}
	return cfg, nil
}

// envRef matches ${VAR} credential references.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// interpolateKeys expands ${VAR} references against the environment.
// An unset variable expands to the empty string; the miss surfaces later
// as a missing-credential validation error rather than a parse failure.
func interpolateKeys(keys map[string]string) map[string]string {
	if keys == nil {
		return nil
	}
	out := make(map[string]string, len(keys))
	for name, value := range keys {
		out[name] = envRef.ReplaceAllStringFunc(value, func(ref string) string {
			return os.Getenv(envRef.FindStringSubmatch(ref)[1])
		})
	}
	return out
}

// String describes the registry without exposing any credential.
func (r *Registry) String() string {
	return fmt.Sprintf("registry with %d providers", len(r.providers))
}
