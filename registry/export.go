package registry

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Fayeblade1488/venicebridge"
	"github.com/Fayeblade1488/venicebridge/catalog"
)

// KeyPlaceholder is written to exported files instead of a credential.
// Consumers resolve it from the environment at load time.
const KeyPlaceholder = "${VENICE_API_KEY}"

// ExportResult reports a completed export.
type ExportResult struct {
	Path       string
	ModelCount int
}

// Export writes a providers file describing the catalog's provider and its
// current model list. The real API key is never written; credential fields
// carry the environment placeholder. Parent directories are created and
// the file is written atomically.
func Export(ctx context.Context, cat *catalog.Catalog, provider venicebridge.ProviderConfig, path string) (*ExportResult, error) {
	models, err := cat.List(ctx)
	if err != nil {
		return nil, err
	}

	entry := Provider{
		ID:      provider.ID,
		Name:    provider.Name,
		BaseURL: provider.BaseURL,
		APIKeys: map[string]string{"openai": KeyPlaceholder},
	}
	for _, m := range models {
		entry.Models = append(entry.Models, Model{
			ID:       m.ID,
			Name:     m.DisplayName,
			Context:  m.ContextTokens,
			Provider: provider.ID,
			Abilities: Abilities{
				Temperature: AbilityTemperature{Supported: true, Default: 0.7},
				Vision:      Ability{Supported: m.HasTag(venicebridge.TagVision)},
				Tools:       Ability{Supported: m.HasTag(venicebridge.TagTools)},
				WebSearch:   Ability{Supported: m.HasTag(venicebridge.TagWebSearch)},
				Reasoning:   Ability{Supported: m.HasTag(venicebridge.TagReasoning)},
			},
		})
	}

	doc := file{Providers: []Provider{entry}}
	data, err := marshalIndented(doc)
	if err != nil {
		return nil, venicebridge.NewDecodeError("encode providers file", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, venicebridge.NewPersistenceError("create config directory", err)
	}

	tmp := path + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return nil, venicebridge.NewPersistenceError("write providers file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return nil, venicebridge.NewPersistenceError("replace providers file", err)
	}

	return &ExportResult{Path: path, ModelCount: len(entry.Models)}, nil
}

func marshalIndented(doc file) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
