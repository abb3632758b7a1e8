package venicebridge

// Capability tags attached to catalog entries.
const (
	TagUncensored = "uncensored"
	TagVision     = "vision"
	TagTools      = "tools"
	TagWebSearch  = "web_search"
	TagReasoning  = "reasoning"
)

// ModelEntry describes one model from a provider's catalog. Classification
// is derived from the provider response, never stored input.
type ModelEntry struct {
	ID             string
	DisplayName    string
	ContextTokens  int
	Type           string // "text", "image", ... as reported by the provider
	CapabilityTags []string
}

// HasTag reports whether the entry carries the given capability tag.
func (m ModelEntry) HasTag(tag string) bool {
	for _, t := range m.CapabilityTags {
		if t == tag {
			return true
		}
	}
	return false
}

// IsUncensored reports whether the entry was classified as an
// unrestricted-content model.
func (m ModelEntry) IsUncensored() bool {
	return m.HasTag(TagUncensored)
}
