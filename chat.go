package venicebridge

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one turn of an OpenAI-compatible conversation.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest describes one chat completion call against a registered provider.
type ChatRequest struct {
	Provider    string // registry id, e.g. "venice"
	Model       string
	Messages    []ChatMessage
	Temperature *float64
	MaxTokens   int
}

// Validate checks the request and returns a validation error naming the
// first failing field, or nil.
func (r ChatRequest) Validate() error {
	if r.Provider == "" {
		return NewValidationError("provider", "must not be empty")
	}
	if r.Model == "" {
		return NewValidationError("model", "must not be empty")
	}
	if len(r.Messages) == 0 {
		return NewValidationError("messages", "must not be empty")
	}
	return nil
}

// Usage reports token consumption for a chat completion.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// ChatResult is the tagged outcome of a chat workflow.
type ChatResult struct {
	Success      bool
	Text         string
	FinishReason string
	Usage        *Usage
	RequestID    string
	Err          error
}
