package llm

import "context"

// Role values for chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

// Request is a provider-agnostic chat completion request.
type Request struct {
	System      string
	Messages    []Message
	Temperature float64
	MaxTokens   int
	JSONOnly    bool
}

// Adapter is implemented by every chat completion provider.
type Adapter interface {
	Generate(ctx context.Context, req Request) (string, error)
	Name() string
}
