package domain

import "context"

// ChatRole is the author of a chat message.
type ChatRole string

// Chat roles understood by completion providers.
const (
	RoleSystem    ChatRole = "system"
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage is one message of a completion prompt.
type ChatMessage struct {
	Role    ChatRole
	Content string
}

// CompletionRequest is a system prompt plus ordered user/assistant messages.
type CompletionRequest struct {
	// Step names the pipeline stage for logs and metrics.
	Step        string
	Messages    []ChatMessage
	Temperature float32
	MaxTokens   int
}

// Completion carries every choice returned by the provider.
type Completion struct {
	Choices          []string
	PromptTokens     int
	CompletionTokens int
}

// ChatCompleter is the chat-completion capability.
type ChatCompleter interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}
