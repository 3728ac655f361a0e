package output

import "context"

type ChatRole string

const (
	RoleSystem ChatRole = "system"
	RoleUser   ChatRole = "user"
)

type ChatMessage struct {
	Role    ChatRole
	Content string
}

type ChatRequest struct {
	Messages    []ChatMessage
	Temperature float32
}

type ChatResponse struct {
	Content string
}

type LLMPort interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}
