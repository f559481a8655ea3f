// Package llm wraps the chat-completion collaborator behind a narrow client
// interface so conversation components can be tested with fakes.
package llm

import "context"

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is an internal message representation that can include system prompts.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request carries one completion call.
type Request struct {
	System      []string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
}

// Response is the completion output.
type Response struct {
	Text string
}

// Client produces chat completions.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}
