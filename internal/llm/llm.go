// Package llm provides the chat-completion client and the resilient
// invocation wrapper used by the conversation flows.
package llm

import "context"

// Message roles as stored in the transcript and sent to the provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a chat exchange.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// System returns a system message.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User returns a user message.
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// Completer obtains one model completion for an assembled message list.
// Implemented by *Client; fakes implement it in tests.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}
