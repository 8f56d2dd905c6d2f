package domain

import (
	"fmt"
	"unicode/utf8"
)

// ChatRole is the tagged variant over allowed message roles. Anything
// outside the set is rejected at the boundary, never coerced.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
	RoleSystem    ChatRole = "system"
)

// Chat request limits enforced before any upstream call.
const (
	MaxChatMessages      = 50
	MaxChatContentLength = 2000
)

// ChatMessage is a single conversation turn.
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// ChatRequest is the inbound chat proxy body.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
	Topic    string        `json:"topic,omitempty"`
}

// Validate checks the request shape. Violations return a ValidationError
// naming the offending field.
func (r *ChatRequest) Validate() error {
	if len(r.Messages) == 0 {
		return ErrValidation("messages: deve conter ao menos uma mensagem")
	}
	if len(r.Messages) > MaxChatMessages {
		return ErrValidation("messages: máximo de %d mensagens por requisição", MaxChatMessages)
	}
	for i, m := range r.Messages {
		switch m.Role {
		case RoleUser, RoleAssistant, RoleSystem:
		default:
			return ErrValidation("messages[%d].role: valor %q não suportado", i, m.Role)
		}
		if m.Content == "" {
			return ErrValidation("messages[%d].content: não pode ser vazio", i)
		}
		if utf8.RuneCountInString(m.Content) > MaxChatContentLength {
			return ErrValidation("messages[%d].content: excede %d caracteres", i, MaxChatContentLength)
		}
	}
	return nil
}

// String keeps message content out of log output.
func (m ChatMessage) String() string {
	return fmt.Sprintf("ChatMessage{role=%s, len=%d}", m.Role, len(m.Content))
}
