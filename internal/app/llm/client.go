// Package llm talks to the streaming chat-completion provider. The rest
// of the app depends on the Client interface so handlers can be exercised
// without a live provider.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Message roles accepted by the completion API.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one prompt turn sent to the provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Params are the per-request sampling knobs.
type Params struct {
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p,omitempty"`
}

// Client streams a chat completion. emit is called once per content
// fragment, in arrival order; a non-nil return from emit aborts the
// stream and is returned unchanged, so callers can tell their own sink
// failures apart from provider failures.
type Client interface {
	StreamChat(ctx context.Context, messages []Message, params Params, emit func(delta string) error) error
}

// ProviderError is a failure reported by the completion provider, either
// as a non-200 response or a mid-stream stall.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("completion provider: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("completion provider: %s", e.Message)
}

// IsProviderError reports whether err originated at the provider rather
// than at the local write sink.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
