// Package ai is the boundary to the external text-completion API.
package ai

import "context"

// Message is one turn of conversation context sent to a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider produces a completion for the given message history
// (oldest first).
type Provider interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}
