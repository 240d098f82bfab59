package ai

import (
	"context"
	"errors"
)

// ErrNoProvider is returned by NoopProvider for every completion request.
var ErrNoProvider = errors.New("ai: no completion provider configured")

// NoopProvider always fails, which makes the chat workflow take its
// deterministic echo-fallback path. It is the default when no API key is
// configured.
type NoopProvider struct{}

func NewNoopProvider() *NoopProvider { return &NoopProvider{} }

func (*NoopProvider) Complete(_ context.Context, _ []Message) (string, error) {
	return "", ErrNoProvider
}
