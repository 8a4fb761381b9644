// Package llm defines the completion client used by blueprint generation
// and graph extraction, with an adapter over Iris providers.
package llm

import "context"

// Message is one turn of conversation context sent with a request.
type Message struct {
	Role    string
	Content string
}

// Request is a provider-agnostic completion request. Prompt is appended
// as the final user message; Messages carry optional prior turns.
type Request struct {
	Model        string
	Instructions string
	Messages     []Message
	Prompt       string
	Temperature  *float64
	MaxTokens    *int
}

// TokenUsage reports token consumption for one completion.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Response is the provider's completion output.
type Response struct {
	Text     string
	Model    string
	Provider string
	Usage    TokenUsage
}

// Client sends completion requests to a language model provider.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}
