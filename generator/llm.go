// Package generator drafts post content through OpenAI-compatible chat
// endpoints. The same client shape serves OpenAI, Perplexity and xAI, which
// differ only in base URL, model and a few extra request fields.
package generator

import "context"

// LLMClient abstracts the chat model so implementations can be swapped or
// mocked in tests.
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// LLMSettings is the base configuration for a concrete implementation.
type LLMSettings struct {
	Model   string
	APIKey  string
	BaseURL string
}

// Prompt is one request to the model.
type Prompt struct {
	System string
	User   string

	// JSONOnly asks for a json_object response format.
	JSONOnly    bool
	Temperature float64
	MaxTokens   int64

	// Extra carries provider-specific body fields, e.g. Perplexity's
	// search_recency_filter.
	Extra map[string]any
}
