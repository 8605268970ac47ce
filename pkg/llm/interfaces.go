// Package llm provides OpenAI-compatible text generation for llm-type fields.
// Both supported providers (openai, ollama) speak the same chat API; they
// differ only in endpoint and authentication.
package llm

import "context"

// GenerateOptions carries the per-field sampling parameters.
type GenerateOptions struct {
	Model            string
	Temperature      float64
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
}

// Client generates one synthetic value per call.
// Use this interface for dependency injection to enable mocking in tests.
type Client interface {
	// GenerateValue returns a single raw value for an already-expanded
	// prompt. The result carries no markdown, quotes, or commentary.
	GenerateValue(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// Model returns the default model name used when a field names none.
	Model() string
}

// Ensure OpenAIClient implements Client at compile time.
var _ Client = (*OpenAIClient)(nil)
