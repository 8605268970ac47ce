package llm

import "context"

// MockClient is a configurable mock for testing LLM-backed generation.
// Set the function field to control behavior in tests.
type MockClient struct {
	// GenerateValueFunc is called when GenerateValue is invoked.
	// If nil, returns "mock-value" and nil error.
	GenerateValueFunc func(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// ModelName is returned by Model. Defaults to "mock-model".
	ModelName string

	// GenerateValueCalls counts invocations for verification.
	GenerateValueCalls int

	// Prompts records every prompt seen, in order.
	Prompts []string
}

// NewMockClient creates a mock with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{ModelName: "mock-model"}
}

// GenerateValue implements Client.
func (m *MockClient) GenerateValue(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	m.GenerateValueCalls++
	m.Prompts = append(m.Prompts, prompt)
	if m.GenerateValueFunc != nil {
		return m.GenerateValueFunc(ctx, prompt, opts)
	}
	return "mock-value", nil
}

// Model implements Client.
func (m *MockClient) Model() string {
	if m.ModelName == "" {
		return "mock-model"
	}
	return m.ModelName
}
