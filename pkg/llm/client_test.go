package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewOpenAIClientRequiresEndpointAndModel(t *testing.T) {
	_, err := NewOpenAIClient(&Config{Model: "gpt-4o-mini"}, zap.NewNop())
	require.Error(t, err)

	_, err = NewOpenAIClient(&Config{Endpoint: "https://api.openai.com/v1"}, zap.NewNop())
	require.Error(t, err)

	client, err := NewOpenAIClient(&Config{
		Endpoint: "https://api.openai.com/v1/",
		Model:    "gpt-4o-mini",
	}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", client.Model())
}

func TestMockClientRecordsCalls(t *testing.T) {
	mock := &MockClient{
		GenerateValueFunc: func(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
			return "Ada", nil
		},
		ModelName: "mock-model",
	}

	value, err := mock.GenerateValue(context.Background(), "First name for QA", GenerateOptions{Temperature: 1})
	require.NoError(t, err)
	assert.Equal(t, "Ada", value)
	assert.Equal(t, 1, mock.GenerateValueCalls)
	assert.Equal(t, []string{"First name for QA"}, mock.Prompts)
	assert.Equal(t, "mock-model", mock.Model())
}
