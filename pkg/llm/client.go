package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/datasynth-ai/datasynth-engine/pkg/logging"
	"github.com/datasynth-ai/datasynth-engine/pkg/retry"
)

// systemInstruction pins the model to emitting bare values. Anything more
// conversational would leak into the generated dataset.
const systemInstruction = "You are a raw data generator backend. " +
	"Your task is to generate ONE single value based on the user prompt. " +
	"Do NOT add any explanations, markdown formatting, quotes, or introductory text. " +
	"Output ONLY the value itself."

// maxValueTokens bounds one generated value; fields are short by nature.
const maxValueTokens = 50

// Config holds configuration for creating an OpenAI-compatible client.
type Config struct {
	Endpoint string // Base URL, e.g. "https://api.openai.com/v1" or an ollama host
	Model    string // Default model, e.g. "gpt-4o-mini"
	APIKey   string // Optional for local endpoints
}

// OpenAIClient talks to any OpenAI-compatible chat endpoint.
type OpenAIClient struct {
	client   *openai.Client
	endpoint string
	model    string
	logger   *zap.Logger
}

// NewOpenAIClient creates a client for an OpenAI-compatible endpoint.
func NewOpenAIClient(cfg *Config, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")

	return &OpenAIClient{
		client:   openai.NewClientWithConfig(clientConfig),
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		logger:   logger.Named("llm"),
	}, nil
}

// GenerateValue implements Client.
func (c *OpenAIClient) GenerateValue(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	model := opts.Model
	if model == "" {
		model = c.model
	}

	c.logger.Debug("LLM request",
		zap.String("model", model),
		zap.Int("prompt_len", len(prompt)),
		zap.Float64("temperature", opts.Temperature))

	start := time.Now()

	resp, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (openai.ChatCompletionResponse, error) {
		return c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemInstruction},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			Temperature:      float32(opts.Temperature),
			TopP:             float32(opts.TopP),
			FrequencyPenalty: float32(opts.FrequencyPenalty),
			PresencePenalty:  float32(opts.PresencePenalty),
			MaxTokens:        maxValueTokens,
		})
	})
	if err != nil {
		c.logger.Error("LLM request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.String("error", logging.SanitizeError(err)))
		return "", fmt.Errorf("chat completion: %s", logging.SanitizeError(err))
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	value := strings.Trim(strings.TrimSpace(resp.Choices[0].Message.Content), `"`)

	c.logger.Debug("LLM request completed",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	return value, nil
}

// Model implements Client.
func (c *OpenAIClient) Model() string {
	return c.model
}

// Endpoint returns the configured base URL.
func (c *OpenAIClient) Endpoint() string {
	return c.endpoint
}
