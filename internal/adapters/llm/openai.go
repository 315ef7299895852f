package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/PabloGalante/medibot/internal/domain"
	"github.com/PabloGalante/medibot/internal/observability"
)

const DefaultOpenAIModel = "gpt-4o-mini"

type OpenAIConfig struct {
	APIKey    string
	ModelName string
	BaseURL   string
}

// OpenAIClient calls an OpenAI-compatible chat completion endpoint.
type OpenAIClient struct {
	client    *openai.Client
	modelName string
}

func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}

	modelName := cfg.ModelName
	if modelName == "" {
		modelName = DefaultOpenAIModel
	}

	return &OpenAIClient{
		client:    openai.NewClientWithConfig(oc),
		modelName: modelName,
	}, nil
}

func (c *OpenAIClient) Model() string { return c.modelName }

// Generate implements domain.TextGenerator. Chat completions have no
// per-request safety thresholds, so safety is only logged.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, safety []domain.SafetySetting) (string, error) {
	if len(safety) > 0 {
		observability.LoggerFromContext(ctx).Debug("openai ignores safety settings", "count", len(safety))
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.New("openai returned empty text")
	}
	return resp.Choices[0].Message.Content, nil
}
