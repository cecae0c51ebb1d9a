package translator

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

type OpenAIConfig struct {
	APIKey      string
	BaseURL     string // empty keeps the public OpenAI endpoint
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

type openAITranslator struct {
	client *openai.Client
	cfg    OpenAIConfig
}

// NewOpenAI builds a Backend on the go-openai client.
func NewOpenAI(cfg OpenAIConfig) Backend {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	return &openAITranslator{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
	}
}

func (t *openAITranslator) Name() string {
	return "openai"
}

func (t *openAITranslator) Translate(ctx context.Context, req Request) (string, error) {
	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: t.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(req)},
		},
		MaxTokens:   t.cfg.MaxTokens,
		Temperature: t.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("openai translate %q: %w", req.Word, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyTranslation
	}
	return CleanResponse(resp.Choices[0].Message.Content)
}
