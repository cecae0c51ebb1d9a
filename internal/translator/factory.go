package translator

import (
	"fmt"
	"time"

	"github.com/MimeLyc/wordsub/internal/config"
	"github.com/MimeLyc/wordsub/internal/llm"
)

// NewFromConfig selects the backend named by cfg.Provider.
func NewFromConfig(cfg config.LLMConfig) (Backend, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAI(OpenAIConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.APIURL,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: float32(cfg.Temperature),
			Timeout:     time.Duration(cfg.Timeout) * time.Second,
		}), nil
	case config.ProviderLLM, "":
		client, err := llm.NewClient(&llm.Config{
			APIKey:      cfg.APIKey,
			APIURL:      cfg.APIURL,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return NewLLM(client), nil
	default:
		return nil, fmt.Errorf("unknown translation provider %q", cfg.Provider)
	}
}
