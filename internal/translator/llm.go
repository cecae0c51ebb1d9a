package translator

import (
	"context"
	"fmt"

	"github.com/MimeLyc/wordsub/internal/llm"
)

type chatClient interface {
	SimpleChat(ctx context.Context, prompt string, systemPrompt string) (string, error)
}

// llmTranslator uses the built-in chat completions client.
type llmTranslator struct {
	client chatClient
}

// NewLLM wraps client as a Backend.
func NewLLM(client *llm.Client) Backend {
	return &llmTranslator{client: client}
}

func (t *llmTranslator) Name() string {
	return "llm"
}

func (t *llmTranslator) Translate(ctx context.Context, req Request) (string, error) {
	reply, err := t.client.SimpleChat(ctx, BuildPrompt(req), systemPrompt)
	if err != nil {
		return "", fmt.Errorf("llm translate %q: %w", req.Word, err)
	}
	return CleanResponse(reply)
}
