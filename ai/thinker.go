// Package ai implements the think collaborator on top of OpenAI chat
// completions, with optional web research enrichment.
package ai

import (
	"context"
	"fmt"
	"log"

	openai "github.com/sashabaranov/go-openai"

	"github.com/helmsman-ai/helmsman/agent"
)

// LLMConfig holds tuning for LLM calls.
type LLMConfig struct {
	Model       string
	MaxTokens   int
	Temperature float32
}

// DefaultLLMConfig returns the standard configuration.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Model:       openai.GPT4oMini,
		MaxTokens:   2048,
		Temperature: 0.2,
	}
}

// Thinker is an OpenAI-backed agent.Thinker.
type Thinker struct {
	client   *openai.Client
	config   LLMConfig
	research *Researcher
}

var _ agent.Thinker = (*Thinker)(nil)

// NewThinker creates a thinker with the given API key. A nil researcher
// disables prompt enrichment.
func NewThinker(apiKey string, config LLMConfig, research *Researcher) (*Thinker, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if config.Model == "" {
		config = DefaultLLMConfig()
	}
	return &Thinker{
		client:   openai.NewClient(apiKey),
		config:   config,
		research: research,
	}, nil
}

// Reason sends the prompt to the model and returns the raw content. The
// agent parses it; a malformed answer surfaces as a phase error there.
func (t *Thinker) Reason(ctx context.Context, req agent.ThinkRequest) (*agent.ThinkResponse, error) {
	prompt := req.Prompt
	if t.research != nil {
		enriched, err := t.research.Enrich(ctx, prompt)
		if err != nil {
			log.Printf("web research failed, continuing without it: %v", err)
		} else {
			prompt = enriched
		}
	}

	messages := []openai.ChatCompletionMessage{}
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	maxTokens := t.config.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       t.config.Model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: t.config.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}
	return &agent.ThinkResponse{Content: resp.Choices[0].Message.Content}, nil
}
