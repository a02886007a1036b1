package triage

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/spec-kit/triage-service/internal/config"
)

// openAIBackend generates drafts through a chat-completion model. Every call
// carries a bounded timeout; callers treat any error as a signal to fall back.
type openAIBackend struct {
	client    *openai.Client
	model     string
	timeout   time.Duration
	maxTokens int
}

func newOpenAIBackend(cfg config.AIConfig) *openAIBackend {
	return &openAIBackend{
		client:    openai.NewClient(cfg.APIKey),
		model:     cfg.Model,
		timeout:   cfg.Timeout(),
		maxTokens: cfg.MaxTokens,
	}
}

func (b *openAIBackend) Generate(ctx context.Context, input Input) (*Draft, error) {
	prompt := buildPrompt(input)

	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	resp, err := b.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:     b.model,
		MaxTokens: b.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	draft, err := parseDraft(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("parse model output: %w", err)
	}

	if draft.DraftResponse == "" {
		draft.DraftResponse = cannedResponse(draft.Category)
	}
	draft.PromptHash = promptHash(prompt)
	draft.InputTokens = resp.Usage.PromptTokens
	draft.OutputTokens = resp.Usage.CompletionTokens
	if draft.InputTokens == 0 {
		draft.InputTokens = estimateTokens(prompt)
	}
	if draft.OutputTokens == 0 {
		draft.OutputTokens = estimateTokens(resp.Choices[0].Message.Content)
	}
	return draft, nil
}
