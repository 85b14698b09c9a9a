// Package openai provides an OpenAI-backed summarization collaborator
// using the chat completions API. A custom base URL makes it work against
// any OpenAI-compatible endpoint.
package openai

import (
	"context"
	"fmt"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/papercomputeco/engram/pkg/summarize"
)

const defaultModel = "gpt-4o-mini"

// Config holds configuration for the OpenAI summarizer.
type Config struct {
	// APIKey is the OpenAI API key. Empty falls back to the SDK's
	// OPENAI_API_KEY environment resolution.
	APIKey string

	// Model overrides the default model identifier.
	Model string

	// BaseURL overrides the API endpoint (Azure, local gateways, etc.).
	BaseURL string
}

// Summarizer implements summarize.Summarizer via the OpenAI SDK.
type Summarizer struct {
	client openaisdk.Client
	config Config
}

var _ summarize.Summarizer = (*Summarizer)(nil)

// NewSummarizer creates an OpenAI summarizer.
func NewSummarizer(c Config) *Summarizer {
	opts := []option.RequestOption{}
	if c.APIKey != "" {
		opts = append(opts, option.WithAPIKey(c.APIKey))
	}
	if c.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(c.BaseURL))
	}

	if c.Model == "" {
		c.Model = defaultModel
	}

	return &Summarizer{
		client: openaisdk.NewClient(opts...),
		config: c,
	}
}

// Summarize sends the extraction instruction plus payload and returns the
// raw text response.
func (s *Summarizer) Summarize(ctx context.Context, payload string) (string, error) {
	completion, err := s.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(s.config.Model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(summarize.SystemInstruction),
			openaisdk.UserMessage(payload),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai summarize: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("openai summarize: empty response")
	}

	return completion.Choices[0].Message.Content, nil
}
