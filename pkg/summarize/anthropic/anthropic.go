// Package anthropic provides an Anthropic-backed summarization
// collaborator using the Messages API.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/papercomputeco/engram/pkg/summarize"
)

const defaultModel = "claude-haiku-4-5-20251001"

// Config holds configuration for the Anthropic summarizer.
type Config struct {
	// APIKey is the Anthropic API key. Empty falls back to the SDK's
	// ANTHROPIC_API_KEY environment resolution.
	APIKey string

	// Model overrides the default model identifier.
	Model string

	// BaseURL overrides the API endpoint (for gateways/proxies).
	BaseURL string

	// MaxTokens bounds the response size (defaults to 2048).
	MaxTokens int64
}

// Summarizer implements summarize.Summarizer via the Anthropic SDK.
type Summarizer struct {
	client anthropicsdk.Client
	config Config
}

var _ summarize.Summarizer = (*Summarizer)(nil)

// NewSummarizer creates an Anthropic summarizer.
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
	if c.MaxTokens <= 0 {
		c.MaxTokens = 2048
	}

	return &Summarizer{
		client: anthropicsdk.NewClient(opts...),
		config: c,
	}
}

// Summarize sends the extraction instruction plus payload and returns the
// raw text response.
func (s *Summarizer) Summarize(ctx context.Context, payload string) (string, error) {
	msg, err := s.client.Messages.New(ctx, anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(s.config.Model),
		MaxTokens: s.config.MaxTokens,
		System: []anthropicsdk.TextBlockParam{
			{Text: summarize.SystemInstruction},
		},
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(payload)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic summarize: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}

	return b.String(), nil
}
