// Package provider resolves a configured summarization collaborator.
package provider

import (
	"fmt"
	"os"
	"strings"

	"github.com/papercomputeco/engram/pkg/summarize"
	"github.com/papercomputeco/engram/pkg/summarize/anthropic"
	"github.com/papercomputeco/engram/pkg/summarize/ollama"
	"github.com/papercomputeco/engram/pkg/summarize/openai"
)

const (
	providerAnthropic = "anthropic"
	providerOpenAI    = "openai"
	providerOllama    = "ollama"
)

// Config selects and configures a summarizer implementation.
type Config struct {
	// Provider is "anthropic", "openai", or "ollama". Empty means no
	// collaborator is configured: consolidation requests fail with
	// summarize.ErrNotConfigured rather than attempting a cycle.
	Provider string

	// Model overrides the provider's default model.
	Model string

	// APIKey is the explicit key; empty falls back to the provider's
	// environment variable (ANTHROPIC_API_KEY / OPENAI_API_KEY).
	APIKey string

	// Target overrides the provider endpoint.
	Target string
}

// New resolves the configured summarizer. Resolution order for the API
// key: explicit config, then environment.
func New(c Config) (summarize.Summarizer, error) {
	switch strings.ToLower(c.Provider) {
	case "":
		return nil, summarize.ErrNotConfigured

	case providerAnthropic:
		return anthropic.NewSummarizer(anthropic.Config{
			APIKey:  resolveKey(c.APIKey, "ANTHROPIC_API_KEY"),
			Model:   c.Model,
			BaseURL: c.Target,
		}), nil

	case providerOpenAI:
		return openai.NewSummarizer(openai.Config{
			APIKey:  resolveKey(c.APIKey, "OPENAI_API_KEY"),
			Model:   c.Model,
			BaseURL: c.Target,
		}), nil

	case providerOllama:
		return ollama.NewSummarizer(ollama.Config{
			BaseURL: c.Target,
			Model:   c.Model,
		}), nil

	default:
		return nil, fmt.Errorf("unsupported summarizer provider: %q (available: anthropic, openai, ollama)", c.Provider)
	}
}

func resolveKey(explicit, envVar string) string {
	if explicit != "" {
		return explicit
	}
	return os.Getenv(envVar)
}
