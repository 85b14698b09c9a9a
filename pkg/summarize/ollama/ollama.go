// Package ollama provides an Ollama-backed summarization collaborator for
// local models, using the /api/chat endpoint in JSON mode.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/engram/pkg/summarize"
)

const (
	defaultModel   = "llama3.2"
	defaultBaseURL = "http://localhost:11434"
)

// Config holds configuration for the Ollama summarizer.
type Config struct {
	// BaseURL is the Ollama server address (defaults to localhost:11434).
	BaseURL string

	// Model is the local model name (defaults to llama3.2).
	Model string
}

// Summarizer implements summarize.Summarizer against an Ollama server.
type Summarizer struct {
	config Config
	client *http.Client
}

var _ summarize.Summarizer = (*Summarizer)(nil)

// NewSummarizer creates an Ollama summarizer.
func NewSummarizer(c Config) *Summarizer {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Model == "" {
		c.Model = defaultModel
	}

	return &Summarizer{
		config: c,
		client: &http.Client{Timeout: 2 * time.Minute},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error"`
}

// Summarize sends the extraction instruction plus payload and returns the
// raw text response.
func (s *Summarizer) Summarize(ctx context.Context, payload string) (string, error) {
	request := chatRequest{
		Model: s.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: summarize.SystemInstruction},
			{Role: "user", Content: payload},
		},
		Stream: false,
		Format: "json",
	}

	body, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("marshal ollama request: %w", err)
	}

	target := strings.TrimRight(s.config.BaseURL, "/") + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama status %d: %s", resp.StatusCode, string(raw))
	}

	var response chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	if response.Error != "" {
		return "", fmt.Errorf("ollama error: %s", response.Error)
	}

	return response.Message.Content, nil
}
