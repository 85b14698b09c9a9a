// Package summarize defines the summarization collaborator: the external
// model that turns a conversation transcript into a structured memory
// digest.
//
// The collaborator is a black box behind the [Summarizer] interface.
// Provider implementations (anthropic, openai, ollama) live in
// subpackages; parsing and repair of model output lives here so every
// provider gets the same self-healing behavior.
package summarize

import (
	"context"
	"errors"
	"strings"
)

// ErrNotConfigured is returned when consolidation is requested but no
// summarization collaborator has been configured.
var ErrNotConfigured = errors.New("summarizer not configured")

// Digest is the structured output required from the collaborator.
type Digest struct {
	Summary     string   `json:"summary"`
	Topics      []string `json:"topics"`
	KeyInsights []string `json:"key_insights"`
}

// Summarizer converts a rendered transcript plus prior-memory context into
// a raw model response. Output parsing/repair is the caller's concern via
// [ParseDigest].
type Summarizer interface {
	// Summarize sends the fixed extraction instruction with the given
	// user payload and returns the model's raw text response.
	Summarize(ctx context.Context, payload string) (string, error)
}

// SystemInstruction is the fixed extraction task description sent to every
// provider. It pins the required output shape.
const SystemInstruction = `You are a memory consolidation assistant. You read conversation transcripts and distill them into durable long-term memory.

Return ONLY valid JSON with exactly these fields:

{
  "summary": "a concise narrative of what was discussed and decided",
  "topics": ["short topic labels"],
  "key_insights": ["durable facts, decisions, and preferences worth remembering"]
}

Prefer facts over chit-chat. Topics are short noun phrases. Key insights must stand alone without the transcript.`

// BuildPayload renders the user payload: the transcript to consolidate
// plus recent long-term entries for continuity context.
func BuildPayload(transcript, memoryContext string) string {
	var b strings.Builder

	if memoryContext != "" {
		b.WriteString("Existing long-term memory (for continuity, do not repeat verbatim):\n\n")
		b.WriteString(memoryContext)
		b.WriteString("\n\n")
	}

	b.WriteString("Conversations to consolidate:\n\n")
	b.WriteString(transcript)

	return b.String()
}
