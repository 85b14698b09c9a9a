package consolidate

import (
	"fmt"
	"strings"

	"github.com/papercomputeco/engram/pkg/memory"
)

// transcriptTimeLayout keeps rendered timestamps stable and readable.
const transcriptTimeLayout = "2006-01-02 15:04:05"

// RenderTranscript renders messages into a deterministic human-readable
// transcript: messages grouped by session in order of each session's first
// appearance, with a session marker and per-message role/time/content
// lines. Input is expected in (timestamp, seq) ascending order, which the
// store guarantees.
func RenderTranscript(messages []memory.Message) string {
	var order []string
	bySession := make(map[string][]memory.Message)
	for _, msg := range messages {
		if _, seen := bySession[msg.SessionID]; !seen {
			order = append(order, msg.SessionID)
		}
		bySession[msg.SessionID] = append(bySession[msg.SessionID], msg)
	}

	var b strings.Builder
	for i, sessionID := range order {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "=== Session %s ===\n", sessionID)
		for _, msg := range bySession[sessionID] {
			fmt.Fprintf(&b, "[%s] %s: %s\n",
				msg.Timestamp.UTC().Format(transcriptTimeLayout),
				msg.Role,
				msg.Content,
			)
		}
	}

	return b.String()
}

// RenderMemoryContext renders recent long-term entries into the continuity
// context handed to the collaborator alongside the transcript.
func RenderMemoryContext(entries []memory.LongTermMemory) string {
	if len(entries) == 0 {
		return ""
	}

	var b strings.Builder
	for i, entry := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- (%s) %s", entry.Timestamp.UTC().Format("2006-01-02"), entry.Summary)
		if len(entry.Topics) > 0 {
			fmt.Fprintf(&b, " [topics: %s]", strings.Join(entry.Topics, ", "))
		}
	}

	return b.String()
}
