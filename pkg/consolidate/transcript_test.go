package consolidate

import (
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/memory"
)

var _ = Describe("RenderTranscript", func() {
	ts := func(s string) time.Time {
		t, err := time.Parse(time.RFC3339, s)
		Expect(err).NotTo(HaveOccurred())
		return t
	}

	It("groups messages by session in first-appearance order", func() {
		out := RenderTranscript([]memory.Message{
			{SessionID: "b", Role: memory.RoleUser, Content: "first", Timestamp: ts("2026-08-27T09:00:00Z")},
			{SessionID: "a", Role: memory.RoleUser, Content: "second", Timestamp: ts("2026-08-27T09:01:00Z")},
			{SessionID: "b", Role: memory.RoleAssistant, Content: "third", Timestamp: ts("2026-08-27T09:02:00Z")},
		})

		Expect(strings.Index(out, "=== Session b ===")).To(BeNumerically("<", strings.Index(out, "=== Session a ===")))
		Expect(out).To(ContainSubstring("[2026-08-27 09:00:00] user: first"))
		Expect(out).To(ContainSubstring("[2026-08-27 09:02:00] assistant: third"))

		// Both of session b's messages render under its marker.
		sessionB := out[:strings.Index(out, "=== Session a ===")]
		Expect(sessionB).To(ContainSubstring("first"))
		Expect(sessionB).To(ContainSubstring("third"))
	})

	It("renders nothing for an empty slice", func() {
		Expect(RenderTranscript(nil)).To(BeEmpty())
	})
})

var _ = Describe("RenderMemoryContext", func() {
	It("renders one line per entry with optional topics", func() {
		out := RenderMemoryContext([]memory.LongTermMemory{
			{Summary: "Talked databases.", Topics: []string{"postgres", "indexing"}, Timestamp: time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)},
			{Summary: "Small talk.", Timestamp: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)},
		})

		Expect(out).To(ContainSubstring("- (2026-08-26) Talked databases. [topics: postgres, indexing]"))
		Expect(out).To(ContainSubstring("- (2026-08-25) Small talk."))
	})

	It("renders nothing for no entries", func() {
		Expect(RenderMemoryContext(nil)).To(BeEmpty())
	})
})
