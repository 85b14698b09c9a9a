package summarize_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/summarize"
)

var _ = Describe("ParseDigest", func() {
	It("parses a clean JSON response", func() {
		digest, repaired := summarize.ParseDigest(`{
			"summary": "Talked about database tuning.",
			"topics": ["postgres", "indexing"],
			"key_insights": ["GIN indexes help jsonb lookups"]
		}`)

		Expect(repaired).To(BeFalse())
		Expect(digest.Summary).To(Equal("Talked about database tuning."))
		Expect(digest.Topics).To(Equal([]string{"postgres", "indexing"}))
		Expect(digest.KeyInsights).To(Equal([]string{"GIN indexes help jsonb lookups"}))
	})

	It("extracts JSON wrapped in markdown fences", func() {
		response := "Here you go:\n```json\n{\"summary\": \"Short day.\", \"topics\": [], \"key_insights\": []}\n```\nDone."

		digest, repaired := summarize.ParseDigest(response)
		Expect(repaired).To(BeFalse())
		Expect(digest.Summary).To(Equal("Short day."))
	})

	It("falls back to the sentinel when no JSON is present", func() {
		digest, repaired := summarize.ParseDigest("I could not produce a summary today.")

		Expect(repaired).To(BeTrue())
		Expect(digest.Summary).To(Equal(summarize.FailedSummary))
		Expect(digest.Topics).To(BeEmpty())
		Expect(digest.KeyInsights).To(BeEmpty())
	})

	It("repairs a non-string summary", func() {
		digest, repaired := summarize.ParseDigest(`{"summary": 42, "topics": ["a"], "key_insights": []}`)

		Expect(repaired).To(BeTrue())
		Expect(digest.Summary).To(Equal(summarize.FailedSummary))
		Expect(digest.Topics).To(Equal([]string{"a"}))
	})

	It("coerces non-list topics to an empty list", func() {
		digest, repaired := summarize.ParseDigest(`{"summary": "ok", "topics": "postgres", "key_insights": []}`)

		Expect(repaired).To(BeTrue())
		Expect(digest.Summary).To(Equal("ok"))
		Expect(digest.Topics).To(BeEmpty())
	})

	It("drops non-string list elements", func() {
		digest, repaired := summarize.ParseDigest(`{"summary": "ok", "topics": ["a", 3, "b"], "key_insights": []}`)

		Expect(repaired).To(BeTrue())
		Expect(digest.Topics).To(Equal([]string{"a", "b"}))
	})

	It("accepts the camelCased insights field", func() {
		digest, repaired := summarize.ParseDigest(`{"summary": "ok", "topics": [], "keyInsights": ["remember this"]}`)

		Expect(repaired).To(BeFalse())
		Expect(digest.KeyInsights).To(Equal([]string{"remember this"}))
	})

	It("trims whitespace-only list entries", func() {
		digest, _ := summarize.ParseDigest(`{"summary": "ok", "topics": ["  a  ", "   "], "key_insights": []}`)

		Expect(digest.Topics).To(Equal([]string{"a"}))
	})
})

var _ = Describe("BuildPayload", func() {
	It("includes memory context ahead of the transcript", func() {
		payload := summarize.BuildPayload("[session s1]\nuser: hi", "- (2026-08-26) Prior day.")

		Expect(payload).To(ContainSubstring("Existing long-term memory"))
		Expect(payload).To(ContainSubstring("- (2026-08-26) Prior day."))
		Expect(payload).To(ContainSubstring("Conversations to consolidate:"))
		Expect(payload).To(ContainSubstring("user: hi"))
	})

	It("omits the context header when there is no prior memory", func() {
		payload := summarize.BuildPayload("transcript", "")

		Expect(payload).NotTo(ContainSubstring("Existing long-term memory"))
		Expect(payload).To(HavePrefix("Conversations to consolidate:"))
	})
})
