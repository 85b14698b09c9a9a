package search_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/search"
	"github.com/papercomputeco/engram/pkg/storage/inmemory"
)

var _ = Describe("Engine", func() {
	var (
		engine *search.Engine
		driver *inmemory.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()
		engine = search.NewEngine(driver, logger.Nop())

		_, err := driver.AppendMessage(ctx, "s1", memory.RoleUser, "how do I tune Postgres indexes?")
		Expect(err).NotTo(HaveOccurred())
		_, err = driver.AppendMessage(ctx, "s1", memory.RoleAssistant, "start with pg_stat_statements")
		Expect(err).NotTo(HaveOccurred())
		_, err = driver.AppendMessage(ctx, "s2", memory.RoleUser, "plan a trip to Lisbon")
		Expect(err).NotTo(HaveOccurred())

		_, err = driver.PutLongTerm(ctx, "Postgres tuning session", []string{"database", "performance"}, []string{"prefer GIN indexes for jsonb"}, "p")
		Expect(err).NotTo(HaveOccurred())
		_, err = driver.PutLongTerm(ctx, "Vacation planning", []string{"travel"}, nil, "p")
		Expect(err).NotTo(HaveOccurred())
	})

	It("matches an empty filter against both tiers", func() {
		results, err := engine.Search(ctx, memory.Filter{})
		Expect(err).NotTo(HaveOccurred())
		Expect(results.ShortTerm).To(HaveLen(3))
		Expect(results.LongTerm).To(HaveLen(2))
	})

	It("matches query substrings case-insensitively", func() {
		results, err := engine.Search(ctx, memory.Filter{Query: "POSTGRES"})
		Expect(err).NotTo(HaveOccurred())
		Expect(results.ShortTerm).To(HaveLen(1))
		Expect(results.LongTerm).To(HaveLen(1))
	})

	It("matches long-term queries against key insights", func() {
		results, err := engine.Search(ctx, memory.Filter{Query: "jsonb", Scope: memory.ScopeLongTerm})
		Expect(err).NotTo(HaveOccurred())
		Expect(results.LongTerm).To(HaveLen(1))
		Expect(results.LongTerm[0].Summary).To(Equal("Postgres tuning session"))
	})

	It("matches topics by substring with any-of semantics", func() {
		results, err := engine.Search(ctx, memory.Filter{
			Topics: []string{"db", "perf"},
			Scope:  memory.ScopeLongTerm,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(results.LongTerm).To(HaveLen(1))
		Expect(results.LongTerm[0].Topics).To(ContainElement("performance"))
	})

	It("ignores the topic predicate for short-term records", func() {
		results, err := engine.Search(ctx, memory.Filter{
			Topics: []string{"travel"},
			Scope:  memory.ScopeShortTerm,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(results.ShortTerm).To(HaveLen(3))
	})

	It("restricts results to the requested scope", func() {
		results, err := engine.Search(ctx, memory.Filter{Scope: memory.ScopeShortTerm})
		Expect(err).NotTo(HaveOccurred())
		Expect(results.ShortTerm).To(HaveLen(3))
		Expect(results.LongTerm).To(BeEmpty())
	})

	It("returns short-term matches most recent first", func() {
		results, err := engine.Search(ctx, memory.Filter{Scope: memory.ScopeShortTerm})
		Expect(err).NotTo(HaveOccurred())
		Expect(results.ShortTerm[0].Content).To(Equal("plan a trip to Lisbon"))
	})

	It("applies the limit per tier", func() {
		results, err := engine.Search(ctx, memory.Filter{Limit: 1})
		Expect(err).NotTo(HaveOccurred())
		Expect(results.ShortTerm).To(HaveLen(1))
		Expect(results.LongTerm).To(HaveLen(1))
	})

	It("matches nothing for an inverted time range", func() {
		now := time.Now().UTC()
		start := now.Add(time.Hour)
		end := now.Add(-time.Hour)

		results, err := engine.Search(ctx, memory.Filter{StartTime: &start, EndTime: &end})
		Expect(err).NotTo(HaveOccurred())
		Expect(results.ShortTerm).To(BeEmpty())
		Expect(results.LongTerm).To(BeEmpty())
	})

	It("combines query and topic predicates conjunctively", func() {
		results, err := engine.Search(ctx, memory.Filter{
			Query:  "tuning",
			Topics: []string{"travel"},
			Scope:  memory.ScopeLongTerm,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(results.LongTerm).To(BeEmpty())
	})
})
