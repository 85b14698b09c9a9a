package sqlite_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/storage/sqlite"
)

var _ = Describe("Driver", func() {
	var (
		driver *sqlite.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		driver, err = sqlite.NewDriver(":memory:")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if driver != nil {
			driver.Close()
		}
	})

	Describe("NewDriver", func() {
		It("creates a driver with an in-memory database", func() {
			Expect(driver).NotTo(BeNil())
		})

		It("creates the database file and parent directories", func() {
			tmpDir := GinkgoT().TempDir()
			dbPath := filepath.Join(tmpDir, "nested", "engram.db")

			d, err := sqlite.NewDriver(dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer d.Close()

			_, err = os.Stat(dbPath)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("AppendMessage", func() {
		It("persists a message retrievable via RecentSessions", func() {
			msg, err := driver.AppendMessage(ctx, "s1", memory.RoleUser, "hello")
			Expect(err).NotTo(HaveOccurred())
			Expect(msg.ID).NotTo(BeEmpty())
			Expect(msg.Consolidated).To(BeFalse())

			sessions, err := driver.RecentSessions(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions).To(HaveLen(1))
			Expect(sessions[0].ID).To(Equal("s1"))
			Expect(sessions[0].Messages[0].Content).To(Equal("hello"))
		})
	})

	Describe("RecentSessions", func() {
		It("orders sessions most recently active first", func() {
			_, err := driver.AppendMessage(ctx, "s1", memory.RoleUser, "older")
			Expect(err).NotTo(HaveOccurred())
			_, err = driver.AppendMessage(ctx, "s2", memory.RoleUser, "newer")
			Expect(err).NotTo(HaveOccurred())

			sessions, err := driver.RecentSessions(ctx, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions).To(HaveLen(2))
			Expect(sessions[0].ID).To(Equal("s2"))
		})
	})

	Describe("consolidation bookkeeping", func() {
		It("round-trips the consolidated flag", func() {
			_, err := driver.AppendMessage(ctx, "s1", memory.RoleUser, "hello")
			Expect(err).NotTo(HaveOccurred())

			since := time.Now().UTC().Add(-time.Hour)

			msgs, err := driver.UnconsolidatedSince(ctx, since)
			Expect(err).NotTo(HaveOccurred())
			Expect(msgs).To(HaveLen(1))

			count, err := driver.MarkConsolidated(ctx, since)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(1)))

			msgs, err = driver.UnconsolidatedSince(ctx, since)
			Expect(err).NotTo(HaveOccurred())
			Expect(msgs).To(BeEmpty())
		})
	})

	Describe("long-term tier", func() {
		It("round-trips list fields through the JSON columns", func() {
			id, err := driver.PutLongTerm(ctx, "Database tuning",
				[]string{"postgres", "indexing"},
				[]string{"GIN indexes help jsonb"},
				"Conversations from 2026-08-27",
			)
			Expect(err).NotTo(HaveOccurred())

			entries, err := driver.RecentLongTerm(ctx, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].ID).To(Equal(id))
			Expect(entries[0].Topics).To(Equal([]string{"postgres", "indexing"}))
			Expect(entries[0].KeyInsights).To(Equal([]string{"GIN indexes help jsonb"}))
			Expect(entries[0].ConsolidatedFrom).To(Equal("Conversations from 2026-08-27"))
		})

		It("updates an entry in place", func() {
			id, err := driver.PutLongTerm(ctx, "before", nil, nil, "p")
			Expect(err).NotTo(HaveOccurred())

			err = driver.UpdateLongTerm(ctx, id, "after", []string{"t"}, nil, "p2")
			Expect(err).NotTo(HaveOccurred())

			entries, err := driver.RecentLongTerm(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries[0].Summary).To(Equal("after"))
		})

		It("reports a missing id on update", func() {
			err := driver.UpdateLongTerm(ctx, "missing", "x", nil, nil, "p")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("counts and export", func() {
		It("tracks both tiers", func() {
			_, err := driver.AppendMessage(ctx, "s1", memory.RoleUser, "hello")
			Expect(err).NotTo(HaveOccurred())
			_, err = driver.PutLongTerm(ctx, "summary", nil, nil, "p")
			Expect(err).NotTo(HaveOccurred())

			messages, err := driver.CountMessages(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(messages).To(Equal(int64(1)))

			longTerm, err := driver.CountLongTerm(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(longTerm).To(Equal(int64(1)))

			export, err := driver.Export(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(export.Messages).To(HaveLen(1))
			Expect(export.LongTerm).To(HaveLen(1))
		})
	})

	Describe("ClearMessages", func() {
		It("removes the short-term tier only", func() {
			_, err := driver.AppendMessage(ctx, "s1", memory.RoleUser, "hello")
			Expect(err).NotTo(HaveOccurred())
			_, err = driver.PutLongTerm(ctx, "keep", nil, nil, "p")
			Expect(err).NotTo(HaveOccurred())

			count, err := driver.ClearMessages(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(1)))

			longTerm, err := driver.CountLongTerm(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(longTerm).To(Equal(int64(1)))
		})
	})
})
