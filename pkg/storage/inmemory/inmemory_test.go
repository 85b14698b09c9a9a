package inmemory_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/storage"
	"github.com/papercomputeco/engram/pkg/storage/inmemory"
)

var _ = Describe("Driver", func() {
	var (
		driver *inmemory.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()
	})

	Describe("AppendMessage", func() {
		It("assigns a unique id and timestamp", func() {
			a, err := driver.AppendMessage(ctx, "s1", memory.RoleUser, "first")
			Expect(err).NotTo(HaveOccurred())
			b, err := driver.AppendMessage(ctx, "s1", memory.RoleAssistant, "second")
			Expect(err).NotTo(HaveOccurred())

			Expect(a.ID).NotTo(BeEmpty())
			Expect(a.ID).NotTo(Equal(b.ID))
			Expect(a.Timestamp).NotTo(BeZero())
			Expect(a.Consolidated).To(BeFalse())
		})
	})

	Describe("RecentSessions", func() {
		BeforeEach(func() {
			_, err := driver.AppendMessage(ctx, "s1", memory.RoleUser, "oldest")
			Expect(err).NotTo(HaveOccurred())
			_, err = driver.AppendMessage(ctx, "s2", memory.RoleUser, "middle")
			Expect(err).NotTo(HaveOccurred())
			_, err = driver.AppendMessage(ctx, "s3", memory.RoleUser, "newest")
			Expect(err).NotTo(HaveOccurred())
		})

		It("orders sessions most recently active first", func() {
			sessions, err := driver.RecentSessions(ctx, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions).To(HaveLen(3))
			Expect(sessions[0].ID).To(Equal("s3"))
			Expect(sessions[2].ID).To(Equal("s1"))
		})

		It("truncates to the requested count", func() {
			sessions, err := driver.RecentSessions(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions).To(HaveLen(1))
			Expect(sessions[0].ID).To(Equal("s3"))
		})

		It("orders messages within a session ascending", func() {
			_, err := driver.AppendMessage(ctx, "s1", memory.RoleAssistant, "reply")
			Expect(err).NotTo(HaveOccurred())

			sessions, err := driver.RecentSessions(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions[0].ID).To(Equal("s1"))
			Expect(sessions[0].Messages[0].Content).To(Equal("oldest"))
			Expect(sessions[0].Messages[1].Content).To(Equal("reply"))
		})

		It("returns nothing for a non-positive count", func() {
			sessions, err := driver.RecentSessions(ctx, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions).To(BeEmpty())
		})
	})

	Describe("consolidation bookkeeping", func() {
		It("returns only unconsolidated messages since the bound", func() {
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

		It("excludes messages before the bound", func() {
			_, err := driver.AppendMessage(ctx, "s1", memory.RoleUser, "hello")
			Expect(err).NotTo(HaveOccurred())

			future := time.Now().UTC().Add(time.Hour)
			msgs, err := driver.UnconsolidatedSince(ctx, future)
			Expect(err).NotTo(HaveOccurred())
			Expect(msgs).To(BeEmpty())
		})
	})

	Describe("ClearMessages", func() {
		It("removes every message and reports the count", func() {
			_, err := driver.AppendMessage(ctx, "s1", memory.RoleUser, "one")
			Expect(err).NotTo(HaveOccurred())
			_, err = driver.AppendMessage(ctx, "s2", memory.RoleUser, "two")
			Expect(err).NotTo(HaveOccurred())

			count, err := driver.ClearMessages(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(2)))

			total, err := driver.CountMessages(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(BeZero())
		})
	})

	Describe("long-term tier", func() {
		It("stores and retrieves entries most recent first", func() {
			_, err := driver.PutLongTerm(ctx, "older", []string{"a"}, nil, "p1")
			Expect(err).NotTo(HaveOccurred())
			_, err = driver.PutLongTerm(ctx, "newer", []string{"b"}, []string{"insight"}, "p2")
			Expect(err).NotTo(HaveOccurred())

			entries, err := driver.RecentLongTerm(ctx, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(2))
			Expect(entries[0].Summary).To(Equal("newer"))
			Expect(entries[0].KeyInsights).To(Equal([]string{"insight"}))
		})

		It("updates an entry in place", func() {
			id, err := driver.PutLongTerm(ctx, "before", nil, nil, "p")
			Expect(err).NotTo(HaveOccurred())

			err = driver.UpdateLongTerm(ctx, id, "after", []string{"t"}, nil, "p2")
			Expect(err).NotTo(HaveOccurred())

			entries, err := driver.RecentLongTerm(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries[0].ID).To(Equal(id))
			Expect(entries[0].Summary).To(Equal("after"))
		})

		It("reports a missing id on update", func() {
			err := driver.UpdateLongTerm(ctx, "nope", "x", nil, nil, "p")
			Expect(err).To(BeAssignableToTypeOf(storage.ErrNotFound{}))
		})
	})

	Describe("range scans", func() {
		It("applies inclusive bounds and descending order", func() {
			_, err := driver.AppendMessage(ctx, "s1", memory.RoleUser, "first")
			Expect(err).NotTo(HaveOccurred())
			_, err = driver.AppendMessage(ctx, "s1", memory.RoleUser, "second")
			Expect(err).NotTo(HaveOccurred())

			msgs, err := driver.MessagesInRange(ctx, nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[0].Content).To(Equal("second"))

			future := time.Now().UTC().Add(time.Hour)
			msgs, err = driver.MessagesInRange(ctx, &future, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(msgs).To(BeEmpty())
		})
	})

	Describe("Export", func() {
		It("snapshots both tiers", func() {
			_, err := driver.AppendMessage(ctx, "s1", memory.RoleUser, "hello")
			Expect(err).NotTo(HaveOccurred())
			_, err = driver.PutLongTerm(ctx, "summary", nil, nil, "p")
			Expect(err).NotTo(HaveOccurred())

			export, err := driver.Export(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(export.ExportedAt).NotTo(BeZero())
			Expect(export.Messages).To(HaveLen(1))
			Expect(export.LongTerm).To(HaveLen(1))
		})
	})
})
