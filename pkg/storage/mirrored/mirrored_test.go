package mirrored_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/storage/inmemory"
	"github.com/papercomputeco/engram/pkg/storage/mirrored"
)

type countingSignaler struct {
	signals int
}

func (c *countingSignaler) Signal() {
	c.signals++
}

var _ = Describe("Driver", func() {
	var (
		driver   *mirrored.Driver
		inner    *inmemory.Driver
		signaler *countingSignaler
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		inner = inmemory.NewDriver()
		signaler = &countingSignaler{}
		driver = mirrored.NewDriver(inner, signaler)
	})

	It("signals after appending a message", func() {
		_, err := driver.AppendMessage(ctx, "s1", memory.RoleUser, "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(signaler.signals).To(Equal(1))
	})

	It("signals after committing a long-term entry", func() {
		_, err := driver.PutLongTerm(ctx, "summary", nil, nil, "p")
		Expect(err).NotTo(HaveOccurred())
		Expect(signaler.signals).To(Equal(1))
	})

	It("signals after updating a long-term entry", func() {
		id, err := driver.PutLongTerm(ctx, "before", nil, nil, "p")
		Expect(err).NotTo(HaveOccurred())

		err = driver.UpdateLongTerm(ctx, id, "after", nil, nil, "p")
		Expect(err).NotTo(HaveOccurred())
		Expect(signaler.signals).To(Equal(2))
	})

	It("does not signal when an update fails", func() {
		err := driver.UpdateLongTerm(ctx, "missing", "x", nil, nil, "p")
		Expect(err).To(HaveOccurred())
		Expect(signaler.signals).To(BeZero())
	})

	It("signals after clearing messages", func() {
		_, err := driver.ClearMessages(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(signaler.signals).To(Equal(1))
	})

	It("signals MarkConsolidated only when messages were flipped", func() {
		since := time.Now().UTC().Add(-time.Hour)

		count, err := driver.MarkConsolidated(ctx, since)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(BeZero())
		Expect(signaler.signals).To(BeZero())

		_, err = driver.AppendMessage(ctx, "s1", memory.RoleUser, "hello")
		Expect(err).NotTo(HaveOccurred())

		count, err = driver.MarkConsolidated(ctx, since)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(int64(1)))
		Expect(signaler.signals).To(Equal(2))
	})

	It("passes reads through without signaling", func() {
		_, err := driver.AppendMessage(ctx, "s1", memory.RoleUser, "hello")
		Expect(err).NotTo(HaveOccurred())

		sessions, err := driver.RecentSessions(ctx, 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(sessions).To(HaveLen(1))

		count, err := driver.CountMessages(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(int64(1)))

		Expect(signaler.signals).To(Equal(1))
	})
})
