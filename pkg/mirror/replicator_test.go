package mirror_test

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/mirror"
	"github.com/papercomputeco/engram/pkg/storage"
	"github.com/papercomputeco/engram/pkg/storage/inmemory"
)

type recordingMirror struct {
	mu       sync.Mutex
	pushes   []*storage.Export
	failures int
}

func (m *recordingMirror) Push(_ context.Context, export *storage.Export) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failures > 0 {
		m.failures--
		return errors.New("upload failed")
	}
	m.pushes = append(m.pushes, export)
	return nil
}

func (m *recordingMirror) Close() error {
	return nil
}

func (m *recordingMirror) pushCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pushes)
}

func (m *recordingMirror) lastPush() *storage.Export {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pushes) == 0 {
		return nil
	}
	return m.pushes[len(m.pushes)-1]
}

var _ = Describe("Replicator", func() {
	var (
		driver *inmemory.Driver
		remote *recordingMirror
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()
		remote = &recordingMirror{}
	})

	It("pushes a snapshot after a signal", func() {
		_, err := driver.AppendMessage(ctx, "s1", memory.RoleUser, "hello")
		Expect(err).NotTo(HaveOccurred())

		r := mirror.NewReplicator(mirror.Config{
			Source: driver,
			Mirror: remote,
			Logger: logger.Nop(),
		})

		r.Signal()
		Eventually(remote.pushCount).Should(BeNumerically(">=", 1))
		r.Close()

		Expect(remote.lastPush().Messages).To(HaveLen(1))
	})

	It("defaults the logger when none is configured", func() {
		r := mirror.NewReplicator(mirror.Config{
			Source: driver,
			Mirror: remote,
		})

		r.Signal()
		Eventually(remote.pushCount).Should(BeNumerically(">=", 1))
		r.Close()
	})

	It("drains a pending signal on close", func() {
		r := mirror.NewReplicator(mirror.Config{
			Source: driver,
			Mirror: remote,
			Logger: logger.Nop(),
		})

		r.Signal()
		r.Close()

		Expect(remote.pushCount()).To(BeNumerically(">=", 1))
	})

	It("retries a failed upload", func() {
		remote.failures = 1

		r := mirror.NewReplicator(mirror.Config{
			Source:         driver,
			Mirror:         remote,
			MaxAttempts:    3,
			InitialBackoff: 1,
			Logger:         logger.Nop(),
		})

		r.Signal()
		Eventually(remote.pushCount).Should(Equal(1))
		r.Close()
	})

	It("survives exhausting every attempt", func() {
		remote.failures = 10

		r := mirror.NewReplicator(mirror.Config{
			Source:         driver,
			Mirror:         remote,
			MaxAttempts:    2,
			InitialBackoff: 1,
			Logger:         logger.Nop(),
		})

		r.Signal()
		r.Close()

		Expect(remote.pushCount()).To(BeZero())
	})

	It("coalesces back-to-back signals", func() {
		r := mirror.NewReplicator(mirror.Config{
			Source: driver,
			Mirror: remote,
			Logger: logger.Nop(),
		})

		for range 20 {
			r.Signal()
		}
		r.Close()

		// At most one push can be in flight plus one trailing coalesced push.
		Expect(remote.pushCount()).To(BeNumerically("<=", 20))
		Expect(remote.pushCount()).To(BeNumerically(">=", 1))
	})
})
