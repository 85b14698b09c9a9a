package memory_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/memory"
)

var _ = Describe("Role", func() {
	It("accepts the known roles", func() {
		Expect(memory.RoleUser.Valid()).To(BeTrue())
		Expect(memory.RoleAssistant.Valid()).To(BeTrue())
		Expect(memory.RoleSystem.Valid()).To(BeTrue())
	})

	It("rejects unknown roles", func() {
		Expect(memory.Role("narrator").Valid()).To(BeFalse())
		Expect(memory.Role("").Valid()).To(BeFalse())
	})
})

var _ = Describe("Scope", func() {
	It("accepts the known scopes", func() {
		Expect(memory.ScopeShortTerm.Valid()).To(BeTrue())
		Expect(memory.ScopeLongTerm.Valid()).To(BeTrue())
		Expect(memory.ScopeBoth.Valid()).To(BeTrue())
	})

	It("rejects unknown scopes", func() {
		Expect(memory.Scope("everything").Valid()).To(BeFalse())
		Expect(memory.Scope("").Valid()).To(BeFalse())
	})
})

var _ = Describe("Session", func() {
	It("reports the last message's timestamp as last activity", func() {
		early := time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC)
		late := early.Add(time.Hour)

		s := memory.Session{
			ID: "s1",
			Messages: []memory.Message{
				{Timestamp: early},
				{Timestamp: late},
			},
		}

		Expect(s.LastActivity()).To(Equal(late))
	})

	It("reports the zero time for an empty session", func() {
		Expect(memory.Session{ID: "empty"}.LastActivity()).To(BeZero())
	})
})
