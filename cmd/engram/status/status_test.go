package statuscmder_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	statuscmder "github.com/papercomputeco/engram/cmd/engram/status"
)

var _ = Describe("NewStatusCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := statuscmder.NewStatusCmd()
		Expect(cmd.Use).To(Equal("status"))
	})

	It("rejects any arguments", func() {
		cmd := statuscmder.NewStatusCmd()
		err := cmd.Args(cmd, []string{"extra"})
		Expect(err).To(HaveOccurred())
	})

	It("has an --api-target flag", func() {
		cmd := statuscmder.NewStatusCmd()
		f := cmd.Flags().Lookup("api-target")
		Expect(f).NotTo(BeNil())
		Expect(f.Shorthand).To(Equal("a"))
	})
})

var _ = Describe("StatusAPI", func() {
	It("parses a status response", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/v1/status"))
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"session_id":"01ARZ3NDEKTSV4RRFFQ69G5FAV","messages":12,"long_term":3}`)
		}))
		defer server.Close()

		output, err := statuscmder.StatusAPI(server.URL)
		Expect(err).NotTo(HaveOccurred())
		Expect(output.SessionID).To(Equal("01ARZ3NDEKTSV4RRFFQ69G5FAV"))
		Expect(output.Messages).To(Equal(int64(12)))
		Expect(output.LongTerm).To(Equal(int64(3)))
	})

	It("returns an error for a non-200 response", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		_, err := statuscmder.StatusAPI(server.URL)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("HTTP 500"))
	})

	It("returns an error for an unreachable server", func() {
		_, err := statuscmder.StatusAPI("http://127.0.0.1:1")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("failed to connect"))
	})

	It("returns an error for malformed JSON", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, "not json")
		}))
		defer server.Close()

		_, err := statuscmder.StatusAPI(server.URL)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("parse"))
	})
})
