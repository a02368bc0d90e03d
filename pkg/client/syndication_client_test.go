package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "github.com/kolhub/metrics-worker/pkg/client"
)

var _ = Describe("SyndicationClient", func() {
	var (
		mockServer *httptest.Server
		client     *SyndicationClient
		gotQuery   map[string]string
	)

	BeforeEach(func() {
		gotQuery = map[string]string{}
		mockServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/tweet-result"))
			for k := range r.URL.Query() {
				gotQuery[k] = r.URL.Query().Get(k)
			}

			switch r.URL.Query().Get("id") {
			case "1234567890123456789":
				w.Write([]byte(`{"__typename":"Tweet","id_str":"1234567890123456789"}`))
			case "404404404":
				w.WriteHeader(http.StatusNotFound)
			default:
				w.Write([]byte(``))
			}
		}))

		var err error
		client, err = NewSyndicationClient(BaseURL(mockServer.URL))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		mockServer.Close()
	})

	It("requests the tweet with a derived token", func() {
		body, err := client.GetTweetResult(context.Background(), "1234567890123456789")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(ContainSubstring(`"__typename":"Tweet"`))

		Expect(gotQuery["id"]).To(Equal("1234567890123456789"))
		Expect(gotQuery["lang"]).To(Equal("en"))
		// The token derivation never emits zeros or a radix point.
		Expect(gotQuery["token"]).NotTo(BeEmpty())
		Expect(gotQuery["token"]).NotTo(ContainSubstring("0"))
		Expect(gotQuery["token"]).NotTo(ContainSubstring("."))
	})

	It("treats non-200 responses as errors", func() {
		_, err := client.GetTweetResult(context.Background(), "404404404")
		Expect(err).To(HaveOccurred())
	})

	It("treats an empty payload as an error", func() {
		_, err := client.GetTweetResult(context.Background(), "777")
		Expect(err).To(HaveOccurred())
	})
})
