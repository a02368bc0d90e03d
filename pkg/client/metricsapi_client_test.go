package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "github.com/kolhub/metrics-worker/pkg/client"
)

var _ = Describe("MetricsAPIClient", func() {
	var (
		mockServer *httptest.Server
		client     *MetricsAPIClient
		gotAuth    string
	)

	BeforeEach(func() {
		mockServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")

			switch r.URL.Path {
			case "/twitter/tweets/111":
				w.Write([]byte(`{"id_str":"111","full_text":"gm"}`))
			case "/twitter/ratelimited":
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"message":"rate limit exceeded"}`))
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))

		var err error
		client, err = NewMetricsAPIClient("test-key", BaseURL(mockServer.URL))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		mockServer.Close()
	})

	It("sends the API key as a bearer token", func() {
		_, err := client.Get(context.Background(), "twitter/tweets/111")
		Expect(err).NotTo(HaveOccurred())
		Expect(gotAuth).To(Equal("Bearer test-key"))
	})

	It("returns the raw body on success", func() {
		body, err := client.Get(context.Background(), "twitter/tweets/111")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(ContainSubstring(`"id_str":"111"`))
	})

	It("folds non-200 responses into errors with the body", func() {
		_, err := client.Get(context.Background(), "twitter/ratelimited")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("429"))
		Expect(err.Error()).To(ContainSubstring("rate limit exceeded"))
		Expect(errors.Is(err, ErrRateLimited)).To(BeTrue())
	})
})
