package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "github.com/kolhub/metrics-worker/pkg/client"
)

func runJSON(id, status, datasetID string) string {
	body, _ := json.Marshal(map[string]any{
		"data": map[string]any{
			"id":               id,
			"status":           status,
			"defaultDatasetId": datasetID,
		},
	})
	return string(body)
}

var _ = Describe("ApifyClient", func() {
	var (
		mockServer *httptest.Server
		client     *ApifyClient
		polls      atomic.Int32
	)

	BeforeEach(func() {
		polls.Store(0)
		mockServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Query().Get("token")).To(Equal("test-token"))

			switch r.URL.Path {
			case "/acts/apidojo~tweet-scraper/runs":
				Expect(r.Method).To(Equal(http.MethodPost))
				w.WriteHeader(http.StatusCreated)
				w.Write([]byte(runJSON("run-1", "RUNNING", "ds-1")))
			case "/actor-runs/run-1":
				// First poll still running, second succeeded.
				if polls.Add(1) < 2 {
					w.Write([]byte(runJSON("run-1", "RUNNING", "ds-1")))
				} else {
					w.Write([]byte(runJSON("run-1", "SUCCEEDED", "ds-1")))
				}
			case "/actor-runs/run-failed":
				w.Write([]byte(runJSON("run-failed", "FAILED", "")))
			case "/datasets/ds-1/items":
				w.Write([]byte(`[{"id":"111"},{"id":"222"}]`))
			case "/users/me":
				w.WriteHeader(http.StatusOK)
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))

		var err error
		client, err = NewApifyClient("test-token", BaseURL(mockServer.URL))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		mockServer.Close()
	})

	Describe("RunActor", func() {
		It("starts a run and returns its metadata", func() {
			run, err := client.RunActor(context.Background(), "apidojo~tweet-scraper", map[string]any{"maxItems": 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(run.Data.ID).To(Equal("run-1"))
			Expect(run.Data.DefaultDatasetId).To(Equal("ds-1"))
		})
	})

	Describe("GetDatasetItems", func() {
		It("decodes the bare item array", func() {
			items, err := client.GetDatasetItems(context.Background(), "ds-1", 0, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(2))
		})
	})

	Describe("RunActorAndWait", func() {
		It("polls until the run succeeds and returns the dataset", func() {
			items, err := client.RunActorAndWait(context.Background(), "apidojo~tweet-scraper", map[string]any{}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(2))
			Expect(polls.Load()).To(BeNumerically(">=", 2))
		})

		It("surfaces a terminal failure without retrying forever", func() {
			run, err := client.GetActorRun(context.Background(), "run-failed")
			Expect(err).NotTo(HaveOccurred())
			Expect(run.Data.Status).To(Equal("FAILED"))
		})
	})

	Describe("ValidateApiKey", func() {
		It("accepts a valid token", func() {
			Expect(client.ValidateApiKey(context.Background())).To(Succeed())
		})
	})
})
