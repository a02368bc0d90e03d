package stats_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kolhub/metrics-worker/internal/pipeline/stats"
)

var _ = Describe("Collector", func() {
	var collector *stats.Collector

	BeforeEach(func() {
		collector = stats.StartCollector(16)
	})

	It("folds additions into per-org counters", func() {
		collector.Add("org-1", stats.TweetFetches, 2)
		collector.Add("org-1", stats.TweetFetches, 1)
		collector.Add("org-2", stats.PostsImported, 5)

		Eventually(func() uint {
			collector.Stats.Lock()
			defer collector.Stats.Unlock()
			return collector.Stats.Stats["org-1"][stats.TweetFetches]
		}).Should(Equal(uint(3)))

		Eventually(func() uint {
			collector.Stats.Lock()
			defer collector.Stats.Unlock()
			return collector.Stats.Stats["org-2"][stats.PostsImported]
		}).Should(Equal(uint(5)))
	})

	It("serializes to JSON with timing fields", func() {
		collector.Add("org-1", stats.ProviderErrors, 1)

		Eventually(func() bool {
			collector.Stats.Lock()
			defer collector.Stats.Unlock()
			return collector.Stats.Stats["org-1"][stats.ProviderErrors] == 1
		}).Should(BeTrue())

		body, err := collector.Json()
		Expect(err).NotTo(HaveOccurred())

		var decoded map[string]any
		Expect(json.Unmarshal(body, &decoded)).To(Succeed())
		Expect(decoded).To(HaveKey("boot_time"))
		Expect(decoded).To(HaveKey("current_time"))
		Expect(decoded["stats"]).To(HaveKey("org-1"))
	})

	It("ignores additions on a nil collector", func() {
		var c *stats.Collector
		Expect(func() { c.Add("org-1", stats.TweetFetches, 1) }).NotTo(Panic())
	})
})
