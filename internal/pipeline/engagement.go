package pipeline

import (
	"math"

	"github.com/kolhub/metrics-worker/api/types"
)

// EngagementRate computes (likes+retweets+replies+quotes)/impressions as a
// percentage, rounded to two decimals. Zero impressions yields exactly 0.
func EngagementRate(m types.TweetMetrics) float64 {
	if m.Views == 0 {
		return 0
	}
	rate := float64(m.Interactions()) / float64(m.Views) * 100
	return round2(rate)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
