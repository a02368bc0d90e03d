package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kolhub/metrics-worker/api/types"
)

func TestEngagementRate(t *testing.T) {
	m := types.TweetMetrics{
		Views:    10000,
		Likes:    120,
		Retweets: 30,
		Replies:  15,
		Quotes:   5,
	}
	// (120+30+15+5)/10000 * 100 = 1.7
	assert.Equal(t, 1.7, EngagementRate(m))
}

func TestEngagementRateRoundsTwoDecimals(t *testing.T) {
	m := types.TweetMetrics{Views: 3, Likes: 1}
	// 1/3 * 100 = 33.333... -> 33.33
	assert.Equal(t, 33.33, EngagementRate(m))
}

func TestEngagementRateZeroImpressions(t *testing.T) {
	m := types.TweetMetrics{Likes: 500, Retweets: 100}
	assert.Zero(t, EngagementRate(m))
}

func TestEngagementRateBookmarksExcluded(t *testing.T) {
	with := types.TweetMetrics{Views: 1000, Likes: 10, Bookmarks: 50}
	without := types.TweetMetrics{Views: 1000, Likes: 10}
	assert.Equal(t, EngagementRate(without), EngagementRate(with))
}
