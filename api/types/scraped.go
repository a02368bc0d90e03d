package types

import "time"

// TweetMetrics holds the engagement counters for a single tweet as reported
// by a provider. Providers that do not report a counter leave it at zero.
type TweetMetrics struct {
	Views     int `json:"views"`
	Likes     int `json:"likes"`
	Retweets  int `json:"retweets"`
	Replies   int `json:"replies"`
	Quotes    int `json:"quotes"`
	Bookmarks int `json:"bookmarks"`
}

// Interactions is the sum of all active engagement counters (views excluded).
func (m TweetMetrics) Interactions() int {
	return m.Likes + m.Retweets + m.Replies + m.Quotes
}

// ScrapedTweet is the provider-agnostic shape every adapter normalizes into.
// It is produced fresh on every fetch and never persisted verbatim; the
// refresh and import flows project it into Post rows.
type ScrapedTweet struct {
	ID           string       `json:"id"`
	URL          string       `json:"url"`
	Content      string       `json:"content"`
	AuthorHandle string       `json:"authorHandle"`
	PostedAt     time.Time    `json:"postedAt"`
	IsRetweet    bool         `json:"isRetweet"`
	IsQuote      bool         `json:"isQuote"`
	Metrics      TweetMetrics `json:"metrics"`

	// Provider records which adapter produced the result. Diagnostic only.
	Provider string `json:"provider,omitempty"`
}

// ScrapedProfile is the normalized profile shape. Same lifecycle as
// ScrapedTweet.
type ScrapedProfile struct {
	Handle         string `json:"handle"`
	FollowersCount int    `json:"followersCount"`
	FollowingCount int    `json:"followingCount"`
	AvatarURL      string `json:"avatarUrl"`
	BannerURL      string `json:"bannerUrl"`

	Provider string `json:"provider,omitempty"`
}
