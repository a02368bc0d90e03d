package types

import "time"

type PostStatus string

const (
	PostStatusDraft           PostStatus = "DRAFT"
	PostStatusPendingApproval PostStatus = "PENDING_APPROVAL"
	PostStatusApproved        PostStatus = "APPROVED"
	PostStatusPosted          PostStatus = "POSTED"
	PostStatusVerified        PostStatus = "VERIFIED"
	PostStatusRejected        PostStatus = "REJECTED"
)

type PostType string

const (
	PostTypeOriginal PostType = "ORIGINAL"
	PostTypeRetweet  PostType = "RETWEET"
	PostTypeQuote    PostType = "QUOTE"
)

// PostTypeOf derives the post type from the scraped retweet/quote flags.
func PostTypeOf(isRetweet, isQuote bool) PostType {
	switch {
	case isRetweet:
		return PostTypeRetweet
	case isQuote:
		return PostTypeQuote
	default:
		return PostTypeOriginal
	}
}

// Post is a tracked campaign deliverable. Identity is the tweet URL, unique
// per campaign. Current-value metric fields are overwritten by the refresh
// job; historical values live in PostMetricSnapshot rows.
type Post struct {
	ID         string `json:"id"`
	CampaignID string `json:"campaignId"`
	KOLID      string `json:"kolId"`

	TweetID  string `json:"tweetId"`
	TweetURL string `json:"tweetUrl"`
	Content  string `json:"content"`

	Status PostStatus `json:"status"`
	Type   PostType   `json:"type"`

	Impressions    int     `json:"impressions"`
	Likes          int     `json:"likes"`
	Retweets       int     `json:"retweets"`
	Replies        int     `json:"replies"`
	Quotes         int     `json:"quotes"`
	Bookmarks      int     `json:"bookmarks"`
	EngagementRate float64 `json:"engagementRate"`

	MatchedKeywords []string `json:"matchedKeywords"`
	HasKeywordMatch bool     `json:"hasKeywordMatch"`

	PostedAt          *time.Time `json:"postedAt,omitempty"`
	LastMetricsUpdate *time.Time `json:"lastMetricsUpdate,omitempty"`
}

// PostMetricSnapshot is an append-only capture of a post's metrics at
// CapturedAt. Rows are never updated or deleted.
type PostMetricSnapshot struct {
	ID             string    `json:"id"`
	PostID         string    `json:"postId"`
	Impressions    int       `json:"impressions"`
	Likes          int       `json:"likes"`
	Retweets       int       `json:"retweets"`
	Replies        int       `json:"replies"`
	Quotes         int       `json:"quotes"`
	Bookmarks      int       `json:"bookmarks"`
	EngagementRate float64   `json:"engagementRate"`
	CapturedAt     time.Time `json:"capturedAt"`
}
