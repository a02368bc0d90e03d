package providers

import (
	"time"

	"github.com/kolhub/metrics-worker/api/types"
)

// Provider responses disagree on field names, on which counter means
// "impressions" (views_count vs viewCount vs nothing at all) and on whether
// a missing counter is null or zero. The mapping lives here, one function per
// provider and shape, so the differences stay in one place.

// twitterTimeLayout is the classic created_at format ("Wed Oct 10 20:19:24
// +0000 2018") still used by the secondary provider's actor output.
const twitterTimeLayout = time.RubyDate

// --- primary (metrics API) ---

type primaryUser struct {
	ScreenName           string `json:"screen_name"`
	FollowersCount       int    `json:"followers_count"`
	FriendsCount         int    `json:"friends_count"`
	ProfileImageURLHTTPS string `json:"profile_image_url_https"`
	ProfileBannerURL     string `json:"profile_banner_url"`
}

type primaryTweet struct {
	IDStr           string      `json:"id_str"`
	FullText        string      `json:"full_text"`
	TweetCreatedAt  string      `json:"tweet_created_at"`
	User            primaryUser `json:"user"`
	ViewsCount      *int        `json:"views_count"`
	FavoriteCount   int         `json:"favorite_count"`
	RetweetCount    int         `json:"retweet_count"`
	ReplyCount      int         `json:"reply_count"`
	QuoteCount      int         `json:"quote_count"`
	BookmarkCount   int         `json:"bookmark_count"`
	IsQuoteStatus   bool        `json:"is_quote_status"`
	RetweetedStatus *struct {
		ID string `json:"id_str"`
	} `json:"retweeted_status"`
}

func normalizePrimaryTweet(t primaryTweet) *types.ScrapedTweet {
	postedAt, _ := time.Parse(time.RFC3339, t.TweetCreatedAt)
	views := 0
	if t.ViewsCount != nil { // null means "not exposed", not zero
		views = *t.ViewsCount
	}
	return &types.ScrapedTweet{
		ID:           t.IDStr,
		URL:          TweetURL(t.User.ScreenName, t.IDStr),
		Content:      t.FullText,
		AuthorHandle: t.User.ScreenName,
		PostedAt:     postedAt,
		IsRetweet:    t.RetweetedStatus != nil,
		IsQuote:      t.IsQuoteStatus,
		Metrics: types.TweetMetrics{
			Views:     views,
			Likes:     t.FavoriteCount,
			Retweets:  t.RetweetCount,
			Replies:   t.ReplyCount,
			Quotes:    t.QuoteCount,
			Bookmarks: t.BookmarkCount,
		},
		Provider: NamePrimary,
	}
}

func normalizePrimaryProfile(u primaryUser) *types.ScrapedProfile {
	return &types.ScrapedProfile{
		Handle:         u.ScreenName,
		FollowersCount: u.FollowersCount,
		FollowingCount: u.FriendsCount,
		AvatarURL:      u.ProfileImageURLHTTPS,
		BannerURL:      u.ProfileBannerURL,
		Provider:       NamePrimary,
	}
}

// --- secondary (Apify actors) ---

type apifyAuthor struct {
	UserName       string `json:"userName"`
	Followers      int    `json:"followers"`
	Following      int    `json:"following"`
	ProfilePicture string `json:"profilePicture"`
	CoverPicture   string `json:"coverPicture"`
}

type apifyTweetItem struct {
	ID            string      `json:"id"`
	URL           string      `json:"url"`
	Text          string      `json:"text"`
	CreatedAt     string      `json:"createdAt"`
	RetweetCount  int         `json:"retweetCount"`
	ReplyCount    int         `json:"replyCount"`
	LikeCount     int         `json:"likeCount"`
	QuoteCount    int         `json:"quoteCount"`
	BookmarkCount int         `json:"bookmarkCount"`
	ViewCount     int         `json:"viewCount"`
	IsRetweet     bool        `json:"isRetweet"`
	IsQuote       bool        `json:"isQuote"`
	Author        apifyAuthor `json:"author"`
}

func normalizeApifyTweet(t apifyTweetItem) *types.ScrapedTweet {
	postedAt, _ := time.Parse(twitterTimeLayout, t.CreatedAt)
	url := t.URL
	if url == "" {
		url = TweetURL(t.Author.UserName, t.ID)
	}
	return &types.ScrapedTweet{
		ID:           t.ID,
		URL:          url,
		Content:      t.Text,
		AuthorHandle: t.Author.UserName,
		PostedAt:     postedAt,
		IsRetweet:    t.IsRetweet,
		IsQuote:      t.IsQuote,
		Metrics: types.TweetMetrics{
			Views:     t.ViewCount,
			Likes:     t.LikeCount,
			Retweets:  t.RetweetCount,
			Replies:   t.ReplyCount,
			Quotes:    t.QuoteCount,
			Bookmarks: t.BookmarkCount,
		},
		Provider: NameSecondary,
	}
}

func normalizeApifyProfile(a apifyAuthor) *types.ScrapedProfile {
	return &types.ScrapedProfile{
		Handle:         a.UserName,
		FollowersCount: a.Followers,
		FollowingCount: a.Following,
		AvatarURL:      a.ProfilePicture,
		BannerURL:      a.CoverPicture,
		Provider:       NameSecondary,
	}
}

// --- tertiary (public syndication endpoint) ---

type syndicationTweet struct {
	Typename string `json:"__typename"`
	IDStr    string `json:"id_str"`
	Text     string `json:"text"`
	User     struct {
		ScreenName string `json:"screen_name"`
	} `json:"user"`
	CreatedAt string `json:"created_at"`
	// The syndication payload only exposes likes and the conversation size.
	FavoriteCount     int `json:"favorite_count"`
	ConversationCount int `json:"conversation_count"`
}

func normalizeSyndicationTweet(t syndicationTweet) *types.ScrapedTweet {
	postedAt, _ := time.Parse(time.RFC3339, t.CreatedAt)
	return &types.ScrapedTweet{
		ID:           t.IDStr,
		URL:          TweetURL(t.User.ScreenName, t.IDStr),
		Content:      t.Text,
		AuthorHandle: t.User.ScreenName,
		PostedAt:     postedAt,
		Metrics: types.TweetMetrics{
			Likes:   t.FavoriteCount,
			Replies: t.ConversationCount,
		},
		Provider: NameSyndication,
	}
}
