package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/kolhub/metrics-worker/api/types"
	"github.com/kolhub/metrics-worker/pkg/client"
)

// Primary adapts the metrics API (API-key based, first in precedence). It
// supports tweets, profiles and recent search.
type Primary struct {
	client *client.MetricsAPIClient
}

// NewPrimary builds the primary adapter from a tenant API key.
func NewPrimary(apiKey string, opts ...client.Option) (*Primary, error) {
	c, err := client.NewMetricsAPIClient(apiKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics API client: %w", err)
	}
	return &Primary{client: c}, nil
}

func (p *Primary) Name() string { return NamePrimary }

// FetchTweet fetches a single tweet by id.
func (p *Primary) FetchTweet(ctx context.Context, tweetID string) (*types.ScrapedTweet, error) {
	body, err := p.client.Get(ctx, "twitter/tweets/"+tweetID)
	if err != nil {
		return nil, unavailable(NamePrimary, err)
	}

	var t primaryTweet
	if err := json.Unmarshal(body, &t); err != nil {
		return nil, unavailable(NamePrimary, fmt.Errorf("decoding tweet: %w", err))
	}
	if t.IDStr == "" {
		return nil, unavailable(NamePrimary, fmt.Errorf("tweet %s not in response", tweetID))
	}

	return normalizePrimaryTweet(t), nil
}

// FetchProfile fetches a profile by handle.
func (p *Primary) FetchProfile(ctx context.Context, handle string) (*types.ScrapedProfile, error) {
	body, err := p.client.Get(ctx, "twitter/user/"+url.PathEscape(handle))
	if err != nil {
		return nil, unavailable(NamePrimary, err)
	}

	var u primaryUser
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, unavailable(NamePrimary, fmt.Errorf("decoding profile: %w", err))
	}
	if u.ScreenName == "" {
		return nil, unavailable(NamePrimary, fmt.Errorf("profile %s not in response", handle))
	}

	return normalizePrimaryProfile(u), nil
}

// SearchRecent searches recent tweets matching the query.
func (p *Primary) SearchRecent(ctx context.Context, query string, limit int) ([]types.ScrapedTweet, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("type", "Latest")
	params.Set("max_results", strconv.Itoa(limit))

	body, err := p.client.Get(ctx, "twitter/search?"+params.Encode())
	if err != nil {
		return nil, unavailable(NamePrimary, err)
	}

	var result struct {
		Tweets []primaryTweet `json:"tweets"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, unavailable(NamePrimary, fmt.Errorf("decoding search result: %w", err))
	}

	tweets := make([]types.ScrapedTweet, 0, len(result.Tweets))
	for _, t := range result.Tweets {
		if len(tweets) >= limit {
			break
		}
		tweets = append(tweets, *normalizePrimaryTweet(t))
	}
	logrus.Debugf("Primary search %q returned %d tweets", query, len(tweets))
	return tweets, nil
}
