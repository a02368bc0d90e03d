package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/kolhub/metrics-worker/api/types"
	"github.com/kolhub/metrics-worker/pkg/client"
)

// Secondary adapts the actor-based scraping provider. Each fetch submits an
// actor run, waits for it to finish and reads its dataset.
type Secondary struct {
	client       *client.ApifyClient
	tweetActor   string
	profileActor string
}

// tweetActorInput is the input contract of the tweet scraping actor.
type tweetActorInput struct {
	TweetIDs    []string `json:"tweetIDs,omitempty"`
	SearchTerms []string `json:"searchTerms,omitempty"`
	Sort        string   `json:"sort,omitempty"`
	MaxItems    int      `json:"maxItems"`
}

// profileActorInput is the input contract of the profile scraping actor.
type profileActorInput struct {
	TwitterHandles []string `json:"twitterHandles"`
	MaxItems       int      `json:"maxItems"`
}

// NewSecondary builds the secondary adapter from a tenant Apify token.
func NewSecondary(apiToken, tweetActor, profileActor string, opts ...client.Option) (*Secondary, error) {
	c, err := client.NewApifyClient(apiToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create apify client: %w", err)
	}
	return &Secondary{
		client:       c,
		tweetActor:   tweetActor,
		profileActor: profileActor,
	}, nil
}

func (s *Secondary) Name() string { return NameSecondary }

// ValidateKey checks the token against the platform's user endpoint without
// spending actor quota.
func (s *Secondary) ValidateKey(ctx context.Context) error {
	return s.client.ValidateApiKey(ctx)
}

// FetchTweet fetches a single tweet by id via the tweet actor.
func (s *Secondary) FetchTweet(ctx context.Context, tweetID string) (*types.ScrapedTweet, error) {
	items, err := s.client.RunActorAndWait(ctx, s.tweetActor, tweetActorInput{
		TweetIDs: []string{tweetID},
		MaxItems: 1,
	}, 1)
	if err != nil {
		return nil, unavailable(NameSecondary, err)
	}

	tweets := s.decodeTweets(items)
	if len(tweets) == 0 {
		return nil, unavailable(NameSecondary, fmt.Errorf("tweet %s not in dataset", tweetID))
	}
	return &tweets[0], nil
}

// FetchProfile fetches a profile by handle via the profile actor.
func (s *Secondary) FetchProfile(ctx context.Context, handle string) (*types.ScrapedProfile, error) {
	items, err := s.client.RunActorAndWait(ctx, s.profileActor, profileActorInput{
		TwitterHandles: []string{handle},
		MaxItems:       1,
	}, 1)
	if err != nil {
		return nil, unavailable(NameSecondary, err)
	}

	for i, item := range items {
		var author apifyAuthor
		if err := json.Unmarshal(item, &author); err != nil {
			logrus.Warnf("Failed to unmarshal profile item %d: %v", i, err)
			continue
		}
		if author.UserName != "" {
			return normalizeApifyProfile(author), nil
		}
	}
	return nil, unavailable(NameSecondary, fmt.Errorf("profile %s not in dataset", handle))
}

// SearchRecent searches recent tweets matching the query via the tweet actor.
func (s *Secondary) SearchRecent(ctx context.Context, query string, limit int) ([]types.ScrapedTweet, error) {
	items, err := s.client.RunActorAndWait(ctx, s.tweetActor, tweetActorInput{
		SearchTerms: []string{query},
		Sort:        "Latest",
		MaxItems:    limit,
	}, limit)
	if err != nil {
		return nil, unavailable(NameSecondary, err)
	}

	tweets := s.decodeTweets(items)
	if len(tweets) > limit {
		tweets = tweets[:limit]
	}
	logrus.Debugf("Apify search %q returned %d tweets", query, len(tweets))
	return tweets, nil
}

func (s *Secondary) decodeTweets(items []json.RawMessage) []types.ScrapedTweet {
	tweets := make([]types.ScrapedTweet, 0, len(items))
	for i, item := range items {
		var t apifyTweetItem
		if err := json.Unmarshal(item, &t); err != nil {
			logrus.Warnf("Failed to unmarshal tweet item %d: %v", i, err)
			continue
		}
		if t.ID == "" {
			continue
		}
		tweets = append(tweets, *normalizeApifyTweet(t))
	}
	return tweets
}
