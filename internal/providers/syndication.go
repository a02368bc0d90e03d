package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kolhub/metrics-worker/api/types"
	"github.com/kolhub/metrics-worker/pkg/client"
)

// Syndication adapts the unauthenticated public syndication endpoint. Last
// resort, tweet-only, best effort: correctness never depends on it.
type Syndication struct {
	client *client.SyndicationClient
}

// NewSyndication builds the tertiary adapter. It needs no credentials.
func NewSyndication(opts ...client.Option) (*Syndication, error) {
	c, err := client.NewSyndicationClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create syndication client: %w", err)
	}
	return &Syndication{client: c}, nil
}

func (s *Syndication) Name() string { return NameSyndication }

// FetchTweet fetches a single tweet by id.
func (s *Syndication) FetchTweet(ctx context.Context, tweetID string) (*types.ScrapedTweet, error) {
	body, err := s.client.GetTweetResult(ctx, tweetID)
	if err != nil {
		return nil, unavailable(NameSyndication, err)
	}

	var t syndicationTweet
	if err := json.Unmarshal(body, &t); err != nil {
		return nil, unavailable(NameSyndication, fmt.Errorf("decoding tweet-result: %w", err))
	}
	// The endpoint answers deleted or withheld tweets with a tombstone.
	if t.Typename != "" && t.Typename != "Tweet" {
		return nil, unavailable(NameSyndication, fmt.Errorf("tweet %s is a %s", tweetID, t.Typename))
	}
	if t.IDStr == "" {
		return nil, unavailable(NameSyndication, fmt.Errorf("tweet %s not in response", tweetID))
	}

	return normalizeSyndicationTweet(t), nil
}
