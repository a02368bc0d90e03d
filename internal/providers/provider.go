// Package providers contains the adapters for the external tweet/profile
// data providers and the normalization of their responses into the canonical
// shapes in api/types.
//
// Adapters never panic or leak transport errors past their boundary: every
// network or parse failure is converted into an error wrapping
// ErrUnavailable so the fetch chain can fall through to the next provider.
package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/kolhub/metrics-worker/api/types"
)

var (
	// ErrUnavailable marks a single provider's failure. Only when every
	// provider in the chain returns it does the fetch itself fail.
	ErrUnavailable = errors.New("provider unavailable")

	// ErrNoCredentials means no provider in the chain had usable credentials.
	ErrNoCredentials = errors.New("no provider credentials configured")

	// ErrMalformedIdentifier means a tweet URL or id could not be normalized.
	ErrMalformedIdentifier = errors.New("malformed tweet identifier")
)

// Provider names, in fallback precedence order.
const (
	NamePrimary     = "metrics-api"
	NameSecondary   = "apify"
	NameSyndication = "syndication"
)

// TweetFetcher fetches a single tweet by canonical id.
type TweetFetcher interface {
	Name() string
	FetchTweet(ctx context.Context, tweetID string) (*types.ScrapedTweet, error)
}

// ProfileFetcher fetches a profile by handle. The syndication provider does
// not implement it.
type ProfileFetcher interface {
	Name() string
	FetchProfile(ctx context.Context, handle string) (*types.ScrapedProfile, error)
}

// RecentSearcher searches recent tweets matching a query. Used by the
// campaign scrape flow (`from:<handle> <keyword>`).
type RecentSearcher interface {
	Name() string
	SearchRecent(ctx context.Context, query string, limit int) ([]types.ScrapedTweet, error)
}

// unavailable wraps a provider failure so it participates in the fallback
// chain while keeping the original cause inspectable.
func unavailable(name string, cause error) error {
	return fmt.Errorf("%s: %w: %w", name, ErrUnavailable, cause)
}
