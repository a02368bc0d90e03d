package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/kolhub/metrics-worker/api/types"
	"github.com/kolhub/metrics-worker/internal/config"
	"github.com/kolhub/metrics-worker/internal/credentials"
	"github.com/kolhub/metrics-worker/internal/pipeline/stats"
	"github.com/kolhub/metrics-worker/internal/providers"
	"github.com/kolhub/metrics-worker/pkg/client"
)

// Fetcher walks the provider fallback chain for single-item fetches. Chains
// are built fresh per call from the invocation's credential context, so no
// key material outlives the operation that decrypted it.
type Fetcher struct {
	cfg   *config.AppConfig
	stats *stats.Collector

	// Chain builders, replaceable in tests.
	tweetChainFn   func(creds *credentials.Context) []providers.TweetFetcher
	profileChainFn func(creds *credentials.Context) []providers.ProfileFetcher
	searcherFn     func(creds *credentials.Context) []providers.RecentSearcher
}

// NewFetcher creates a Fetcher wired to the real provider adapters.
func NewFetcher(cfg *config.AppConfig, collector *stats.Collector) *Fetcher {
	f := &Fetcher{cfg: cfg, stats: collector}
	f.tweetChainFn = f.buildTweetChain
	f.profileChainFn = f.buildProfileChain
	f.searcherFn = f.buildSearchers
	return f
}

// FetchTweet normalizes the identifier and tries providers in precedence
// order, returning the first success. The tertiary provider participates even
// without credentials since it is unauthenticated.
func (f *Fetcher) FetchTweet(ctx context.Context, creds *credentials.Context, idOrURL string) (*types.ScrapedTweet, error) {
	tweetID, err := providers.CanonicalTweetID(idOrURL)
	if err != nil {
		return nil, err
	}

	f.stats.Add(orgOf(creds), stats.TweetFetches, 1)

	chain := f.tweetChainFn(creds)
	if len(chain) == 0 {
		return nil, providers.ErrNoCredentials
	}

	var lastErr error
	for i, p := range chain {
		tweet, err := p.FetchTweet(ctx, tweetID)
		if err == nil {
			if i > 0 {
				f.stats.Add(orgOf(creds), stats.ProviderFallbacks, 1)
			}
			f.stats.Add(orgOf(creds), stats.TweetsReturned, 1)
			return tweet, nil
		}
		lastErr = err
		f.recordFailure(creds, err)
		logrus.Debugf("Provider %s failed for tweet %s: %v", p.Name(), tweetID, err)
	}

	return nil, fmt.Errorf("all providers failed for tweet %s: %w", tweetID, lastErr)
}

// FetchProfile tries providers 1→2 in order. The syndication endpoint has no
// profile support, so without primary or secondary credentials this is a
// definitive no-credentials outcome.
func (f *Fetcher) FetchProfile(ctx context.Context, creds *credentials.Context, handle string) (*types.ScrapedProfile, error) {
	if !creds.HasAnyProvider() {
		return nil, providers.ErrNoCredentials
	}

	f.stats.Add(orgOf(creds), stats.ProfileFetches, 1)

	var lastErr error
	for i, p := range f.profileChainFn(creds) {
		profile, err := p.FetchProfile(ctx, handle)
		if err == nil {
			if i > 0 {
				f.stats.Add(orgOf(creds), stats.ProviderFallbacks, 1)
			}
			f.stats.Add(orgOf(creds), stats.ProfilesReturned, 1)
			return profile, nil
		}
		lastErr = err
		f.recordFailure(creds, err)
		logrus.Debugf("Provider %s failed for profile %s: %v", p.Name(), handle, err)
	}

	return nil, fmt.Errorf("all providers failed for profile %s: %w", handle, lastErr)
}

// FetchAvatarAndBanner resolves just the image URLs for a handle, with the
// same precedence as FetchProfile.
func (f *Fetcher) FetchAvatarAndBanner(ctx context.Context, creds *credentials.Context, handle string) (avatarURL, bannerURL string, err error) {
	profile, err := f.FetchProfile(ctx, creds, handle)
	if err != nil {
		return "", "", err
	}
	return profile.AvatarURL, profile.BannerURL, nil
}

// SearchRecent searches recent tweets via the first provider with search
// capability (the syndication endpoint has none).
func (f *Fetcher) SearchRecent(ctx context.Context, creds *credentials.Context, query string, limit int) ([]types.ScrapedTweet, error) {
	if !creds.HasAnyProvider() {
		return nil, providers.ErrNoCredentials
	}

	f.stats.Add(orgOf(creds), stats.SearchQueries, 1)

	var lastErr error
	for _, s := range f.searcherFn(creds) {
		tweets, err := s.SearchRecent(ctx, query, limit)
		if err == nil {
			f.stats.Add(orgOf(creds), stats.TweetsReturned, uint(len(tweets)))
			return tweets, nil
		}
		lastErr = err
		f.recordFailure(creds, err)
		logrus.Debugf("Provider %s failed for search %q: %v", s.Name(), query, err)
	}

	return nil, fmt.Errorf("all providers failed for search %q: %w", query, lastErr)
}

// ValidateApifyKey checks the secondary provider token without spending actor
// quota. Surfaced in the scrape endpoint's debug block.
func (f *Fetcher) ValidateApifyKey(ctx context.Context, creds *credentials.Context) error {
	s := f.secondary(creds)
	if s == nil {
		return providers.ErrNoCredentials
	}
	return s.ValidateKey(ctx)
}

// recordFailure counts one provider failure, splitting out rate-limit hits.
func (f *Fetcher) recordFailure(creds *credentials.Context, err error) {
	f.stats.Add(orgOf(creds), stats.ProviderErrors, 1)
	if errors.Is(err, client.ErrRateLimited) {
		f.stats.Add(orgOf(creds), stats.RateLimitErrors, 1)
	}
}

func (f *Fetcher) buildTweetChain(creds *credentials.Context) []providers.TweetFetcher {
	var chain []providers.TweetFetcher
	if p := f.primary(creds); p != nil {
		chain = append(chain, p)
	}
	if s := f.secondary(creds); s != nil {
		chain = append(chain, s)
	}
	if syn, err := providers.NewSyndication(client.BaseURL(f.cfg.SyndicationBaseURL)); err == nil {
		chain = append(chain, syn)
	} else {
		logrus.Warnf("Syndication provider unavailable: %v", err)
	}
	return chain
}

func (f *Fetcher) buildProfileChain(creds *credentials.Context) []providers.ProfileFetcher {
	var chain []providers.ProfileFetcher
	if p := f.primary(creds); p != nil {
		chain = append(chain, p)
	}
	if s := f.secondary(creds); s != nil {
		chain = append(chain, s)
	}
	return chain
}

func (f *Fetcher) buildSearchers(creds *credentials.Context) []providers.RecentSearcher {
	var chain []providers.RecentSearcher
	if p := f.primary(creds); p != nil {
		chain = append(chain, p)
	}
	if s := f.secondary(creds); s != nil {
		chain = append(chain, s)
	}
	return chain
}

func (f *Fetcher) primary(creds *credentials.Context) *providers.Primary {
	if creds == nil || creds.SocialDataAPIKey == "" {
		return nil
	}
	p, err := providers.NewPrimary(creds.SocialDataAPIKey, client.BaseURL(f.cfg.MetricsAPIBaseURL))
	if err != nil {
		logrus.Warnf("Primary provider unavailable: %v", err)
		return nil
	}
	return p
}

func (f *Fetcher) secondary(creds *credentials.Context) *providers.Secondary {
	if creds == nil || creds.ApifyAPIKey == "" {
		return nil
	}
	s, err := providers.NewSecondary(creds.ApifyAPIKey, f.cfg.ApifyTweetActor, f.cfg.ApifyProfileActor, client.BaseURL(f.cfg.ApifyBaseURL))
	if err != nil {
		logrus.Warnf("Secondary provider unavailable: %v", err)
		return nil
	}
	return s
}

func orgOf(creds *credentials.Context) string {
	if creds == nil {
		return ""
	}
	return creds.OrgID
}
