package jobs

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"

	"github.com/kolhub/metrics-worker/api/types"
	"github.com/kolhub/metrics-worker/internal/config"
	"github.com/kolhub/metrics-worker/internal/credentials"
	"github.com/kolhub/metrics-worker/internal/pipeline"
	"github.com/kolhub/metrics-worker/internal/pipeline/stats"
	"github.com/kolhub/metrics-worker/internal/providers"
)

// ScrapeStore is the persistence surface the campaign scrape flow needs.
type ScrapeStore interface {
	GetCampaign(ctx context.Context, id string) (*types.Campaign, error)
	ListCampaignKOLs(ctx context.Context, campaignID string) ([]types.KOL, error)
	ListCampaignPostURLs(ctx context.Context, campaignID string) ([]string, error)
	InsertPostSkipDuplicate(ctx context.Context, p *types.Post) (bool, error)
}

// apifyKeyChecker is the optional token-validation capability of the tweet
// source, implemented by pipeline.Fetcher.
type apifyKeyChecker interface {
	ValidateApifyKey(ctx context.Context, creds *credentials.Context) error
}

// CampaignScraper runs the on-demand campaign scrape: KOL-driven recent
// searches or explicit tweet URLs, keyword scoring, optional auto-import.
type CampaignScraper struct {
	cfg   *config.AppConfig
	store ScrapeStore
	fetch TweetSource
	stats *stats.Collector
}

func NewCampaignScraper(cfg *config.AppConfig, store ScrapeStore, fetch TweetSource, collector *stats.Collector) *CampaignScraper {
	return &CampaignScraper{cfg: cfg, store: store, fetch: fetch, stats: collector}
}

// Run executes one scrape request against a campaign. Per-KOL and per-URL
// failures are embedded in the response; only campaign lookup and request
// validation fail the run itself.
func (s *CampaignScraper) Run(ctx context.Context, creds *credentials.Context, campaignID string, req *types.ScrapeRequest) (*types.ScrapeResponse, error) {
	campaign, err := s.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("load campaign %s: %w", campaignID, err)
	}

	keywords := campaign.Keywords
	if len(req.FilterKeywords) > 0 {
		keywords = req.FilterKeywords
	}

	seen, err := s.existingTweetIDs(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("load existing posts: %w", err)
	}

	kols, err := s.store.ListCampaignKOLs(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("load campaign kols: %w", err)
	}

	resp := &types.ScrapeResponse{
		Success: true,
		Debug: types.ScrapeDebug{
			APIKeyConfigured: creds.HasAnyProvider(),
			APIKeySource:     string(creds.Source),
		},
	}
	if creds.ApifyAPIKey != "" {
		if checker, ok := s.fetch.(apifyKeyChecker); ok {
			valid := checker.ValidateApifyKey(ctx, creds) == nil
			resp.Debug.ApifyKeyValid = &valid
		}
	}

	switch req.Mode {
	case types.ScrapeModeSingle:
		s.scrapeURLs(ctx, creds, req.TweetURLs, keywords, seen, resp)
	case types.ScrapeModeAll, "":
		s.scrapeKOLs(ctx, creds, kols, req.KOLIDs, keywords, seen, resp)
	default:
		return nil, fmt.Errorf("unknown scrape mode %q", req.Mode)
	}

	resp.TotalScraped = len(resp.Tweets)

	if req.AutoImport {
		resp.Imported, resp.ImportErrors = s.importTweets(ctx, creds, campaignID, kols, resp.Tweets)
	}

	return resp, nil
}

// existingTweetIDs builds the dedup set from the campaign's tracked posts.
// URLs that no longer parse are skipped rather than failing the scrape.
func (s *CampaignScraper) existingTweetIDs(ctx context.Context, campaignID string) (map[string]bool, error) {
	urls, err := s.store.ListCampaignPostURLs(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(urls))
	for _, u := range urls {
		id, err := providers.CanonicalTweetID(u)
		if err != nil {
			logrus.Debugf("Skipping unparseable tracked URL %s: %v", u, err)
			continue
		}
		seen[id] = true
	}
	return seen, nil
}

func (s *CampaignScraper) scrapeURLs(ctx context.Context, creds *credentials.Context, urls, keywords []string, seen map[string]bool, resp *types.ScrapeResponse) {
	for _, u := range urls {
		id, err := providers.CanonicalTweetID(u)
		if err != nil {
			resp.Results = append(resp.Results, types.KOLScrapeResult{
				KOL: u, Success: false, Error: err.Error(),
			})
			continue
		}
		if seen[id] {
			s.stats.Add(creds.OrgID, stats.DuplicatesSkipped, 1)
			continue
		}

		tweet, err := s.fetch.FetchTweet(ctx, creds, id)
		if err != nil {
			resp.Results = append(resp.Results, types.KOLScrapeResult{
				KOL: u, Success: false, Error: err.Error(),
			})
			continue
		}

		seen[id] = true
		resp.Tweets = append(resp.Tweets, annotate(*tweet, keywords))
		resp.Results = append(resp.Results, types.KOLScrapeResult{
			KOL: tweet.AuthorHandle, Success: true, Count: 1,
		})
	}
}

func (s *CampaignScraper) scrapeKOLs(ctx context.Context, creds *credentials.Context, kols []types.KOL, kolIDs, keywords []string, seen map[string]bool, resp *types.ScrapeResponse) {
	for _, kol := range kols {
		if len(kolIDs) > 0 && !slices.Contains(kolIDs, kol.ID) {
			continue
		}

		tweets, err := s.fetch.SearchRecent(ctx, creds, searchQuery(kol.Handle, keywords), s.cfg.RecentTweetLimit)
		if err != nil {
			resp.Results = append(resp.Results, types.KOLScrapeResult{
				KOL: kol.Handle, Success: false, Error: err.Error(),
			})
			continue
		}

		count := 0
		for _, tweet := range tweets {
			if seen[tweet.ID] {
				s.stats.Add(creds.OrgID, stats.DuplicatesSkipped, 1)
				continue
			}
			seen[tweet.ID] = true
			resp.Tweets = append(resp.Tweets, annotate(tweet, keywords))
			count++
		}
		resp.Results = append(resp.Results, types.KOLScrapeResult{
			KOL: kol.Handle, Success: true, Count: count,
		})
	}
}

// importTweets inserts the scraped tweets as POSTED posts, skipping
// duplicates silently. Tweets whose author is not an assigned KOL are left
// in the response but not imported. Insert failures are collected for the
// response instead of aborting the batch.
func (s *CampaignScraper) importTweets(ctx context.Context, creds *credentials.Context, campaignID string, kols []types.KOL, tweets []types.AnnotatedTweet) (int, []string) {
	imported := 0
	var importErrors []string
	for _, tweet := range tweets {
		kolID := kolIDByHandle(kols, tweet.AuthorHandle)
		if kolID == "" {
			logrus.Debugf("No assigned KOL for author %s, not importing %s", tweet.AuthorHandle, tweet.ID)
			continue
		}

		postedAt := tweet.PostedAt
		post := &types.Post{
			CampaignID:      campaignID,
			KOLID:           kolID,
			TweetID:         tweet.ID,
			TweetURL:        tweet.URL,
			Content:         tweet.Content,
			Status:          types.PostStatusPosted,
			Type:            types.PostTypeOf(tweet.IsRetweet, tweet.IsQuote),
			Impressions:     tweet.Metrics.Views,
			Likes:           tweet.Metrics.Likes,
			Retweets:        tweet.Metrics.Retweets,
			Replies:         tweet.Metrics.Replies,
			Quotes:          tweet.Metrics.Quotes,
			Bookmarks:       tweet.Metrics.Bookmarks,
			EngagementRate:  pipeline.EngagementRate(tweet.Metrics),
			MatchedKeywords: tweet.MatchedKeywords,
			HasKeywordMatch: tweet.HasKeywordMatch,
			PostedAt:        &postedAt,
		}

		inserted, err := s.store.InsertPostSkipDuplicate(ctx, post)
		if err != nil {
			logrus.Errorf("Import of tweet %s failed: %v", tweet.ID, err)
			importErrors = append(importErrors, fmt.Sprintf("tweet %s: %v", tweet.ID, err))
			continue
		}
		if !inserted {
			s.stats.Add(creds.OrgID, stats.DuplicatesSkipped, 1)
			continue
		}
		imported++
		s.stats.Add(creds.OrgID, stats.PostsImported, 1)
	}
	return imported, importErrors
}

// searchQuery builds the provider search expression for one KOL.
func searchQuery(handle string, keywords []string) string {
	q := "from:" + handle
	if len(keywords) > 0 {
		q += " " + strings.Join(keywords, " OR ")
	}
	return q
}

// annotate scores a tweet against the campaign keywords with
// case-insensitive substring matching.
func annotate(tweet types.ScrapedTweet, keywords []string) types.AnnotatedTweet {
	content := strings.ToLower(tweet.Content)
	var matched []string
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(content, strings.ToLower(kw)) {
			matched = append(matched, kw)
		}
	}
	return types.AnnotatedTweet{
		ScrapedTweet:    tweet,
		MatchedKeywords: matched,
		HasKeywordMatch: len(matched) > 0,
	}
}

func kolIDByHandle(kols []types.KOL, handle string) string {
	for _, kol := range kols {
		if strings.EqualFold(kol.Handle, handle) {
			return kol.ID
		}
	}
	return ""
}
