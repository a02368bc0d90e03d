package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kolhub/metrics-worker/api/types"
	"github.com/kolhub/metrics-worker/internal/config"
	"github.com/kolhub/metrics-worker/internal/credentials"
	"github.com/kolhub/metrics-worker/internal/pipeline"
	"github.com/kolhub/metrics-worker/internal/pipeline/stats"
)

// RefreshStore is the persistence surface the refresh job needs.
type RefreshStore interface {
	ListPostsDueForRefresh(ctx context.Context, window time.Duration, campaignID string) ([]types.Post, error)
	UpdatePostMetrics(ctx context.Context, p *types.Post) error
	InsertPostSnapshot(ctx context.Context, snap *types.PostMetricSnapshot) error
	ListActiveKOLs(ctx context.Context, orgID string) ([]types.KOL, error)
	GetKOL(ctx context.Context, id string) (*types.KOL, error)
	UpdateKOLProfile(ctx context.Context, kolID string, profile *types.ScrapedProfile) error
	FollowerBaseline(ctx context.Context, kolID string) (int, error)
	InsertKOLFollowerSnapshot(ctx context.Context, snap *types.KOLFollowerSnapshot) error
	RecomputeKOLEngagementAverages(ctx context.Context, kolID string) error
}

// TweetSource is the fetch surface shared by the jobs, satisfied by
// pipeline.Fetcher.
type TweetSource interface {
	FetchTweet(ctx context.Context, creds *credentials.Context, idOrURL string) (*types.ScrapedTweet, error)
	FetchProfile(ctx context.Context, creds *credentials.Context, handle string) (*types.ScrapedProfile, error)
	SearchRecent(ctx context.Context, creds *credentials.Context, query string, limit int) ([]types.ScrapedTweet, error)
}

// Refresher runs the periodic metrics refresh: post metrics plus KOL
// profiles, each in isolated batches.
type Refresher struct {
	cfg   *config.AppConfig
	store RefreshStore
	fetch TweetSource
	stats *stats.Collector
}

func NewRefresher(cfg *config.AppConfig, store RefreshStore, fetch TweetSource, collector *stats.Collector) *Refresher {
	return &Refresher{cfg: cfg, store: store, fetch: fetch, stats: collector}
}

// Run refreshes all due posts, then all active KOLs, with the caller's
// credential set. Both halves span every organization. The two halves are
// independent: a failing half reports its counts and does not abort the
// other.
func (r *Refresher) Run(ctx context.Context, creds *credentials.Context) (*types.RefreshSummary, error) {
	logrus.Infof("Starting metrics refresh with credentials of org %s", creds.OrgID)

	summary := &types.RefreshSummary{}

	posts, err := r.RefreshPosts(ctx, creds, "")
	if err != nil {
		logrus.Errorf("Post refresh failed: %v", err)
	} else {
		summary.Posts = posts
	}

	kols, err := r.RefreshKOLs(ctx, creds, "")
	if err != nil {
		logrus.Errorf("KOL refresh failed: %v", err)
	} else {
		summary.KOLs = kols
	}

	logrus.Infof("Metrics refresh done: posts %d/%d, kols %d/%d",
		summary.Posts.Success, summary.Posts.Total,
		summary.KOLs.Success, summary.KOLs.Total)
	return summary, nil
}

// RefreshPosts refreshes every POSTED/VERIFIED post inside the refresh
// window, optionally scoped to one campaign.
func (r *Refresher) RefreshPosts(ctx context.Context, creds *credentials.Context, campaignID string) (types.RefreshCounts, error) {
	posts, err := r.store.ListPostsDueForRefresh(ctx, r.cfg.RefreshWindow, campaignID)
	if err != nil {
		return types.RefreshCounts{}, fmt.Errorf("list due posts: %w", err)
	}

	byID := make(map[string]*types.Post, len(posts))
	keys := make([]string, 0, len(posts))
	for i := range posts {
		byID[posts[i].ID] = &posts[i]
		keys = append(keys, posts[i].ID)
	}

	result := pipeline.RunBatches(ctx, keys, r.cfg.PostBatchSize, r.cfg.BatchDelay, func(ctx context.Context, key string) error {
		return r.refreshPost(ctx, creds, byID[key])
	})

	return types.RefreshCounts{
		Total:   len(posts),
		Success: result.Succeeded,
		Failed:  result.Failed,
	}, nil
}

func (r *Refresher) refreshPost(ctx context.Context, creds *credentials.Context, post *types.Post) error {
	tweet, err := r.fetch.FetchTweet(ctx, creds, post.TweetID)
	if err != nil {
		return fmt.Errorf("fetch tweet %s: %w", post.TweetID, err)
	}

	post.Impressions = tweet.Metrics.Views
	post.Likes = tweet.Metrics.Likes
	post.Retweets = tweet.Metrics.Retweets
	post.Replies = tweet.Metrics.Replies
	post.Quotes = tweet.Metrics.Quotes
	post.Bookmarks = tweet.Metrics.Bookmarks
	post.EngagementRate = pipeline.EngagementRate(tweet.Metrics)

	if err := r.store.UpdatePostMetrics(ctx, post); err != nil {
		return fmt.Errorf("update post %s: %w", post.ID, err)
	}

	snap := &types.PostMetricSnapshot{
		PostID:         post.ID,
		Impressions:    post.Impressions,
		Likes:          post.Likes,
		Retweets:       post.Retweets,
		Replies:        post.Replies,
		Quotes:         post.Quotes,
		Bookmarks:      post.Bookmarks,
		EngagementRate: post.EngagementRate,
	}
	if err := r.store.InsertPostSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("snapshot post %s: %w", post.ID, err)
	}

	r.stats.Add(creds.OrgID, stats.PostsRefreshed, 1)
	r.stats.Add(creds.OrgID, stats.SnapshotsWritten, 1)
	return nil
}

// RefreshKOLs refreshes profile data for every ACTIVE KOL with a handle,
// optionally scoped to one organization.
func (r *Refresher) RefreshKOLs(ctx context.Context, creds *credentials.Context, orgID string) (types.RefreshCounts, error) {
	kols, err := r.store.ListActiveKOLs(ctx, orgID)
	if err != nil {
		return types.RefreshCounts{}, fmt.Errorf("list active kols: %w", err)
	}

	byID := make(map[string]*types.KOL, len(kols))
	keys := make([]string, 0, len(kols))
	for i := range kols {
		// A KOL without a handle cannot be fetched from any provider.
		if kols[i].Handle == "" {
			continue
		}
		byID[kols[i].ID] = &kols[i]
		keys = append(keys, kols[i].ID)
	}

	result := pipeline.RunBatches(ctx, keys, r.cfg.KOLBatchSize, r.cfg.BatchDelay, func(ctx context.Context, key string) error {
		return r.refreshKOL(ctx, creds, byID[key])
	})

	return types.RefreshCounts{
		Total:   len(keys),
		Success: result.Succeeded,
		Failed:  result.Failed,
	}, nil
}

// RefreshKOLByID refreshes a single KOL, used by the on-demand endpoint.
func (r *Refresher) RefreshKOLByID(ctx context.Context, creds *credentials.Context, kolID string) error {
	kol, err := r.store.GetKOL(ctx, kolID)
	if err != nil {
		return err
	}
	return r.refreshKOL(ctx, creds, kol)
}

func (r *Refresher) refreshKOL(ctx context.Context, creds *credentials.Context, kol *types.KOL) error {
	profile, err := r.fetch.FetchProfile(ctx, creds, kol.Handle)
	if err != nil {
		return fmt.Errorf("fetch profile %s: %w", kol.Handle, err)
	}

	// The baseline must be read before the current value is overwritten:
	// without prior snapshots the delta is measured against it.
	baseline, err := r.store.FollowerBaseline(ctx, kol.ID)
	if err != nil {
		return fmt.Errorf("follower baseline %s: %w", kol.ID, err)
	}

	if err := r.store.UpdateKOLProfile(ctx, kol.ID, profile); err != nil {
		return fmt.Errorf("update kol %s: %w", kol.ID, err)
	}

	snap := &types.KOLFollowerSnapshot{
		KOLID:           kol.ID,
		FollowersCount:  profile.FollowersCount,
		FollowingCount:  profile.FollowingCount,
		FollowersChange: profile.FollowersCount - baseline,
	}
	if err := r.store.InsertKOLFollowerSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("snapshot kol %s: %w", kol.ID, err)
	}

	if err := r.store.RecomputeKOLEngagementAverages(ctx, kol.ID); err != nil {
		return fmt.Errorf("recompute averages %s: %w", kol.ID, err)
	}

	r.stats.Add(creds.OrgID, stats.KOLsRefreshed, 1)
	r.stats.Add(creds.OrgID, stats.SnapshotsWritten, 1)
	return nil
}
