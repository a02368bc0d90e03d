package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/kolhub/metrics-worker/api/types"
)

const postColumns = `id, campaign_id, kol_id, tweet_id, tweet_url, content,
	status, post_type, impressions, likes, retweets, replies, quotes,
	bookmarks, engagement_rate, matched_keywords, has_keyword_match,
	posted_at, last_metrics_update`

func scanPost(row sq.RowScanner) (*types.Post, error) {
	var p types.Post
	err := row.Scan(
		&p.ID, &p.CampaignID, &p.KOLID, &p.TweetID, &p.TweetURL, &p.Content,
		&p.Status, &p.Type, &p.Impressions, &p.Likes, &p.Retweets, &p.Replies,
		&p.Quotes, &p.Bookmarks, &p.EngagementRate,
		pq.Array(&p.MatchedKeywords), &p.HasKeywordMatch,
		&p.PostedAt, &p.LastMetricsUpdate,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPostsDueForRefresh returns POSTED/VERIFIED posts whose posted_at falls
// inside the refresh window. campaignID narrows the set to one campaign;
// empty means all campaigns.
func (s *Store) ListPostsDueForRefresh(ctx context.Context, window time.Duration, campaignID string) ([]types.Post, error) {
	q := s.sb.
		Select(postColumns).
		From("posts").
		Where(sq.Eq{"status": []types.PostStatus{types.PostStatusPosted, types.PostStatusVerified}}).
		Where(sq.GtOrEq{"posted_at": time.Now().Add(-window)}).
		OrderBy("posted_at")
	if campaignID != "" {
		q = q.Where(sq.Eq{"campaign_id": campaignID})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []types.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

// UpdatePostMetrics overwrites a post's current-value metric columns and
// stamps last_metrics_update. Historical values are preserved separately via
// InsertPostSnapshot.
func (s *Store) UpdatePostMetrics(ctx context.Context, p *types.Post) error {
	query := `
		UPDATE posts
		SET impressions = $2, likes = $3, retweets = $4, replies = $5,
		    quotes = $6, bookmarks = $7, engagement_rate = $8,
		    last_metrics_update = NOW()
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		p.ID, p.Impressions, p.Likes, p.Retweets, p.Replies,
		p.Quotes, p.Bookmarks, p.EngagementRate,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertPostSnapshot appends one immutable metrics capture. Snapshot rows are
// never updated or deleted.
func (s *Store) InsertPostSnapshot(ctx context.Context, snap *types.PostMetricSnapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	if snap.CapturedAt.IsZero() {
		snap.CapturedAt = time.Now()
	}
	query := `
		INSERT INTO post_metric_snapshots
			(id, post_id, impressions, likes, retweets, replies, quotes,
			 bookmarks, engagement_rate, captured_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		snap.ID, snap.PostID, snap.Impressions, snap.Likes, snap.Retweets,
		snap.Replies, snap.Quotes, snap.Bookmarks, snap.EngagementRate,
		snap.CapturedAt,
	)
	return err
}

// ListCampaignPostURLs returns every tweet_url already tracked by a campaign,
// used to dedup scrapes before import.
func (s *Store) ListCampaignPostURLs(ctx context.Context, campaignID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tweet_url FROM posts WHERE campaign_id = $1`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

// InsertPostSkipDuplicate inserts a post unless the campaign already tracks
// its tweet_url. Returns whether a row was actually inserted; a duplicate is
// not an error.
func (s *Store) InsertPostSkipDuplicate(ctx context.Context, p *types.Post) (bool, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	query := `
		INSERT INTO posts
			(id, campaign_id, kol_id, tweet_id, tweet_url, content, status,
			 post_type, impressions, likes, retweets, replies, quotes,
			 bookmarks, engagement_rate, matched_keywords, has_keyword_match,
			 posted_at, last_metrics_update)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, NOW())
		ON CONFLICT (campaign_id, tweet_url) DO NOTHING
		RETURNING id
	`
	var id string
	err := s.db.QueryRowContext(ctx, query,
		p.ID, p.CampaignID, p.KOLID, p.TweetID, p.TweetURL, p.Content,
		p.Status, p.Type, p.Impressions, p.Likes, p.Retweets, p.Replies,
		p.Quotes, p.Bookmarks, p.EngagementRate,
		pq.Array(p.MatchedKeywords), p.HasKeywordMatch, p.PostedAt,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
