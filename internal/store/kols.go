package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/kolhub/metrics-worker/api/types"
)

const kolColumns = `id, organization_id, handle, status, followers_count,
	following_count, COALESCE(avatar_url, ''), COALESCE(banner_url, ''),
	avg_likes, avg_retweets, avg_replies, avg_engagement_rate,
	last_metrics_update`

func scanKOL(row sq.RowScanner) (*types.KOL, error) {
	var k types.KOL
	err := row.Scan(
		&k.ID, &k.OrganizationID, &k.Handle, &k.Status,
		&k.FollowersCount, &k.FollowingCount, &k.AvatarURL, &k.BannerURL,
		&k.AvgLikes, &k.AvgRetweets, &k.AvgReplies, &k.AvgEngagementRate,
		&k.LastMetricsUpdate,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &k, nil
}

func (s *Store) GetKOL(ctx context.Context, id string) (*types.KOL, error) {
	query, args, err := s.sb.Select(kolColumns).From("kols").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	return scanKOL(s.db.QueryRowContext(ctx, query, args...))
}

// ListActiveKOLs returns ACTIVE KOLs with a non-empty handle, optionally
// scoped to one organization. A KOL without a handle cannot be fetched from
// any provider.
func (s *Store) ListActiveKOLs(ctx context.Context, orgID string) ([]types.KOL, error) {
	q := s.sb.
		Select(kolColumns).
		From("kols").
		Where(sq.Eq{"status": types.KOLStatusActive}).
		Where(sq.NotEq{"handle": ""}).
		OrderBy("handle")
	if orgID != "" {
		q = q.Where(sq.Eq{"organization_id": orgID})
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

	var kols []types.KOL
	for rows.Next() {
		k, err := scanKOL(rows)
		if err != nil {
			return nil, err
		}
		kols = append(kols, *k)
	}
	return kols, rows.Err()
}

// ListCampaignKOLs returns the ACTIVE KOLs assigned to a campaign.
func (s *Store) ListCampaignKOLs(ctx context.Context, campaignID string) ([]types.KOL, error) {
	query := `
		SELECT k.id, k.organization_id, k.handle, k.status, k.followers_count,
		       k.following_count, COALESCE(k.avatar_url, ''),
		       COALESCE(k.banner_url, ''), k.avg_likes, k.avg_retweets,
		       k.avg_replies, k.avg_engagement_rate, k.last_metrics_update
		FROM kols k
		JOIN campaign_kols ck ON ck.kol_id = k.id
		WHERE ck.campaign_id = $1 AND k.status = 'ACTIVE'
		ORDER BY k.handle
	`
	rows, err := s.db.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var kols []types.KOL
	for rows.Next() {
		k, err := scanKOL(rows)
		if err != nil {
			return nil, err
		}
		kols = append(kols, *k)
	}
	return kols, rows.Err()
}

// UpdateKOLProfile overwrites a KOL's current profile fields from a scrape
// and stamps last_metrics_update.
func (s *Store) UpdateKOLProfile(ctx context.Context, kolID string, profile *types.ScrapedProfile) error {
	query := `
		UPDATE kols
		SET followers_count = $2, following_count = $3, avatar_url = $4,
		    banner_url = $5, last_metrics_update = NOW()
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		kolID, profile.FollowersCount, profile.FollowingCount,
		profile.AvatarURL, profile.BannerURL,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// FollowerBaseline returns the follower count the next snapshot's change is
// measured against: the latest snapshot's count, or the KOL's current value
// when no snapshot exists yet.
func (s *Store) FollowerBaseline(ctx context.Context, kolID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT followers_count
		FROM kol_follower_snapshots
		WHERE kol_id = $1
		ORDER BY captured_at DESC
		LIMIT 1
	`, kolID).Scan(&count)
	if err == nil {
		return count, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT followers_count FROM kols WHERE id = $1`, kolID).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return count, err
}

// InsertKOLFollowerSnapshot appends one follower capture. FollowersChange is
// set by the caller from FollowerBaseline and is never recomputed.
func (s *Store) InsertKOLFollowerSnapshot(ctx context.Context, snap *types.KOLFollowerSnapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	if snap.CapturedAt.IsZero() {
		snap.CapturedAt = time.Now()
	}
	query := `
		INSERT INTO kol_follower_snapshots
			(id, kol_id, followers_count, following_count, followers_change,
			 captured_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		snap.ID, snap.KOLID, snap.FollowersCount, snap.FollowingCount,
		snap.FollowersChange, snap.CapturedAt,
	)
	return err
}

// RecomputeKOLEngagementAverages refreshes the KOL's avg_* columns from its
// own POSTED/VERIFIED posts.
func (s *Store) RecomputeKOLEngagementAverages(ctx context.Context, kolID string) error {
	query := `
		UPDATE kols
		SET avg_likes = sub.avg_likes,
		    avg_retweets = sub.avg_retweets,
		    avg_replies = sub.avg_replies,
		    avg_engagement_rate = sub.avg_engagement_rate
		FROM (
			SELECT COALESCE(AVG(likes), 0) AS avg_likes,
			       COALESCE(AVG(retweets), 0) AS avg_retweets,
			       COALESCE(AVG(replies), 0) AS avg_replies,
			       COALESCE(AVG(engagement_rate), 0) AS avg_engagement_rate
			FROM posts
			WHERE kol_id = $1 AND status IN ('POSTED', 'VERIFIED')
		) sub
		WHERE kols.id = $1
	`
	_, err := s.db.ExecContext(ctx, query, kolID)
	return err
}
