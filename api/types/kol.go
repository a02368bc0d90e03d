package types

import "time"

type KOLStatus string

const (
	KOLStatusActive   KOLStatus = "ACTIVE"
	KOLStatusInactive KOLStatus = "INACTIVE"
)

// KOL is a tracked influencer. Profile current-value fields are overwritten
// by the refresh job; engagement averages are recomputed from the KOL's own
// Post rows, not from snapshots.
type KOL struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organizationId"`
	Handle         string    `json:"handle"`
	Status         KOLStatus `json:"status"`

	FollowersCount int    `json:"followersCount"`
	FollowingCount int    `json:"followingCount"`
	AvatarURL      string `json:"avatarUrl"`
	BannerURL      string `json:"bannerUrl"`

	AvgLikes          float64 `json:"avgLikes"`
	AvgRetweets       float64 `json:"avgRetweets"`
	AvgReplies        float64 `json:"avgReplies"`
	AvgEngagementRate float64 `json:"avgEngagementRate"`

	LastMetricsUpdate *time.Time `json:"lastMetricsUpdate,omitempty"`
}

// KOLFollowerSnapshot is an append-only capture of a KOL's follower counts.
// FollowersChange is the signed delta versus the immediately preceding
// snapshot (or versus the KOL's prior current value when no snapshot exists
// yet). It is computed once at write time and never recomputed.
type KOLFollowerSnapshot struct {
	ID              string    `json:"id"`
	KOLID           string    `json:"kolId"`
	FollowersCount  int       `json:"followersCount"`
	FollowingCount  int       `json:"followingCount"`
	FollowersChange int       `json:"followersChange"`
	CapturedAt      time.Time `json:"capturedAt"`
}
