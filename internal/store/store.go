// Package store is the Postgres persistence layer. Credential columns come
// back encrypted; decryption happens in internal/credentials, never here.
package store

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/kolhub/metrics-worker/api/types"
)

var ErrNotFound = errors.New("record not found")

type Store struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

func New(db *sql.DB) *Store {
	return &Store{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Ping verifies the database connection, used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// GetOrganization returns one organization with its credential columns still
// encrypted.
func (s *Store) GetOrganization(ctx context.Context, id string) (*types.Organization, error) {
	query := `
		SELECT id, name, type,
		       COALESCE(social_data_api_key, ''), COALESCE(apify_api_key, ''),
		       COALESCE(twitter_api_key, ''), COALESCE(twitter_cookies, ''),
		       COALESCE(twitter_csrf_token, '')
		FROM organizations
		WHERE id = $1
	`
	var org types.Organization
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&org.ID, &org.Name, &org.Type,
		&org.SocialDataAPIKey, &org.ApifyAPIKey,
		&org.TwitterAPIKey, &org.TwitterCookies, &org.TwitterCSRFToken,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// PrimaryOrganization returns the oldest agency organization. Scheduled
// refresh runs borrow its credentials.
func (s *Store) PrimaryOrganization(ctx context.Context) (*types.Organization, error) {
	query := `
		SELECT id
		FROM organizations
		WHERE type = 'agency'
		ORDER BY created_at
		LIMIT 1
	`
	var id string
	err := s.db.QueryRowContext(ctx, query).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.GetOrganization(ctx, id)
}

func (s *Store) GetCampaign(ctx context.Context, id string) (*types.Campaign, error) {
	query := `
		SELECT id, organization_id, name, keywords
		FROM campaigns
		WHERE id = $1
	`
	var c types.Campaign
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.OrganizationID, &c.Name, pq.Array(&c.Keywords),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
