package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/kolhub/metrics-worker/api/types"
	"github.com/kolhub/metrics-worker/internal/credentials"
	"github.com/kolhub/metrics-worker/internal/providers"
	"github.com/kolhub/metrics-worker/internal/store"
)

// OrgGetter resolves organizations for auth and credential assembly.
type OrgGetter interface {
	GetOrganization(ctx context.Context, id string) (*types.Organization, error)
}

// RecordStore is the read surface the handlers need beyond auth.
type RecordStore interface {
	OrgGetter
	Pinger
	GetKOL(ctx context.Context, id string) (*types.KOL, error)
	GetCampaign(ctx context.Context, id string) (*types.Campaign, error)
}

// CredentialSource builds per-invocation credential contexts, satisfied by
// credentials.Broker.
type CredentialSource interface {
	Primary(ctx context.Context) (*credentials.Context, error)
	ForOrganization(ctx context.Context, orgID string) (*credentials.Context, error)
}

// RefreshRunner is the refresh job surface, satisfied by jobs.Refresher.
type RefreshRunner interface {
	Run(ctx context.Context, creds *credentials.Context) (*types.RefreshSummary, error)
	RefreshPosts(ctx context.Context, creds *credentials.Context, campaignID string) (types.RefreshCounts, error)
	RefreshKOLByID(ctx context.Context, creds *credentials.Context, kolID string) error
}

// ScrapeRunner is the campaign scrape surface, satisfied by
// jobs.CampaignScraper.
type ScrapeRunner interface {
	Run(ctx context.Context, creds *credentials.Context, campaignID string, req *types.ScrapeRequest) (*types.ScrapeResponse, error)
}

// runMetricsRefresh triggers the full refresh with the primary organization's
// credentials. Guarded by SchedulerAuthMiddleware.
func runMetricsRefresh(broker CredentialSource, refresher RefreshRunner) func(c echo.Context) error {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		creds, err := broker.Primary(ctx)
		if err != nil {
			logrus.Errorf("Refresh trigger failed to load credentials: %v", err)
			return c.JSON(http.StatusInternalServerError, types.JobError{Error: err.Error()})
		}
		defer creds.Clear()

		summary, err := refresher.Run(ctx, creds)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, types.JobError{Error: err.Error()})
		}

		return c.JSON(http.StatusOK, summary)
	}
}

// scrapeCampaign runs the scrape flow for the authed agency organization.
// Per-item failures come back inside the response body.
func scrapeCampaign(broker CredentialSource, scraper ScrapeRunner) func(c echo.Context) error {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		campaignID := c.Param("id")
		orgID, _ := c.Get(orgIDContextKey).(string)

		req := &types.ScrapeRequest{}
		if err := c.Bind(req); err != nil {
			return c.JSON(http.StatusBadRequest, types.JobError{Error: err.Error()})
		}

		creds, err := broker.ForOrganization(ctx, orgID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, types.JobError{Error: err.Error()})
		}
		defer creds.Clear()

		resp, err := scraper.Run(ctx, creds, campaignID, req)
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, types.JobError{Error: "campaign not found"})
		}
		if err != nil {
			return c.JSON(http.StatusBadRequest, types.JobError{Error: err.Error()})
		}

		return c.JSON(http.StatusOK, resp)
	}
}

// refreshKOL refreshes one KOL's profile using its own organization's
// credentials.
func refreshKOL(records RecordStore, broker CredentialSource, refresher RefreshRunner) func(c echo.Context) error {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		kolID := c.Param("id")

		kol, err := records.GetKOL(ctx, kolID)
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, types.JobError{Error: "kol not found"})
		}
		if err != nil {
			return c.JSON(http.StatusInternalServerError, types.JobError{Error: err.Error()})
		}

		creds, err := broker.ForOrganization(ctx, kol.OrganizationID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, types.JobError{Error: err.Error()})
		}
		defer creds.Clear()

		if err := refresher.RefreshKOLByID(ctx, creds, kolID); err != nil {
			if errors.Is(err, providers.ErrNoCredentials) {
				return c.JSON(http.StatusPreconditionFailed, types.JobError{Error: err.Error()})
			}
			return c.JSON(http.StatusBadGateway, types.JobError{Error: err.Error()})
		}

		return c.JSON(http.StatusOK, map[string]bool{"success": true})
	}
}

// refreshCampaignMetrics refreshes the due posts of a single campaign.
func refreshCampaignMetrics(records RecordStore, broker CredentialSource, refresher RefreshRunner) func(c echo.Context) error {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		campaignID := c.Param("id")

		campaign, err := records.GetCampaign(ctx, campaignID)
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, types.JobError{Error: "campaign not found"})
		}
		if err != nil {
			return c.JSON(http.StatusInternalServerError, types.JobError{Error: err.Error()})
		}

		creds, err := broker.ForOrganization(ctx, campaign.OrganizationID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, types.JobError{Error: err.Error()})
		}
		defer creds.Clear()

		counts, err := refresher.RefreshPosts(ctx, creds, campaignID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, types.JobError{Error: err.Error()})
		}

		return c.JSON(http.StatusOK, types.RefreshSummary{Posts: counts})
	}
}
