package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolhub/metrics-worker/api/types"
	"github.com/kolhub/metrics-worker/internal/credentials"
	"github.com/kolhub/metrics-worker/internal/store"
)

type fakeBroker struct {
	creds    *credentials.Context
	err      error
	lastOrg  string
	requests int
}

func (f *fakeBroker) Primary(ctx context.Context) (*credentials.Context, error) {
	f.requests++
	return f.creds, f.err
}

func (f *fakeBroker) ForOrganization(ctx context.Context, orgID string) (*credentials.Context, error) {
	f.requests++
	f.lastOrg = orgID
	return f.creds, f.err
}

type fakeRefresher struct {
	summary  *types.RefreshSummary
	counts   types.RefreshCounts
	err      error
	kolIDs   []string
	lastCamp string
}

func (f *fakeRefresher) Run(ctx context.Context, creds *credentials.Context) (*types.RefreshSummary, error) {
	return f.summary, f.err
}

func (f *fakeRefresher) RefreshPosts(ctx context.Context, creds *credentials.Context, campaignID string) (types.RefreshCounts, error) {
	f.lastCamp = campaignID
	return f.counts, f.err
}

func (f *fakeRefresher) RefreshKOLByID(ctx context.Context, creds *credentials.Context, kolID string) error {
	f.kolIDs = append(f.kolIDs, kolID)
	return f.err
}

type fakeScraper struct {
	resp *types.ScrapeResponse
	err  error
	req  *types.ScrapeRequest
}

func (f *fakeScraper) Run(ctx context.Context, creds *credentials.Context, campaignID string, req *types.ScrapeRequest) (*types.ScrapeResponse, error) {
	f.req = req
	return f.resp, f.err
}

type fakeRecords struct {
	kols      map[string]*types.KOL
	campaigns map[string]*types.Campaign
}

func (f *fakeRecords) Ping(ctx context.Context) error { return nil }

func (f *fakeRecords) GetOrganization(ctx context.Context, id string) (*types.Organization, error) {
	return &types.Organization{ID: id, Type: types.OrganizationTypeAgency}, nil
}

func (f *fakeRecords) GetKOL(ctx context.Context, id string) (*types.KOL, error) {
	kol, ok := f.kols[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return kol, nil
}

func (f *fakeRecords) GetCampaign(ctx context.Context, id string) (*types.Campaign, error) {
	c, ok := f.campaigns[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return c, nil
}

func testCreds() *credentials.Context {
	return &credentials.Context{OrgID: "org-1", SocialDataAPIKey: "sk"}
}

func TestRunMetricsRefreshHandler(t *testing.T) {
	broker := &fakeBroker{creds: testCreds()}
	refresher := &fakeRefresher{summary: &types.RefreshSummary{
		Posts: types.RefreshCounts{Total: 3, Success: 2, Failed: 1},
		KOLs:  types.RefreshCounts{Total: 1, Success: 1},
	}}

	e := echo.New()
	e.POST("/jobs/metrics-refresh", runMetricsRefresh(broker, refresher))

	req := httptest.NewRequest(http.MethodPost, "/jobs/metrics-refresh", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var summary types.RefreshSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 2, summary.Posts.Success)
	assert.Equal(t, 1, summary.KOLs.Total)
}

func TestScrapeCampaignHandler(t *testing.T) {
	broker := &fakeBroker{creds: testCreds()}
	scraper := &fakeScraper{resp: &types.ScrapeResponse{
		Success:      true,
		TotalScraped: 2,
		Imported:     1,
	}}

	e := echo.New()
	e.POST("/campaigns/:id/scrape", func(c echo.Context) error {
		c.Set(orgIDContextKey, "org-1")
		return scrapeCampaign(broker, scraper)(c)
	})

	body := `{"mode":"all","autoImport":true}`
	req := httptest.NewRequest(http.MethodPost, "/campaigns/camp-1/scrape", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "org-1", broker.lastOrg)
	require.NotNil(t, scraper.req)
	assert.True(t, scraper.req.AutoImport)

	var resp types.ScrapeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Imported)
}

func TestScrapeCampaignHandlerNotFound(t *testing.T) {
	broker := &fakeBroker{creds: testCreds()}
	scraper := &fakeScraper{err: store.ErrNotFound}

	e := echo.New()
	e.POST("/campaigns/:id/scrape", scrapeCampaign(broker, scraper))

	req := httptest.NewRequest(http.MethodPost, "/campaigns/nope/scrape", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRefreshKOLHandlerUsesOwningOrg(t *testing.T) {
	records := &fakeRecords{kols: map[string]*types.KOL{
		"kol-1": {ID: "kol-1", OrganizationID: "org-9", Handle: "alice"},
	}}
	broker := &fakeBroker{creds: testCreds()}
	refresher := &fakeRefresher{}

	e := echo.New()
	e.POST("/kols/:id/refresh", refreshKOL(records, broker, refresher))

	req := httptest.NewRequest(http.MethodPost, "/kols/kol-1/refresh", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "org-9", broker.lastOrg)
	assert.Equal(t, []string{"kol-1"}, refresher.kolIDs)
}

func TestRefreshKOLHandlerNotFound(t *testing.T) {
	records := &fakeRecords{kols: map[string]*types.KOL{}}

	e := echo.New()
	e.POST("/kols/:id/refresh", refreshKOL(records, &fakeBroker{creds: testCreds()}, &fakeRefresher{}))

	req := httptest.NewRequest(http.MethodPost, "/kols/nope/refresh", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRefreshCampaignMetricsHandler(t *testing.T) {
	records := &fakeRecords{campaigns: map[string]*types.Campaign{
		"camp-1": {ID: "camp-1", OrganizationID: "org-2"},
	}}
	broker := &fakeBroker{creds: testCreds()}
	refresher := &fakeRefresher{counts: types.RefreshCounts{Total: 5, Success: 5}}

	e := echo.New()
	e.POST("/campaigns/:id/refresh-metrics", refreshCampaignMetrics(records, broker, refresher))

	req := httptest.NewRequest(http.MethodPost, "/campaigns/camp-1/refresh-metrics", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "org-2", broker.lastOrg)
	assert.Equal(t, "camp-1", refresher.lastCamp)

	var summary types.RefreshSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 5, summary.Posts.Success)
}
