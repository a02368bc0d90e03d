package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/kolhub/metrics-worker/api/types"
	"github.com/kolhub/metrics-worker/internal/config"
	"github.com/kolhub/metrics-worker/internal/store"
)

type fakeOrgs struct {
	orgs map[string]*types.Organization
}

func (f *fakeOrgs) GetOrganization(ctx context.Context, id string) (*types.Organization, error) {
	org, ok := f.orgs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return org, nil
}

func TestSchedulerAuthMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		secret         string
		environment    string
		header         string
		expectedStatus int
	}{
		{"valid secret", "s3cret", "production", "Bearer s3cret", http.StatusOK},
		{"wrong secret", "s3cret", "production", "Bearer wrong", http.StatusUnauthorized},
		{"missing header", "s3cret", "production", "", http.StatusUnauthorized},
		{"no secret in production", "", "production", "", http.StatusInternalServerError},
		{"no secret in development (open)", "", "development", "", http.StatusOK},
	}

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "passed")
	}

	for _, tt := range tests {
		cfg := &config.AppConfig{SchedulerSecret: tt.secret, Environment: tt.environment}
		e := echo.New()
		e.Use(SchedulerAuthMiddleware(cfg))
		e.POST("/jobs/metrics-refresh", handler)

		req := httptest.NewRequest(http.MethodPost, "/jobs/metrics-refresh", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, tt.expectedStatus, rec.Code, tt.name)
	}
}

func TestAgencyAuthMiddleware(t *testing.T) {
	orgs := &fakeOrgs{orgs: map[string]*types.Organization{
		"org-1": {ID: "org-1", Type: types.OrganizationTypeAgency},
		"org-2": {ID: "org-2", Type: types.OrganizationTypeBrand},
	}}

	tests := []struct {
		name           string
		orgID          string
		orgType        string
		expectedStatus int
	}{
		{"valid agency", "org-1", "agency", http.StatusOK},
		{"missing org id", "", "agency", http.StatusUnauthorized},
		{"wrong org type header", "org-1", "brand", http.StatusUnauthorized},
		{"unknown org", "nope", "agency", http.StatusUnauthorized},
		{"brand org claiming agency", "org-2", "agency", http.StatusForbidden},
	}

	for _, tt := range tests {
		e := echo.New()
		e.Use(AgencyAuthMiddleware(orgs))
		e.POST("/campaigns/:id/scrape", func(c echo.Context) error {
			// The middleware must expose the verified org id.
			assert.Equal(t, tt.orgID, c.Get(orgIDContextKey), tt.name)
			return c.String(http.StatusOK, "passed")
		})

		req := httptest.NewRequest(http.MethodPost, "/campaigns/camp-1/scrape", nil)
		if tt.orgID != "" {
			req.Header.Set("X-Org-ID", tt.orgID)
		}
		if tt.orgType != "" {
			req.Header.Set("X-Org-Type", tt.orgType)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, tt.expectedStatus, rec.Code, tt.name)
	}
}

func TestAgencyAuthMiddlewareLookupError(t *testing.T) {
	e := echo.New()
	e.Use(AgencyAuthMiddleware(&failingOrgs{}))
	e.POST("/campaigns/:id/scrape", func(c echo.Context) error {
		return c.String(http.StatusOK, "passed")
	})

	req := httptest.NewRequest(http.MethodPost, "/campaigns/camp-1/scrape", nil)
	req.Header.Set("X-Org-ID", "org-1")
	req.Header.Set("X-Org-Type", "agency")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type failingOrgs struct{}

func (f *failingOrgs) GetOrganization(ctx context.Context, id string) (*types.Organization, error) {
	return nil, errors.New("connection refused")
}

func TestHealthMetricsMiddlewareCountsServerErrors(t *testing.T) {
	hm := NewHealthMetrics()

	e := echo.New()
	e.Use(HealthMetricsMiddleware(hm))
	e.GET("/jobs/boom", func(c echo.Context) error {
		return c.String(http.StatusInternalServerError, "boom")
	})
	e.GET("/jobs/ok", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET(HealthCheckPath, func(c echo.Context) error {
		return c.String(http.StatusInternalServerError, "ignored")
	})

	for _, path := range []string{"/jobs/boom", "/jobs/ok", HealthCheckPath} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
	}

	stats := hm.GetStats()
	assert.Equal(t, 1, stats["error_count"])
	assert.Equal(t, 1, stats["success_count"])
}
