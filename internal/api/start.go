package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strings"

	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/kolhub/metrics-worker/internal/config"
	"github.com/kolhub/metrics-worker/internal/pipeline/stats"
)

// Dependencies carries everything the HTTP layer needs. All fields are
// interfaces except the stats collector, so handler tests run against fakes.
type Dependencies struct {
	Records   RecordStore
	Broker    CredentialSource
	Refresher RefreshRunner
	Scraper   ScrapeRunner
	Stats     *stats.Collector
}

// Start runs the HTTP server until ctx is canceled.
func Start(ctx context.Context, cfg *config.AppConfig, deps Dependencies) error {

	// Echo instance
	e := echo.New()

	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		e.Logger.SetLevel(log.DEBUG)
	case "warn":
		e.Logger.SetLevel(log.WARN)
	case "error":
		e.Logger.SetLevel(log.ERROR)
	default:
		e.Logger.SetLevel(log.INFO)
	}

	healthMetrics := NewHealthMetrics()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(HealthMetricsMiddleware(healthMetrics))

	// Health check endpoints (no auth required)
	e.GET(HealthCheckPath, Healthz())
	e.GET(ReadinessCheckPath, Readyz(deps.Records, healthMetrics))

	e.GET("/stats", func(c echo.Context) error {
		body, err := deps.Stats.Json()
		if err != nil {
			return err
		}
		return c.JSONBlob(http.StatusOK, body)
	})

	if cfg.EnablePprof {
		enableProfiling(e)
	}

	// Scheduled-job trigger, shared-secret auth.
	jobsGroup := e.Group("/jobs", SchedulerAuthMiddleware(cfg))
	jobsGroup.POST("/metrics-refresh", runMetricsRefresh(deps.Broker, deps.Refresher))

	// Tenant-facing endpoints, agency org auth.
	agency := AgencyAuthMiddleware(deps.Records)
	e.POST("/campaigns/:id/scrape", scrapeCampaign(deps.Broker, deps.Scraper), agency)
	e.POST("/campaigns/:id/refresh-metrics", refreshCampaignMetrics(deps.Records, deps.Broker, deps.Refresher), agency)
	e.POST("/kols/:id/refresh", refreshKOL(deps.Records, deps.Broker, deps.Refresher), agency)

	go func() {
		<-ctx.Done()
		if err := e.Close(); err != nil {
			e.Logger.Error("Failed to close Echo server: ", err)
		}
	}()

	e.Logger.Info(fmt.Sprintf("Starting server on %s", cfg.ListenAddress))
	if err := e.Start(cfg.ListenAddress); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// enableProfiling registers pprof endpoints and turns on the runtime probes.
func enableProfiling(e *echo.Echo) {
	e.Logger.Info("Enabling profiling - this may impact performance")

	runtime.SetBlockProfileRate(500)
	runtime.SetMutexProfileFraction(1)
	runtime.SetCPUProfileRate(30)

	pprof.Register(e)
}
