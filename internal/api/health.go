package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthMetrics tracks windowed request outcomes for the readiness probe.
type HealthMetrics struct {
	mu             sync.RWMutex
	errorCount     int
	successCount   int
	windowStart    time.Time
	windowDuration time.Duration
	errorThreshold float64
}

func NewHealthMetrics() *HealthMetrics {
	return &HealthMetrics{
		windowStart:    time.Now(),
		windowDuration: 10 * time.Minute,
		errorThreshold: 0.95,
	}
}

func (hm *HealthMetrics) RecordSuccess() {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	hm.checkAndResetWindow()
	hm.successCount++
}

func (hm *HealthMetrics) RecordError() {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	hm.checkAndResetWindow()
	hm.errorCount++
}

func (hm *HealthMetrics) checkAndResetWindow() {
	if time.Since(hm.windowStart) > hm.windowDuration {
		hm.errorCount = 0
		hm.successCount = 0
		hm.windowStart = time.Now()
	}
}

// IsHealthy reports whether the windowed error rate is under the threshold.
func (hm *HealthMetrics) IsHealthy() bool {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	total := hm.errorCount + hm.successCount
	if total == 0 {
		return true
	}

	errorRate := float64(hm.errorCount) / float64(total)
	return errorRate < hm.errorThreshold
}

// GetStats returns current health statistics.
func (hm *HealthMetrics) GetStats() map[string]interface{} {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	total := hm.errorCount + hm.successCount
	errorRate := 0.0
	if total > 0 {
		errorRate = float64(hm.errorCount) / float64(total)
	}

	return map[string]interface{}{
		"error_count":     hm.errorCount,
		"success_count":   hm.successCount,
		"total_count":     total,
		"error_rate":      errorRate,
		"window_start":    hm.windowStart.Format(time.RFC3339),
		"window_duration": hm.windowDuration.String(),
	}
}

// Healthz is the liveness probe endpoint.
func Healthz() func(c echo.Context) error {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "metrics-worker",
		})
	}
}

// Pinger is the database reachability check used by readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Readyz is the readiness probe endpoint: database reachable and windowed
// error rate healthy.
func Readyz(db Pinger, healthMetrics *HealthMetrics) func(c echo.Context) error {
	return func(c echo.Context) error {
		checks := map[string]interface{}{
			"service": "metrics-worker",
			"ready":   true,
			"checks":  map[string]interface{}{},
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			checks["ready"] = false
			checks["checks"].(map[string]interface{})["database"] = err.Error()
			return c.JSON(http.StatusServiceUnavailable, checks)
		}

		if !healthMetrics.IsHealthy() {
			checks["ready"] = false
			checks["checks"].(map[string]interface{})["error_rate"] = "unhealthy"
			checks["checks"].(map[string]interface{})["stats"] = healthMetrics.GetStats()
			return c.JSON(http.StatusServiceUnavailable, checks)
		}

		checks["checks"].(map[string]interface{})["database"] = "ok"
		checks["checks"].(map[string]interface{})["error_rate"] = "healthy"
		checks["checks"].(map[string]interface{})["stats"] = healthMetrics.GetStats()

		return c.JSON(http.StatusOK, checks)
	}
}
