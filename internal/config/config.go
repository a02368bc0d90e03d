package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	defaultListenAddress   = ":8080"
	defaultRefreshCron     = "0 0 */6 * * *" // every 6 hours
	defaultPostBatchSize   = 10
	defaultKOLBatchSize    = 5
	defaultBatchDelay      = 1 * time.Second
	defaultRefreshWindow   = 30 * 24 * time.Hour
	defaultRecentTweets    = 30
	defaultMetricsAPIBase  = "https://api.socialdata.tools"
	defaultSyndicationBase = "https://cdn.syndication.twimg.com"
	defaultApifyBase       = "https://api.apify.com/v2"
	defaultTweetActor      = "apidojo~tweet-scraper"
	defaultProfileActor    = "apidojo~twitter-user-scraper"
)

// AppConfig is the environment-driven configuration for the worker.
type AppConfig struct {
	ListenAddress string
	Environment   string // "production" or "development"
	DatabaseURL   string

	// SchedulerSecret authorizes the scheduled refresh trigger. In production
	// an empty secret is a hard failure at trigger time.
	SchedulerSecret string
	RefreshCron     string

	// CredentialsSecret is the master key for credential field encryption.
	CredentialsSecret string

	MetricsAPIBaseURL  string
	SyndicationBaseURL string
	ApifyBaseURL       string
	ApifyTweetActor    string
	ApifyProfileActor  string

	PostBatchSize    int
	KOLBatchSize     int
	BatchDelay       time.Duration
	RefreshWindow    time.Duration
	RecentTweetLimit int

	StatsBufSize    uint
	EnablePprof     bool
	EnableScheduler bool
}

// Read loads the configuration from the environment, with an optional .env
// file next to the binary. Missing optional values fall back to defaults.
func Read() *AppConfig {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, reading from environment")
	}

	SetLogLevel(ParseLogLevel(os.Getenv("LOG_LEVEL")))

	cfg := &AppConfig{
		ListenAddress:      envOr("LISTEN_ADDRESS", defaultListenAddress),
		Environment:        envOr("ENVIRONMENT", "development"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		SchedulerSecret:    os.Getenv("SCHEDULER_SECRET"),
		RefreshCron:        envOr("REFRESH_CRON", defaultRefreshCron),
		CredentialsSecret:  os.Getenv("CREDENTIALS_SECRET"),
		MetricsAPIBaseURL:  envOr("METRICS_API_BASE_URL", defaultMetricsAPIBase),
		SyndicationBaseURL: envOr("SYNDICATION_BASE_URL", defaultSyndicationBase),
		ApifyBaseURL:       envOr("APIFY_BASE_URL", defaultApifyBase),
		ApifyTweetActor:    envOr("APIFY_TWEET_ACTOR", defaultTweetActor),
		ApifyProfileActor:  envOr("APIFY_PROFILE_ACTOR", defaultProfileActor),
		PostBatchSize:      envIntOr("POST_BATCH_SIZE", defaultPostBatchSize),
		KOLBatchSize:       envIntOr("KOL_BATCH_SIZE", defaultKOLBatchSize),
		BatchDelay:         envDurationOr("BATCH_DELAY_SECONDS", defaultBatchDelay),
		RefreshWindow:      defaultRefreshWindow,
		RecentTweetLimit:   envIntOr("RECENT_TWEET_LIMIT", defaultRecentTweets),
		StatsBufSize:       uint(envIntOr("STATS_BUF_SIZE", 128)),
		EnablePprof:        os.Getenv("ENABLE_PPROF") == "true",
		EnableScheduler:    os.Getenv("DISABLE_SCHEDULER") != "true",
	}

	if days := envIntOr("REFRESH_WINDOW_DAYS", 0); days > 0 {
		cfg.RefreshWindow = time.Duration(days) * 24 * time.Hour
	}

	if cfg.SchedulerSecret == "" {
		logrus.Warn("SCHEDULER_SECRET is not set; the scheduled refresh endpoint will reject requests in production")
	}

	return cfg
}

// IsProduction reports whether the worker runs with production semantics.
func (c *AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Validate checks the configuration needed to start at all.
func (c *AppConfig) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.CredentialsSecret == "" {
		return fmt.Errorf("CREDENTIALS_SECRET is required")
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		logrus.Errorf("Error parsing %s: %s. Setting to default.", key, err)
		return def
	}
	return v
}

func envDurationOr(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		logrus.Errorf("Error parsing %s: %v. Setting to default.", key, err)
		return def
	}
	return time.Duration(v) * time.Second
}

// ParseLogLevel parses a string and returns the corresponding logrus.Level.
func ParseLogLevel(logLevel string) logrus.Level {
	switch strings.ToLower(logLevel) {
	case "debug":
		return logrus.DebugLevel
	case "info", "":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		logrus.Errorf("Invalid log level %q, setting to %s", logLevel, logrus.InfoLevel)
		return logrus.InfoLevel
	}
}

// SetLogLevel sets the log level for the application.
func SetLogLevel(level logrus.Level) {
	logrus.SetLevel(level)
}
