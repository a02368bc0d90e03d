package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/kolhub/metrics-worker/internal/api"
	"github.com/kolhub/metrics-worker/internal/config"
	"github.com/kolhub/metrics-worker/internal/credentials"
	"github.com/kolhub/metrics-worker/internal/jobs"
	"github.com/kolhub/metrics-worker/internal/pipeline"
	"github.com/kolhub/metrics-worker/internal/pipeline/stats"
	"github.com/kolhub/metrics-worker/internal/scheduler"
	"github.com/kolhub/metrics-worker/internal/store"
	"github.com/kolhub/metrics-worker/pkg/fieldcrypt"
)

func main() {
	cfg := config.Read()
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logrus.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	enc, err := fieldcrypt.New([]byte(cfg.CredentialsSecret), "organization-credentials")
	if err != nil {
		logrus.Fatalf("Failed to initialize field encryption: %v", err)
	}

	st := store.New(db)
	broker := credentials.NewBroker(st, enc)
	collector := stats.StartCollector(cfg.StatsBufSize)
	fetcher := pipeline.NewFetcher(cfg, collector)
	refresher := jobs.NewRefresher(cfg, st, fetcher, collector)
	scraper := jobs.NewCampaignScraper(cfg, st, fetcher, collector)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.EnableScheduler {
		sched := scheduler.NewService(cfg, broker, refresher)
		if err := sched.Start(); err != nil {
			logrus.Fatalf("Failed to start scheduler: %v", err)
		}
		defer sched.Stop()
	} else {
		logrus.Warn("Scheduler disabled, refresh runs only on request")
	}

	deps := api.Dependencies{
		Records:   st,
		Broker:    broker,
		Refresher: refresher,
		Scraper:   scraper,
		Stats:     collector,
	}
	if err := api.Start(ctx, cfg, deps); err != nil {
		logrus.Fatalf("Server exited with error: %v", err)
	}
}
