// Package scheduler drives the periodic metrics refresh with an in-process
// cron runner.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/kolhub/metrics-worker/internal/config"
	"github.com/kolhub/metrics-worker/internal/credentials"
	"github.com/kolhub/metrics-worker/internal/jobs"
)

// runTimeout caps one scheduled refresh. Batch delays across hundreds of
// posts add up, so it is generous.
const runTimeout = 30 * time.Minute

type Service struct {
	cfg       *config.AppConfig
	broker    *credentials.Broker
	refresher *jobs.Refresher
	cron      *cron.Cron
}

func NewService(cfg *config.AppConfig, broker *credentials.Broker, refresher *jobs.Refresher) *Service {
	return &Service{
		cfg:       cfg,
		broker:    broker,
		refresher: refresher,
		cron:      cron.New(cron.WithSeconds()),
	}
}

// Start registers the refresh schedule and starts the cron loop.
func (s *Service) Start() error {
	_, err := s.cron.AddFunc(s.cfg.RefreshCron, s.runOnce)
	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with cron %q", s.cfg.RefreshCron)
	return nil
}

func (s *Service) runOnce() {
	logrus.Info("Starting scheduled metrics refresh")

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	creds, err := s.broker.Primary(ctx)
	if err != nil {
		logrus.Errorf("Scheduled refresh skipped, no credentials: %v", err)
		return
	}
	defer creds.Clear()

	if _, err := s.refresher.Run(ctx, creds); err != nil {
		logrus.Errorf("Scheduled refresh failed: %v", err)
	}
}

// Stop halts the cron loop. In-flight runs finish on their own.
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}
