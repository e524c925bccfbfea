package core

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// maintenanceTimeout bounds one full maintenance run.
const maintenanceTimeout = 30 * time.Minute

// Scheduler runs the engine's periodic maintenance: consolidation sweeps
// per owner, scoring model retraining, and centrality refresh. Failures in
// one job are logged and never stop the others.
type Scheduler struct {
	client *Client
	jobs   JobsConfig
	cron   *cron.Cron
	logger *zap.Logger
}

// NewScheduler creates a scheduler bound to a client. It does not start
// anything until Start is called.
func NewScheduler(client *Client, jobs JobsConfig, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if jobs.Interval <= 0 {
		jobs.Interval = 6 * time.Hour
	}
	return &Scheduler{
		client: client,
		jobs:   jobs,
		cron:   cron.New(),
		logger: logger,
	}
}

// Start registers the maintenance job and starts the cron loop.
func (s *Scheduler) Start() {
	spec := fmt.Sprintf("@every %s", s.jobs.Interval)
	if _, err := s.cron.AddFunc(spec, s.runMaintenance); err != nil {
		s.logger.Error("failed to register maintenance job",
			zap.String("spec", spec),
			zap.Error(err))
		return
	}
	s.cron.Start()
	s.logger.Info("maintenance scheduler started", zap.Duration("interval", s.jobs.Interval))
}

// Stop stops the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("maintenance scheduler stopped")
}

// runMaintenance executes one maintenance cycle: consolidate every owner,
// retrain the scoring model, then refresh the centrality cache.
func (s *Scheduler) runMaintenance() {
	ctx, cancel := context.WithTimeout(context.Background(), maintenanceTimeout)
	defer cancel()

	start := time.Now()
	s.logger.Info("maintenance run started")

	owners, err := s.client.Owners(ctx, s.jobs.OwnerLimit)
	if err != nil {
		s.logger.Error("maintenance: owner listing failed", zap.Error(err))
	} else {
		for _, owner := range owners {
			if ctx.Err() != nil {
				s.logger.Warn("maintenance run cancelled mid-sweep")
				return
			}
			if _, err := s.client.Consolidate(ctx, owner); err != nil {
				s.logger.Error("maintenance: consolidation failed",
					zap.String("owner_id", owner),
					zap.Error(err))
			}
		}
	}

	if err := s.client.Retrain(ctx); err != nil {
		s.logger.Error("maintenance: retraining failed", zap.Error(err))
	}

	if err := s.client.RefreshCentrality(ctx); err != nil {
		s.logger.Error("maintenance: centrality refresh failed", zap.Error(err))
	}

	s.logger.Info("maintenance run finished", zap.Duration("elapsed", time.Since(start)))
}
