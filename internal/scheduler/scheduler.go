package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"rental-portal/internal/config"
	"rental-portal/internal/logger"
	"rental-portal/internal/sweep"
)

const sweepTimeout = 30 * time.Minute

// SweepRunner runs one privacy sweep.
type SweepRunner interface {
	Run(ctx context.Context, cfg sweep.Config) (*sweep.Result, error)
}

// Scheduler handles the daily privacy sweep
type Scheduler struct {
	cron      *cron.Cron
	sweeper   SweepRunner
	config    config.SweepConfig

	mu        sync.Mutex
	isRunning bool // cron started
	sweeping  bool // a sweep is in progress
}

// NewScheduler creates a new scheduler. loc is the zone daily_run_time is
// read in; nil means the local zone.
func NewScheduler(sweeper SweepRunner, cfg config.SweepConfig, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		sweeper: sweeper,
		config:  cfg,
	}
}

// FromConfig converts the configured sweep settings.
func FromConfig(cfg config.SweepConfig) sweep.Config {
	sc := sweep.Config{
		GraceDays:   cfg.GraceDays,
		MaxErasures: cfg.MaxErasures,
		DryRun:      cfg.DryRun,
	}
	if cfg.ActorID != 0 {
		actor := cfg.ActorID
		sc.Actor = &actor
	}
	return sc
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	if !s.config.Enabled {
		logger.Info().Msg("scheduler: privacy sweep is disabled in configuration")
		return nil
	}

	cronSpec := parseDailyRunTime(s.config.DailyRunTime)

	_, err := s.cron.AddFunc(cronSpec, func() {
		if _, err := s.RunNow(context.Background()); err != nil {
			logger.Error().Err(err).Msg("scheduler: privacy sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule privacy sweep: %w", err)
	}

	s.mu.Lock()
	s.cron.Start()
	s.isRunning = true
	s.mu.Unlock()
	logger.Info().
		Str("daily_run_time", s.config.DailyRunTime).
		Str("cron", cronSpec).
		Msg("scheduler: started")

	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	wasRunning := s.isRunning
	s.isRunning = false
	s.mu.Unlock()

	// Waiting happens unlocked: the sweep in flight takes mu when it ends.
	if wasRunning {
		<-s.cron.Stop().Done()
		logger.Info().Msg("scheduler: stopped")
	}
}

// ErrSweepInProgress is returned by RunNow while another sweep runs.
var ErrSweepInProgress = errors.New("privacy sweep already in progress")

// RunNow immediately executes the configured privacy sweep.
func (s *Scheduler) RunNow(ctx context.Context) (*sweep.Result, error) {
	return s.Run(ctx, s.SweepConfig())
}

// SweepConfig returns the sweep settings scheduled runs use.
func (s *Scheduler) SweepConfig() sweep.Config {
	return FromConfig(s.config)
}

// Run executes one sweep with cfg (cron tick or manual trigger).
// Overlapping runs are refused.
func (s *Scheduler) Run(ctx context.Context, cfg sweep.Config) (*sweep.Result, error) {
	s.mu.Lock()
	if s.sweeping {
		s.mu.Unlock()
		return nil, ErrSweepInProgress
	}
	s.sweeping = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.sweeping = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	logger.Info().Bool("dry_run", cfg.DryRun).Msg("scheduler: starting privacy sweep")
	return s.sweeper.Run(ctx, cfg)
}

// parseDailyRunTime converts HH:MM format to cron specification
// Example: "02:00" -> "0 2 * * *" (run at 2:00 AM every day)
func parseDailyRunTime(timeStr string) string {
	var hour, minute int
	n, _ := fmt.Sscanf(timeStr, "%d:%d", &hour, &minute)
	if n == 2 && hour >= 0 && hour < 24 && minute >= 0 && minute < 60 {
		return fmt.Sprintf("%d %d * * *", minute, hour)
	}

	logger.Warn().Str("daily_run_time", timeStr).Msg("scheduler: failed to parse time, using default 03:00")
	return "0 3 * * *"
}
