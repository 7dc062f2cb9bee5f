package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/crocodileps/Mon-ps-sub009/pkg/config"
	"github.com/crocodileps/Mon-ps-sub009/pkg/logger"
)

const (
	JobResolve     = "resolve"
	JobClosingOdds = "closing_odds"
	JobReload      = "reload"

	defaultJobTimeout = 5 * time.Minute
)

type Schedules struct {
	Resolve     string
	ClosingOdds string
	Reload      string
}

func SchedulesFromConfig(cfg *config.Config) Schedules {
	return Schedules{
		Resolve:     cfg.ResolveSchedule,
		ClosingOdds: cfg.ClosingOddsSchedule,
		Reload:      cfg.ReloadSchedule,
	}
}

// Scheduler runs the periodic resolve, closing-odds and hub-reload jobs.
type Scheduler struct {
	matchday   *MatchdayService
	schedules  Schedules
	jobTimeout time.Duration
	logger     *logrus.Logger
	cron       *cron.Cron
	jobs       map[string]func(ctx context.Context) error
	mu         sync.Mutex
	isRunning  bool
}

func NewScheduler(matchday *MatchdayService, schedules Schedules, logger *logrus.Logger) *Scheduler {
	s := &Scheduler{
		matchday:   matchday,
		schedules:  schedules,
		jobTimeout: defaultJobTimeout,
		logger:     logger,
		cron:       cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
	s.jobs = map[string]func(ctx context.Context) error{
		JobResolve: func(ctx context.Context) error {
			_, err := matchday.Resolve(ctx)
			return err
		},
		JobClosingOdds: func(ctx context.Context) error {
			_, err := matchday.CaptureClosingOdds(ctx)
			return err
		},
		JobReload: matchday.Reload,
	}
	return s
}

// Start registers every job with a non-empty schedule.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	specs := map[string]string{
		JobResolve:     s.schedules.Resolve,
		JobClosingOdds: s.schedules.ClosingOdds,
		JobReload:      s.schedules.Reload,
	}
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		spec := specs[name]
		if spec == "" {
			s.logger.WithField("job", name).Info("Job disabled, no schedule")
			continue
		}
		job := name
		if _, err := s.cron.AddFunc(spec, func() { _ = s.RunJob(context.Background(), job) }); err != nil {
			return fmt.Errorf("failed to schedule %s (%q): %w", name, spec, err)
		}
		s.logger.WithFields(logrus.Fields{
			"job":      name,
			"schedule": spec,
		}).Info("Job scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.Info("Scheduler started")
	return nil
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.logger.Info("Scheduler stopped")
}

// RunJob runs one job now under the job timeout.
func (s *Scheduler) RunJob(ctx context.Context, name string) error {
	fn, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}

	ctx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	took := time.Since(start)
	s.matchday.Metrics().RecordJob(name, err, took)

	log := logger.WithComponent(s.logger, "scheduler").WithFields(logrus.Fields{
		"job":      name,
		"duration": took.String(),
	})
	if err != nil {
		log.WithError(err).Error("Scheduled job failed")
		return err
	}
	log.Info("Scheduled job complete")
	return nil
}
