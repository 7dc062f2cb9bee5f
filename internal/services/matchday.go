// Package services wires the engine, tracker, provider feed and cache into the
// operations the CLI, HTTP API and scheduler run.
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/crocodileps/Mon-ps-sub009/internal/backtest"
	"github.com/crocodileps/Mon-ps-sub009/internal/datahub"
	"github.com/crocodileps/Mon-ps-sub009/internal/engine"
	"github.com/crocodileps/Mon-ps-sub009/internal/markets"
	"github.com/crocodileps/Mon-ps-sub009/internal/metrics"
	"github.com/crocodileps/Mon-ps-sub009/internal/models"
	"github.com/crocodileps/Mon-ps-sub009/internal/providers"
	"github.com/crocodileps/Mon-ps-sub009/internal/shorting"
	"github.com/crocodileps/Mon-ps-sub009/internal/tracker"
	"github.com/crocodileps/Mon-ps-sub009/pkg/logger"
	"github.com/crocodileps/Mon-ps-sub009/pkg/utils"
)

var ErrNoStore = errors.New("pick store not configured")

const DefaultClosingWindow = 10 * time.Minute

// OddsProvider is the external feed as the matchday service uses it.
type OddsProvider interface {
	Enabled() bool
	Opportunities(ctx context.Context) ([]providers.Opportunity, error)
	LiveOdds(ctx context.Context, matchID string) ([]providers.OddsQuote, error)
}

// SnapshotLoader reads a fresh data snapshot for hub reloads.
type SnapshotLoader func(ctx context.Context) *datahub.Snapshot

type MatchdayDeps struct {
	Engine   *engine.Engine
	Hub      *datahub.Hub
	Tracker  *tracker.Tracker
	Provider OddsProvider
	Cache    *CacheService
	Metrics  *metrics.Metrics
	Loader   SnapshotLoader

	CacheTTL      time.Duration
	ClosingWindow time.Duration
	Now           func() time.Time
}

type MatchdayService struct {
	deps   MatchdayDeps
	logger *logrus.Logger

	// serialises resolve, audit and closing-odds passes
	writeMu sync.Mutex
}

func NewMatchdayService(deps MatchdayDeps, logger *logrus.Logger) *MatchdayService {
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if deps.ClosingWindow <= 0 {
		deps.ClosingWindow = DefaultClosingWindow
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	return &MatchdayService{deps: deps, logger: logger}
}

func (s *MatchdayService) Engine() *engine.Engine {
	return s.deps.Engine
}

func (s *MatchdayService) Metrics() *metrics.Metrics {
	return s.deps.Metrics
}

// Tracker is nil when no pick store is configured.
func (s *MatchdayService) Tracker() *tracker.Tracker {
	return s.deps.Tracker
}

// Analyze runs one fixture. Successful analyses are cached per hub version.
func (s *MatchdayService) Analyze(ctx context.Context, req engine.Request) (*engine.Analysis, error) {
	version := s.deps.Engine.Source().Version()
	key := ""
	if s.deps.Cache != nil && s.deps.CacheTTL > 0 {
		key = AnalysisCacheKey(req, version)
		var cached engine.Analysis
		if err := s.deps.Cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	start := time.Now()
	a, err := s.deps.Engine.Analyze(ctx, req)
	s.record("single", a, time.Since(start))
	if err != nil {
		return a, err
	}

	if key != "" {
		if err := s.deps.Cache.Set(ctx, key, a, s.deps.CacheTTL); err != nil {
			s.logger.WithError(err).Warn("Failed to cache analysis")
		}
	}
	return a, nil
}

func (s *MatchdayService) record(mode string, a *engine.Analysis, took time.Duration) {
	if a == nil {
		s.deps.Metrics.RecordAnalysis(mode, string(utils.StatusError), "", "", 0, took)
		return
	}
	decisionType := ""
	if a.Status != utils.StatusError {
		decisionType = string(a.Decision.Type)
	}
	s.deps.Metrics.RecordAnalysis(mode, string(a.Status), decisionType, string(a.Decision.Primary.Market), a.Decision.Confidence, took)
}

// ScanShorts lists teams whose defender line is at or above minProb.
func (s *MatchdayService) ScanShorts(ctx context.Context, minProb float64) []shorting.Assessment {
	key := ""
	if s.deps.Cache != nil && s.deps.CacheTTL > 0 {
		key = ShortsCacheKey(minProb, s.deps.Engine.Source().Version())
		var cached []shorting.Assessment
		if err := s.deps.Cache.Get(ctx, key, &cached); err == nil {
			return cached
		}
	}

	out := shorting.NewScanner(s.deps.Engine.Source(), s.logger).ScanShorts(minProb)
	if key != "" {
		if err := s.deps.Cache.Set(ctx, key, out, s.deps.CacheTTL); err != nil {
			s.logger.WithError(err).Warn("Failed to cache short scan")
		}
	}
	return out
}

func (s *MatchdayService) Backtest(ctx context.Context, cfg backtest.Config) (*backtest.Report, error) {
	start := time.Now()
	report, err := backtest.NewRunner(s.deps.Engine, s.logger).Run(ctx, cfg)
	status := "ok"
	switch {
	case err != nil && report == nil:
		status = "error"
	case err != nil:
		status = "cancelled"
	}
	roi := 0.0
	if report != nil {
		roi = report.Total.ROI
	}
	s.deps.Metrics.RecordBacktest(status, roi, time.Since(start))
	return report, err
}

type OpportunityReport struct {
	RunID    string                `json:"run_id"`
	Fixtures int                   `json:"fixtures"`
	Analyzed int                   `json:"analyzed"`
	Skipped  int                   `json:"skipped"`
	Errors   map[string]int        `json:"errors,omitempty"`
	Picks    tracker.RecordSummary `json:"picks"`
	Analyses []*engine.Analysis    `json:"analyses"`
}

// RunOpportunities analyses every fixture offered by the feed and, when record is
// set, stores the resulting picks one fixture at a time. Cancelling ctx stops
// dispatch; fixtures already analysed are still flushed.
func (s *MatchdayService) RunOpportunities(ctx context.Context, record bool) (*OpportunityReport, error) {
	if s.deps.Provider == nil || !s.deps.Provider.Enabled() {
		return nil, utils.WrapAppError(utils.ErrCodeValidation, providers.ErrDisabled, "opportunities feed not configured")
	}
	if record && s.deps.Tracker == nil {
		return nil, ErrNoStore
	}

	runID := uuid.NewString()
	log := logger.WithRun(s.logger, runID, "opportunities")

	ops, err := s.deps.Provider.Opportunities(ctx)
	s.deps.Metrics.RecordProvider("opportunities", err)
	if err != nil {
		log.WithError(err).WithField("reason", models.ReasonProviderUnavailable).Error("Opportunity feed failed")
		return nil, utils.WrapAppError(utils.ErrCodeIOFailure, err, "failed to fetch opportunities")
	}

	reqs := make([]engine.Request, len(ops))
	quotes := make([]map[markets.Market]tracker.Quote, len(ops))
	for i, o := range ops {
		reqs[i] = o.Request()
		reqs[i].MatchID = o.ID
		quotes[i] = make(map[markets.Market]tracker.Quote)
		for m, q := range providers.BestPrices(o.Odds) {
			quotes[i][m] = tracker.Quote{Odds: q.Odds, Bookmaker: q.Bookmaker}
		}
	}

	report := &OpportunityReport{RunID: runID, Fixtures: len(ops), Errors: make(map[string]int)}
	var mu sync.Mutex
	var recordErrs []error
	flushCtx := context.WithoutCancel(ctx)

	sink := func(r engine.BatchResult) {
		s.record("batch", r.Analysis, 0)
		if !record || r.Err != nil || r.Analysis == nil {
			return
		}
		picks := s.deps.Tracker.PicksFromAnalysis(r.Analysis, quotes[r.Index])
		if len(picks) == 0 {
			return
		}
		summary, err := s.deps.Tracker.RecordPicks(flushCtx, picks)
		s.deps.Metrics.RecordPicks(summary.Created, summary.Updated, len(summary.Rejected))

		mu.Lock()
		defer mu.Unlock()
		report.Picks.Created += summary.Created
		report.Picks.Updated += summary.Updated
		report.Picks.Skipped += summary.Skipped
		report.Picks.Rejected = append(report.Picks.Rejected, summary.Rejected...)
		if err != nil {
			recordErrs = append(recordErrs, err)
		}
	}

	results := s.deps.Engine.AnalyzeBatch(ctx, reqs, sink)
	for _, r := range results {
		switch {
		case r.Err != nil:
			report.Errors[errorLabel(r.Err)]++
		case r.Analysis != nil:
			report.Analyzed++
			if r.Analysis.Status == utils.StatusSkip {
				report.Skipped++
			}
		}
		if r.Analysis != nil {
			report.Analyses = append(report.Analyses, r.Analysis)
		}
	}
	sort.Strings(report.Picks.Rejected)

	log.WithFields(logrus.Fields{
		"fixtures": report.Fixtures,
		"analyzed": report.Analyzed,
		"skipped":  report.Skipped,
		"created":  report.Picks.Created,
		"updated":  report.Picks.Updated,
	}).Info("Opportunity batch complete")

	if ctx.Err() != nil {
		return report, ctx.Err()
	}
	return report, errors.Join(recordErrs...)
}

func errorLabel(err error) string {
	var appErr *utils.AppError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "CANCELLED"
	case errors.As(err, &appErr):
		return appErr.Code
	}
	return utils.ErrCodeInternal
}

// Resolve settles picks against match_results and then against the results the
// hub loaded from files.
func (s *MatchdayService) Resolve(ctx context.Context) (tracker.ResolveSummary, error) {
	if s.deps.Tracker == nil {
		return tracker.ResolveSummary{}, ErrNoStore
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	summary, err := s.deps.Tracker.Resolve(ctx)
	if err != nil {
		return summary, err
	}

	var finished []models.MatchResult
	for r := range s.deps.Engine.Source().GetMatchResults(models.ResultFilter{FinishedOnly: true}) {
		finished = append(finished, r)
	}
	hubSummary, err := s.deps.Tracker.ResolveWith(ctx, finished)
	summary = summary.Add(hubSummary)

	s.deps.Metrics.RecordResolution(summary.Wins, summary.Losses, summary.Pushes, summary.Profit)
	return summary, err
}

// Audit reports resolved picks whose stored outcome no longer matches the
// result. Conflicts come back with an error wrapping utils.ErrResolutionConflict.
func (s *MatchdayService) Audit(ctx context.Context) ([]tracker.Conflict, error) {
	if s.deps.Tracker == nil {
		return nil, ErrNoStore
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	conflicts, err := s.deps.Tracker.Audit(ctx)
	if err != nil && !errors.Is(err, utils.ErrResolutionConflict) {
		return nil, err
	}
	s.deps.Metrics.Conflicts.Set(float64(len(conflicts)))
	return conflicts, err
}

// CaptureClosingOdds writes closing prices for unresolved picks kicking off
// within the closing window. A feed failure for one fixture does not stop the pass.
func (s *MatchdayService) CaptureClosingOdds(ctx context.Context) (int, error) {
	if s.deps.Tracker == nil {
		return 0, ErrNoStore
	}
	if s.deps.Provider == nil || !s.deps.Provider.Enabled() {
		return 0, nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	pending, err := s.deps.Tracker.PendingClosing(ctx, s.deps.Now(), s.deps.ClosingWindow)
	if err != nil {
		return 0, err
	}

	byMatch := make(map[string][]models.Pick)
	order := make([]string, 0)
	for _, p := range pending {
		if _, ok := byMatch[p.MatchID]; !ok {
			order = append(order, p.MatchID)
		}
		byMatch[p.MatchID] = append(byMatch[p.MatchID], p)
	}

	captured := 0
	var errs []error
	for _, matchID := range order {
		if ctx.Err() != nil {
			return captured, ctx.Err()
		}
		live, err := s.deps.Provider.LiveOdds(ctx, matchID)
		s.deps.Metrics.RecordProvider("odds", err)
		if err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"match_id": matchID,
				"reason":   models.ReasonProviderUnavailable,
			}).Warn("Live odds unavailable")
			continue
		}

		best := providers.BestPrices(live)
		for _, p := range byMatch[matchID] {
			q, ok := best[p.MarketType]
			if !ok {
				continue
			}
			if _, err := s.deps.Tracker.UpdateClosingOdds(ctx, p.ID, q.Odds, q.Bookmaker); err != nil {
				errs = append(errs, fmt.Errorf("pick %s: %w", p.ID, err))
				continue
			}
			captured++
		}
	}

	s.deps.Metrics.ClosingCaptured.Add(float64(captured))
	return captured, errors.Join(errs...)
}

// Reload rebuilds the hub from the loader and drops nothing else; cached
// analyses are keyed by hub version and age out on their own.
func (s *MatchdayService) Reload(ctx context.Context) error {
	if s.deps.Hub == nil || s.deps.Loader == nil {
		return fmt.Errorf("%w: reload needs a hub and a loader", utils.ErrInvalidInput)
	}
	s.deps.Hub.Reload(s.deps.Loader(ctx))
	return nil
}
