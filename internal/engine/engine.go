// Package engine runs the per-fixture pipeline: load, normalize, value, project,
// resolve market profiles, decide, then attach advisory adjusters.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/crocodileps/Mon-ps-sub009/internal/adjusters"
	"github.com/crocodileps/Mon-ps-sub009/internal/datahub"
	"github.com/crocodileps/Mon-ps-sub009/internal/decision"
	"github.com/crocodileps/Mon-ps-sub009/internal/marketprofile"
	"github.com/crocodileps/Mon-ps-sub009/internal/models"
	"github.com/crocodileps/Mon-ps-sub009/internal/names"
	"github.com/crocodileps/Mon-ps-sub009/internal/normalizer"
	"github.com/crocodileps/Mon-ps-sub009/internal/projector"
	"github.com/crocodileps/Mon-ps-sub009/internal/shorting"
	"github.com/crocodileps/Mon-ps-sub009/internal/value"
	"github.com/crocodileps/Mon-ps-sub009/pkg/config"
	"github.com/crocodileps/Mon-ps-sub009/pkg/logger"
	"github.com/crocodileps/Mon-ps-sub009/pkg/utils"
)

const (
	DataQualityComplete = "complete"
	DataQualityPartial  = "partial"

	topScorers = 3
)

// Source is the data hub as the engine sees it.
type Source interface {
	datahub.Reader
	Version() int
}

type Options struct {
	Thresholds decision.Thresholds
	Markets    marketprofile.Settings
	Cards      adjusters.CardsSettings
	Corners    adjusters.CornersSettings
	StaleAfter time.Duration
	Workers    int
	Now        func() time.Time
}

func DefaultOptions() Options {
	return Options{
		Thresholds: decision.DefaultThresholds(),
		Markets:    marketprofile.DefaultSettings(),
		Cards:      adjusters.DefaultCardsSettings(),
		Corners:    adjusters.DefaultCornersSettings(),
		StaleAfter: 30 * 24 * time.Hour,
		Workers:    config.DefaultWorkers(),
	}
}

func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	opts.Thresholds = decision.FromConfig(cfg)
	opts.Markets = marketprofile.Settings{MinSample: cfg.MinSample, MinOdds: cfg.MinOdds, MinH2H: cfg.MinH2H}
	opts.Cards.MinRefereeMatches = cfg.MinRefereeMatches
	opts.Cards.LeagueAvgTrigger = cfg.LeagueAvgTrigger
	opts.StaleAfter = cfg.StaleAfter
	opts.Workers = cfg.Workers
	return opts
}

type Request struct {
	MatchID         string    `json:"match_id,omitempty"`
	Home            string    `json:"home"`
	Away            string    `json:"away"`
	League          string    `json:"league,omitempty"`
	CommenceTime    time.Time `json:"commence_time,omitempty"`
	Referee         string    `json:"referee,omitempty"`
	OpponentStyle   string    `json:"opponent_style,omitempty"`
	MatchImportance float64   `json:"match_importance,omitempty"`
}

type TeamView struct {
	Name      string                     `json:"name"`
	League    string                     `json:"league"`
	Value     value.Score                `json:"value"`
	Z         normalizer.Result          `json:"z"`
	Shorting  shorting.Assessment        `json:"shorting"`
	Scorers   []models.GoalscorerProfile `json:"top_scorers,omitempty"`
	UpdatedAt time.Time                  `json:"updated_at"`
}

type Alignment struct {
	Modifier  float64                 `json:"modifier"`
	Alignment marketprofile.Alignment `json:"alignment"`
}

// Analysis is the structured, presentation-free result for one fixture.
type Analysis struct {
	MatchID      string                      `json:"match_id"`
	League       string                      `json:"league,omitempty"`
	CommenceTime time.Time                   `json:"commence_time,omitempty"`
	Status       utils.Status                `json:"status"`
	ErrorCode    string                      `json:"error_code,omitempty"`
	Message      string                      `json:"message,omitempty"`
	DataQuality  string                      `json:"data_quality"`
	Home         TeamView                    `json:"home"`
	Away         TeamView                    `json:"away"`
	Projection   projector.Projection        `json:"projection"`
	Markets      marketprofile.Resolution    `json:"markets"`
	Alignment    Alignment                   `json:"alignment"`
	Decision     decision.Decision           `json:"decision"`
	Cards        adjusters.CardsProjection   `json:"cards"`
	Corners      adjusters.CornersProjection `json:"corners"`
	Reasons      []models.Reason             `json:"reasons,omitempty"`
}

type corpus struct {
	version    int
	values     map[string]value.Score
	z          map[string]normalizer.Result
	benchmarks map[string]adjusters.Benchmark
	all        adjusters.Benchmark
}

type Engine struct {
	src      Source
	scorer   *value.Scorer
	resolver *marketprofile.Resolver
	matrix   *decision.Matrix
	cards    *adjusters.CardsAdjuster
	corners  *adjusters.CornersAdjuster
	opts     Options
	logger   *logrus.Logger

	mu     sync.Mutex
	corpus *corpus
}

func New(src Source, scorer *value.Scorer, opts Options, logger *logrus.Logger) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Workers <= 0 {
		opts.Workers = config.DefaultWorkers()
	}
	return &Engine{
		src:      src,
		scorer:   scorer,
		resolver: marketprofile.NewResolver(src, opts.Markets, logger),
		matrix:   decision.NewMatrix(opts.Thresholds),
		cards:    adjusters.NewCardsAdjuster(opts.Cards, logger),
		corners:  adjusters.NewCornersAdjuster(opts.Corners, logger),
		opts:     opts,
		logger:   logger,
	}
}

func (e *Engine) Source() Source {
	return e.src
}

func (e *Engine) Options() Options {
	return e.opts
}

// Corpus returns the league-normalized value scores of every known team.
func (e *Engine) Corpus() map[string]normalizer.Result {
	c := e.currentCorpus()
	out := make(map[string]normalizer.Result, len(c.z))
	for k, v := range c.z {
		out[k] = v
	}
	return out
}

// currentCorpus rebuilds value scores and z-scores whenever the hub reloads.
func (e *Engine) currentCorpus() *corpus {
	version := e.src.Version()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.corpus != nil && e.corpus.version == version {
		return e.corpus
	}

	teams := e.src.Teams()
	c := &corpus{
		version:    version,
		values:     make(map[string]value.Score, len(teams)),
		benchmarks: make(map[string]adjusters.Benchmark),
	}
	entries := make([]normalizer.Entry, 0, len(teams))
	for _, t := range teams {
		s := e.scorer.Score(t)
		c.values[t.TeamName] = s
		entries = append(entries, normalizer.Entry{Team: t.TeamName, League: t.League, Value: s.ValueScore})
		if _, ok := c.benchmarks[t.League]; !ok {
			c.benchmarks[t.League] = adjusters.LeagueBenchmark(teams, t.League)
		}
	}
	c.z = normalizer.Normalize(entries, e.logger)
	c.all = adjusters.LeagueBenchmark(teams, "")
	e.corpus = c

	e.logger.WithFields(logrus.Fields{
		"teams":   len(teams),
		"leagues": len(c.benchmarks),
		"version": version,
	}).Debug("Value corpus rebuilt")
	return c
}

// MatchID derives a stable identifier for a fixture without one.
func MatchID(home, away string, commence time.Time) string {
	key := names.Key(names.Canonical(home)) + "|" + names.Key(names.Canonical(away))
	if !commence.IsZero() {
		key += "|" + commence.UTC().Format("2006-01-02")
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

// Analyze runs the full pipeline for one fixture. A missing team yields an ERROR
// analysis together with an error wrapping utils.ErrTeamNotFound.
func (e *Engine) Analyze(ctx context.Context, req Request) (*Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Home) == "" || strings.TrimSpace(req.Away) == "" {
		return nil, utils.WrapAppError(utils.ErrCodeValidation, utils.ErrInvalidInput, "home and away teams are required")
	}

	a := &Analysis{
		MatchID:      req.MatchID,
		League:       req.League,
		CommenceTime: req.CommenceTime,
		DataQuality:  DataQualityComplete,
	}
	if a.MatchID == "" {
		a.MatchID = MatchID(req.Home, req.Away, req.CommenceTime)
	}
	log := logger.WithFixture(e.logger, req.Home, req.Away).WithField("match_id", a.MatchID)

	home := e.src.GetTeam(req.Home)
	away := e.src.GetTeam(req.Away)
	for _, miss := range []struct {
		name    string
		profile *models.TeamProfile
	}{{req.Home, home}, {req.Away, away}} {
		if miss.profile != nil {
			continue
		}
		a.Status = utils.StatusError
		a.ErrorCode = utils.ErrCodeMissingData
		a.Message = fmt.Sprintf("team not found: %s", miss.name)
		a.Reasons = append(a.Reasons, models.NewReason(models.ReasonTeamNotFound, nil).WithSubject(miss.name))
	}
	if a.Status == utils.StatusError {
		log.Warn("Fixture skipped, team not found")
		return a, utils.WrapAppError(utils.ErrCodeMissingData, fmt.Errorf("%w: %s", utils.ErrTeamNotFound, a.Message), "cannot analyze fixture")
	}
	if names.Key(home.TeamName) == names.Key(away.TeamName) {
		return nil, utils.WrapAppError(utils.ErrCodeValidation, utils.ErrInvalidInput, "home and away resolve to the same team")
	}
	if a.League == "" {
		a.League = home.League
	}

	c := e.currentCorpus()
	a.Home = e.teamView(c, home)
	a.Away = e.teamView(c, away)

	friction, found := e.src.GetFriction(home.TeamName, away.TeamName)
	if !found {
		a.Reasons = append(a.Reasons, models.NewReason(models.ReasonDefaultFriction, map[string]float64{
			"friction": friction.FrictionScore,
			"chaos":    friction.ChaosPotential,
		}))
	}

	proj := projector.Project(*home, *away, friction)
	if proj.DefaultXG {
		a.Reasons = append(a.Reasons, models.NewReason(models.ReasonDefaultXG, map[string]float64{"xg": models.DefaultXG}))
	}
	if proj.BTTSProb <= 0 {
		proj.BTTSProb = projector.ProbBTTS(proj.HomeXG, proj.AwayXG)
	}
	if proj.Over25Prob <= 0 {
		proj.Over25Prob = projector.ProbOver(proj.TotalXG, 2.5)
	}

	a.Markets = e.resolver.Resolve(home.TeamName, away.TeamName)
	a.Reasons = append(a.Reasons, a.Markets.Reasons...)

	stale := e.staleReasons(home, away, friction, found)
	a.Reasons = append(a.Reasons, stale...)

	homeStyle, awayStyle := req.OpponentStyle, req.OpponentStyle
	if homeStyle == "" {
		homeStyle = shorting.StyleFromTactical(away.DNA.Tactical.Profile)
		awayStyle = shorting.StyleFromTactical(home.DNA.Tactical.Profile)
	}
	a.Home.Shorting = shorting.Assess(home.TeamName, e.src.GetDefenders(home.TeamName), homeStyle)
	a.Away.Shorting = shorting.Assess(away.TeamName, e.src.GetDefenders(away.TeamName), awayStyle)

	var advisories []models.Reason
	for _, s := range []shorting.Assessment{a.Home.Shorting, a.Away.Shorting} {
		if s.Advisory() {
			advisories = append(advisories, s.Reason())
		}
	}

	ref, refFound := e.src.GetReferee(req.Referee)
	if req.Referee == "" {
		refFound = false
	}
	a.Cards = e.cards.Project(*home, *away, ref, refFound, req.MatchImportance)
	a.Reasons = append(a.Reasons, a.Cards.Reasons...)

	in := decision.Input{
		HomeZ:           a.Home.Z.ZScore,
		AwayZ:           a.Away.Z.ZScore,
		HomeXG:          proj.HomeXG,
		AwayXG:          proj.AwayXG,
		TotalXG:         proj.TotalXG,
		Friction:        proj.Friction,
		Chaos:           proj.Chaos,
		BTTSProb:        proj.BTTSProb,
		Over25Prob:      proj.Over25Prob,
		ClashMarkets:    a.Markets.ClashMarkets,
		CardsOver45Prob: a.Cards.ProbOver45,
		Stale:           len(stale) > 0,
		Advisories:      advisories,
	}
	a.Decision = e.matrix.Decide(in)
	if !a.Decision.Primary.IsSkip() {
		a.Alignment.Modifier, a.Alignment.Alignment = marketprofile.AlignTarget(a.Markets, a.Decision.Primary.Market)
	}
	for _, r := range a.Decision.Rationale {
		if r.Code == models.ReasonMarketClashVeto && r.Subject != "" {
			log.WithFields(logrus.Fields{
				"todo_code": "CLASH_PRECEDENCE",
				"vetoed":    r.Subject,
				"clash":     a.Markets.ClashMarkets,
			}).Warn("Market clash vetoed decision row")
		}
	}

	bench, ok := c.benchmarks[home.League]
	if !ok || bench.Teams == 0 {
		bench = c.all
	}
	a.Corners = e.corners.Project(*home, *away, bench)

	a.Projection = roundProjection(proj)

	for _, r := range a.Reasons {
		switch r.Code {
		case models.ReasonDefaultFriction, models.ReasonDefaultMarkets, models.ReasonDefaultXG, models.ReasonStaleData:
			a.DataQuality = DataQualityPartial
		}
	}
	switch {
	case a.Decision.Primary.IsSkip():
		a.Status = utils.StatusSkip
	case a.DataQuality == DataQualityPartial:
		a.Status = utils.StatusPartial
	default:
		a.Status = utils.StatusOK
	}

	log.WithFields(logrus.Fields{
		"decision":     a.Decision.Type,
		"primary":      a.Decision.Primary.Selection,
		"confidence":   a.Decision.Confidence,
		"data_quality": a.DataQuality,
	}).Info("Fixture analyzed")
	return a, nil
}

func (e *Engine) teamView(c *corpus, t *models.TeamProfile) TeamView {
	v := TeamView{
		Name:      t.TeamName,
		League:    t.League,
		Value:     c.values[t.TeamName],
		Z:         c.z[t.TeamName],
		UpdatedAt: t.UpdatedAt,
	}
	scorers := e.src.GetGoalscorers(t.TeamName)
	if len(scorers) > topScorers {
		scorers = scorers[:topScorers]
	}
	v.Scorers = scorers
	return v
}

// staleReasons flags records older than StaleAfter. Zero timestamps are unknown, not stale.
func (e *Engine) staleReasons(home, away *models.TeamProfile, f models.FrictionRecord, frictionFound bool) []models.Reason {
	if e.opts.StaleAfter <= 0 {
		return nil
	}
	now := e.opts.Now()
	var out []models.Reason
	check := func(subject string, updated time.Time) {
		if updated.IsZero() {
			return
		}
		age := now.Sub(updated)
		if age > e.opts.StaleAfter {
			out = append(out, models.NewReason(models.ReasonStaleData, map[string]float64{
				"age_days": projector.Round2(age.Hours() / 24),
			}).WithSubject(subject))
		}
	}
	check(home.TeamName, home.UpdatedAt)
	check(away.TeamName, away.UpdatedAt)
	if frictionFound {
		check("friction", f.UpdatedAt)
	}
	return out
}

func roundProjection(p projector.Projection) projector.Projection {
	p.HomeXG = projector.Round2(p.HomeXG)
	p.AwayXG = projector.Round2(p.AwayXG)
	p.TotalXG = projector.Round2(p.TotalXG)
	p.Multiplier = projector.Round2(p.Multiplier)
	p.BTTSProb = projector.Round2(p.BTTSProb)
	p.Over25Prob = projector.Round2(p.Over25Prob)
	return p
}
