// Package datahub is the read-only facade over team, market, friction, referee,
// player and result data. A Hub is built from a Snapshot, served concurrently and
// swapped atomically on Reload.
package datahub

import (
	"iter"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/crocodileps/Mon-ps-sub009/internal/markets"
	"github.com/crocodileps/Mon-ps-sub009/internal/models"
	"github.com/crocodileps/Mon-ps-sub009/internal/names"
)

// Reader is the read contract every engine component depends on.
type Reader interface {
	GetTeam(name string) *models.TeamProfile
	GetMarketProfile(team string, loc models.Location) (MarketTable, bool)
	GetH2H(a, b string) (models.H2HPattern, bool)
	GetFriction(a, b string) (models.FrictionRecord, bool)
	GetReferee(name string) (models.RefereeProfile, bool)
	GetGoalscorers(team string) []models.GoalscorerProfile
	GetDefenders(team string) []models.DefenderProfile
	GetMatchResults(filter models.ResultFilter) iter.Seq[models.MatchResult]
	Teams() []models.TeamProfile
}

// MarketStat is one market row of a team's profile.
type MarketStat struct {
	WinRate    float64 `json:"wr"`
	ROI        float64 `json:"roi"`
	AvgOdds    float64 `json:"avg_odds"`
	SampleSize int     `json:"sample_size"`
	IsBest     bool    `json:"is_best"`
	IsAvoid    bool    `json:"is_avoid"`
}

type MarketTable map[markets.Market]MarketStat

// DefaultMarketTable is served for teams without a recorded profile. Its sample
// size is zero so no resolver rule treats it as evidence.
func DefaultMarketTable() MarketTable {
	table := MarketTable{}
	for m, wr := range map[markets.Market]float64{
		markets.Over25:      53,
		markets.BTTSYes:     52,
		markets.Under25:     47,
		markets.CleanSheet:  25,
		markets.FailToScore: 25,
	} {
		odds, _ := markets.TypicalOdds(m)
		table[m] = MarketStat{WinRate: wr, AvgOdds: odds}
	}
	return table
}

type Options struct {
	RefereeHighConfidence int
	LeagueAvgTrigger      float64
}

type index struct {
	teams       map[string]*models.TeamProfile
	teamKeys    []string
	markets     map[string]map[models.Location]MarketTable
	h2h         map[[2]string]models.H2HPattern
	friction    map[[2]string]models.FrictionRecord
	referees    map[string]models.RefereeProfile
	baseline    models.RefereeProfile
	goalscorers map[string][]models.GoalscorerProfile
	defenders   map[string][]models.DefenderProfile
	results     []models.MatchResult
	gamestate   GamestateThresholds
}

type Hub struct {
	mu      sync.RWMutex
	idx     *index
	lookups map[string]string
	version int
	opts    Options
	logger  *logrus.Logger
}

func New(snapshot *Snapshot, opts Options, logger *logrus.Logger) *Hub {
	if opts.RefereeHighConfidence <= 0 {
		opts.RefereeHighConfidence = 100
	}
	h := &Hub{opts: opts, logger: logger}
	h.Reload(snapshot)
	return h
}

// Reload swaps in a new snapshot and clears the lookup cache.
func (h *Hub) Reload(snapshot *Snapshot) {
	if snapshot == nil {
		snapshot = &Snapshot{}
	}
	idx := buildIndex(snapshot, h.opts, h.logger)

	h.mu.Lock()
	h.idx = idx
	h.lookups = make(map[string]string)
	h.version++
	h.mu.Unlock()

	h.logger.WithFields(logrus.Fields{
		"teams":    len(idx.teams),
		"friction": len(idx.friction),
		"referees": len(idx.referees),
		"results":  len(idx.results),
		"version":  h.version,
	}).Info("Data hub loaded")
}

// Version increments on every Reload.
func (h *Hub) Version() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.version
}

// Close drops all indexes; the hub serves defaults afterwards.
func (h *Hub) Close() {
	h.mu.Lock()
	h.idx = buildIndex(&Snapshot{}, h.opts, h.logger)
	h.lookups = make(map[string]string)
	h.mu.Unlock()
}

func (h *Hub) current() *index {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.idx
}

func buildIndex(s *Snapshot, opts Options, logger *logrus.Logger) *index {
	idx := &index{
		teams:       make(map[string]*models.TeamProfile, len(s.Teams)),
		markets:     make(map[string]map[models.Location]MarketTable),
		h2h:         make(map[[2]string]models.H2HPattern, len(s.H2H)),
		friction:    make(map[[2]string]models.FrictionRecord, len(s.Friction)),
		referees:    make(map[string]models.RefereeProfile, len(s.Referees)),
		goalscorers: make(map[string][]models.GoalscorerProfile),
		defenders:   make(map[string][]models.DefenderProfile),
	}

	for i := range s.Teams {
		t := s.Teams[i]
		k := names.Key(names.Canonical(t.TeamName))
		if _, dup := idx.teams[k]; dup {
			logger.WithField("team", t.TeamName).Warn("Duplicate team profile ignored")
			continue
		}
		idx.teams[k] = &t
		idx.teamKeys = append(idx.teamKeys, k)
	}
	sort.Strings(idx.teamKeys)
	idx.gamestate = calibrateGamestate(idx.teams)

	for _, mp := range s.MarketProfiles {
		if !mp.MarketType.Valid() {
			logger.WithFields(logrus.Fields{"team": mp.Team, "market": mp.MarketType}).Warn("Unknown market in profile skipped")
			continue
		}
		if mp.IsBestMarket && mp.IsAvoidMarket {
			logger.WithFields(logrus.Fields{"team": mp.Team, "market": mp.MarketType}).Warn("Market flagged both best and avoid, clearing both")
			mp.IsBestMarket, mp.IsAvoidMarket = false, false
		}
		k := idx.resolveKey(mp.Team)
		loc := mp.Location
		if loc == "" {
			loc = models.LocationOverall
		}
		if idx.markets[k] == nil {
			idx.markets[k] = make(map[models.Location]MarketTable)
		}
		if idx.markets[k][loc] == nil {
			idx.markets[k][loc] = MarketTable{}
		}
		idx.markets[k][loc][mp.MarketType] = MarketStat{
			WinRate:    mp.WinRate,
			ROI:        mp.ROI,
			AvgOdds:    mp.AvgOdds,
			SampleSize: mp.SampleSize,
			IsBest:     mp.IsBestMarket,
			IsAvoid:    mp.IsAvoidMarket,
		}
	}

	for _, p := range s.H2H {
		a, b := names.PairKey(p.TeamA, p.TeamB)
		idx.h2h[[2]string{a, b}] = p
	}
	for _, f := range s.Friction {
		a, b := names.PairKey(f.TeamA, f.TeamB)
		idx.friction[[2]string{a, b}] = f
	}

	var triggerSum float64
	for _, r := range s.Referees {
		r.Confidence = models.RefereeConfidence(r.Matches, opts.RefereeHighConfidence)
		idx.referees[names.Key(r.RefereeName)] = r
		triggerSum += r.CardTriggerRate
	}
	idx.baseline = models.RefereeProfile{
		RefereeName:     "baseline",
		Strictness:      models.StrictnessNeutral,
		CardTriggerRate: opts.LeagueAvgTrigger,
	}
	if len(s.Referees) > 0 {
		idx.baseline.CardTriggerRate = triggerSum / float64(len(s.Referees))
	}

	for _, g := range s.Goalscorers {
		k := idx.resolveKey(g.Team)
		idx.goalscorers[k] = append(idx.goalscorers[k], g)
	}
	for k := range idx.goalscorers {
		list := idx.goalscorers[k]
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].TotalGoals != list[j].TotalGoals {
				return list[i].TotalGoals > list[j].TotalGoals
			}
			return list[i].PlayerName < list[j].PlayerName
		})
	}

	for _, d := range s.Defenders {
		k := idx.resolveKey(d.Team)
		idx.defenders[k] = append(idx.defenders[k], d)
	}

	idx.results = make([]models.MatchResult, len(s.Results))
	copy(idx.results, s.Results)
	sort.SliceStable(idx.results, func(i, j int) bool {
		a, b := idx.results[i], idx.results[j]
		if !a.CommenceTime.Equal(b.CommenceTime) {
			return a.CommenceTime.Before(b.CommenceTime)
		}
		return a.MatchID < b.MatchID
	})

	return idx
}

// resolveKey maps a name onto a known team key, or its own key when unknown.
func (idx *index) resolveKey(name string) string {
	if k, ok := idx.findTeam(name); ok {
		return k
	}
	return names.Key(names.Canonical(name))
}

// clubAffixes are tokens providers bolt onto a club's name.
var clubAffixes = map[string]bool{"fc": true, "afc": true, "cf": true}

// findTeam matches exactly after canonicalization, then with club affixes
// dropped, then by whole words of the query inside a team name when exactly
// one team qualifies. A query is never matched by a team name it contains.
func (idx *index) findTeam(name string) (string, bool) {
	k := names.Key(names.Canonical(name))
	if k == "" {
		return "", false
	}
	if _, ok := idx.teams[k]; ok {
		return k, true
	}
	if bare := stripAffixes(k); bare != "" && bare != k {
		k = names.Key(names.Canonical(bare))
		if _, ok := idx.teams[k]; ok {
			return k, true
		}
	}
	if len(k) < 3 {
		return "", false
	}

	var match string
	count := 0
	for _, tk := range idx.teamKeys {
		if strings.Contains(" "+tk+" ", " "+k+" ") {
			match = tk
			count++
		}
	}
	if count == 1 {
		return match, true
	}
	return "", false
}

func stripAffixes(k string) string {
	fields := strings.Fields(k)
	kept := fields[:0]
	for _, f := range fields {
		if !clubAffixes[f] {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}

func (h *Hub) teamKey(name string) (string, bool) {
	h.mu.RLock()
	k, cached := h.lookups[name]
	idx := h.idx
	h.mu.RUnlock()
	if cached {
		return k, k != ""
	}

	k, ok := idx.findTeam(name)
	h.mu.Lock()
	if h.idx == idx {
		h.lookups[name] = k
	}
	h.mu.Unlock()
	return k, ok
}

// GetTeam returns a copy of the profile or nil when the name cannot be matched.
func (h *Hub) GetTeam(name string) *models.TeamProfile {
	k, ok := h.teamKey(name)
	if !ok {
		return nil
	}
	t := *h.current().teams[k]
	return &t
}

func (h *Hub) GetMarketProfile(team string, loc models.Location) (MarketTable, bool) {
	idx := h.current()
	k := idx.resolveKey(team)
	byLoc := idx.markets[k]
	if table, ok := byLoc[loc]; ok && len(table) > 0 {
		return cloneTable(table), true
	}
	if table, ok := byLoc[models.LocationOverall]; ok && len(table) > 0 {
		return cloneTable(table), true
	}
	return DefaultMarketTable(), false
}

func cloneTable(t MarketTable) MarketTable {
	out := make(MarketTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

func (h *Hub) GetH2H(a, b string) (models.H2HPattern, bool) {
	idx := h.current()
	ka, kb := pair(idx, a, b)
	p, ok := idx.h2h[[2]string{ka, kb}]
	return p, ok
}

func pair(idx *index, a, b string) (string, string) {
	ka, kb := idx.resolveKey(a), idx.resolveKey(b)
	if ka <= kb {
		return ka, kb
	}
	return kb, ka
}

// GetFriction matches either ordering and falls back to neutral defaults.
func (h *Hub) GetFriction(a, b string) (models.FrictionRecord, bool) {
	idx := h.current()
	ka, kb := pair(idx, a, b)
	if f, ok := idx.friction[[2]string{ka, kb}]; ok {
		return f, true
	}
	return models.DefaultFriction(a, b), false
}

// GetReferee returns the profile or the zero-impact baseline.
func (h *Hub) GetReferee(name string) (models.RefereeProfile, bool) {
	idx := h.current()
	if r, ok := idx.referees[names.Key(name)]; ok && name != "" {
		return r, true
	}
	return idx.baseline, false
}

func (h *Hub) GetGoalscorers(team string) []models.GoalscorerProfile {
	idx := h.current()
	list := idx.goalscorers[idx.resolveKey(team)]
	out := make([]models.GoalscorerProfile, len(list))
	copy(out, list)
	return out
}

func (h *Hub) GetDefenders(team string) []models.DefenderProfile {
	idx := h.current()
	list := idx.defenders[idx.resolveKey(team)]
	out := make([]models.DefenderProfile, len(list))
	copy(out, list)
	return out
}

// GetMatchResults yields results in (commence_time, match_id) order.
func (h *Hub) GetMatchResults(filter models.ResultFilter) iter.Seq[models.MatchResult] {
	idx := h.current()
	if filter.Team != "" {
		filter.Team = idx.resolveKey(filter.Team)
	}
	return func(yield func(models.MatchResult) bool) {
		for _, r := range idx.results {
			keyed := r
			if filter.Team != "" {
				keyed.HomeTeam = idx.resolveKey(r.HomeTeam)
				keyed.AwayTeam = idx.resolveKey(r.AwayTeam)
			}
			if !filter.Match(keyed) {
				continue
			}
			if !yield(r) {
				return
			}
		}
	}
}

// Teams returns every team profile sorted by name key.
func (h *Hub) Teams() []models.TeamProfile {
	idx := h.current()
	out := make([]models.TeamProfile, 0, len(idx.teamKeys))
	for _, k := range idx.teamKeys {
		out = append(out, *idx.teams[k])
	}
	return out
}

// GamestateThresholds returns the corpus percentiles used for calibration.
func (h *Hub) GamestateThresholds() GamestateThresholds {
	return h.current().gamestate
}
