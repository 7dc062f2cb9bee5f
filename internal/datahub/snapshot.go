package datahub

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/crocodileps/Mon-ps-sub009/internal/models"
	"github.com/crocodileps/Mon-ps-sub009/internal/names"
)

// Snapshot is the full set of entities a Hub serves.
type Snapshot struct {
	Teams          []models.TeamProfile       `json:"teams"`
	MarketProfiles []models.MarketProfile     `json:"market_profiles"`
	H2H            []models.H2HPattern        `json:"h2h"`
	Friction       []models.FrictionRecord    `json:"friction"`
	Referees       []models.RefereeProfile    `json:"referees"`
	Goalscorers    []models.GoalscorerProfile `json:"goalscorers"`
	Defenders      []models.DefenderProfile   `json:"defenders"`
	Results        []models.MatchResult       `json:"results"`
}

type LoaderConfig struct {
	DB      *gorm.DB
	DataDir string
	Timeout time.Duration
}

// Load reads the database snapshot and fills gaps from the JSON files in DataDir.
// Database rows win over file rows with the same key. Failures are logged and the
// loader degrades to whatever sources are available.
func Load(ctx context.Context, cfg LoaderConfig, logger *logrus.Logger) *Snapshot {
	snapshot := &Snapshot{}

	if cfg.DB != nil {
		dbSnap, err := LoadFromDB(ctx, cfg.DB, cfg.Timeout)
		if err != nil {
			logger.WithError(err).Warn("Database snapshot unavailable, using file fallbacks only")
		} else {
			snapshot = dbSnap
		}
	}

	if cfg.DataDir != "" {
		files := LoadFromFiles(cfg.DataDir, logger)
		snapshot.Merge(files.Snapshot)
		files.applyOverlays(snapshot, logger)
	}

	return snapshot
}

// LoadFromDB reads every table within timeout.
func LoadFromDB(ctx context.Context, db *gorm.DB, timeout time.Duration) (*Snapshot, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tx := db.WithContext(ctx)
	s := &Snapshot{}

	queries := []struct {
		name string
		dest interface{}
	}{
		{"team_profiles", &s.Teams},
		{"market_profiles", &s.MarketProfiles},
		{"h2h_patterns", &s.H2H},
		{"friction", &s.Friction},
		{"referee_profiles", &s.Referees},
		{"goalscorer_profiles", &s.Goalscorers},
		{"defender_profiles", &s.Defenders},
		{"match_results", &s.Results},
	}
	for _, q := range queries {
		if err := tx.Find(q.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", q.name, err)
		}
	}
	return s, nil
}

// Merge appends entries from other whose key is not already present.
func (s *Snapshot) Merge(other Snapshot) {
	teamSeen := map[string]bool{}
	for _, t := range s.Teams {
		teamSeen[names.Key(names.Canonical(t.TeamName))] = true
	}
	for _, t := range other.Teams {
		if k := names.Key(names.Canonical(t.TeamName)); !teamSeen[k] {
			teamSeen[k] = true
			s.Teams = append(s.Teams, t)
		}
	}

	mpSeen := map[string]bool{}
	mpKey := func(m models.MarketProfile) string {
		return names.Key(names.Canonical(m.Team)) + "|" + string(m.MarketType) + "|" + string(m.Location)
	}
	for _, m := range s.MarketProfiles {
		mpSeen[mpKey(m)] = true
	}
	for _, m := range other.MarketProfiles {
		if !mpSeen[mpKey(m)] {
			mpSeen[mpKey(m)] = true
			s.MarketProfiles = append(s.MarketProfiles, m)
		}
	}

	h2hSeen := map[[2]string]bool{}
	for _, p := range s.H2H {
		a, b := names.PairKey(p.TeamA, p.TeamB)
		h2hSeen[[2]string{a, b}] = true
	}
	for _, p := range other.H2H {
		a, b := names.PairKey(p.TeamA, p.TeamB)
		if !h2hSeen[[2]string{a, b}] {
			h2hSeen[[2]string{a, b}] = true
			s.H2H = append(s.H2H, p)
		}
	}

	frSeen := map[[2]string]bool{}
	for _, f := range s.Friction {
		a, b := names.PairKey(f.TeamA, f.TeamB)
		frSeen[[2]string{a, b}] = true
	}
	for _, f := range other.Friction {
		a, b := names.PairKey(f.TeamA, f.TeamB)
		if !frSeen[[2]string{a, b}] {
			frSeen[[2]string{a, b}] = true
			s.Friction = append(s.Friction, f)
		}
	}

	refSeen := map[string]bool{}
	for _, r := range s.Referees {
		refSeen[names.Key(r.RefereeName)] = true
	}
	for _, r := range other.Referees {
		if k := names.Key(r.RefereeName); !refSeen[k] {
			refSeen[k] = true
			s.Referees = append(s.Referees, r)
		}
	}

	gsSeen := map[string]bool{}
	for _, g := range s.Goalscorers {
		gsSeen[names.Key(g.PlayerName)+"|"+g.Season] = true
	}
	for _, g := range other.Goalscorers {
		if k := names.Key(g.PlayerName) + "|" + g.Season; !gsSeen[k] {
			gsSeen[k] = true
			s.Goalscorers = append(s.Goalscorers, g)
		}
	}

	defSeen := map[string]bool{}
	for _, d := range s.Defenders {
		defSeen[names.Key(d.Team)+"|"+names.Key(d.PlayerName)] = true
	}
	for _, d := range other.Defenders {
		if k := names.Key(d.Team) + "|" + names.Key(d.PlayerName); !defSeen[k] {
			defSeen[k] = true
			s.Defenders = append(s.Defenders, d)
		}
	}

	resSeen := map[string]bool{}
	for _, r := range s.Results {
		resSeen[r.MatchID] = true
	}
	for _, r := range other.Results {
		if !resSeen[r.MatchID] {
			resSeen[r.MatchID] = true
			s.Results = append(s.Results, r)
		}
	}
}
