package datahub

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/crocodileps/Mon-ps-sub009/internal/models"
	"github.com/crocodileps/Mon-ps-sub009/internal/names"
)

// File names recognised in the data directory.
const (
	FileTeamsContext  = "teams_context_dna.json"
	FileGoalkeepers   = "goalkeeper_dna.json"
	FileDefense       = "defense_dna.json"
	FilePlayersImpact = "players_impact_dna.json"
	FileReferees      = "referee_dna.json"
	FileTeamExploits  = "team_exploits.json"
	FileMatches       = "matches.json"
	FileDefenders     = "defender_dna.json"
	GoalEventsPattern = "all_goals_*.json"
)

type teamsContextFile struct {
	Teams    []models.TeamProfile    `json:"teams"`
	Friction []models.FrictionRecord `json:"friction"`
}

type teamExploitsFile struct {
	MarketProfiles []models.MarketProfile `json:"market_profiles"`
	H2H            []models.H2HPattern    `json:"h2h"`
}

// DefenseOverlay fills defensive and discipline fields missing from a team's DNA.
type DefenseOverlay struct {
	XGAgainstAvg      float64 `json:"xg_against_avg"`
	AvgCards          float64 `json:"avg_cards"`
	AvgFouls          float64 `json:"avg_fouls"`
	CornersAgainstAvg float64 `json:"corners_against_avg"`
}

// FileSet is everything read from the data directory.
type FileSet struct {
	Snapshot    Snapshot
	Goalkeepers map[string]models.GoalkeeperDNA
	Defense     map[string]DefenseOverlay
	Loaded      []string
}

// LoadFromFiles reads every known file that exists in dir. Missing files are
// skipped; malformed files are logged and skipped.
func LoadFromFiles(dir string, logger *logrus.Logger) FileSet {
	set := FileSet{}
	log := logger.WithField("data_dir", dir)

	read := func(name string, dest interface{}) bool {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				log.WithField("file", name).Debug("Optional data file not present")
			} else {
				log.WithError(err).WithField("file", name).Warn("Failed to read data file")
			}
			return false
		}
		if err := json.Unmarshal(data, dest); err != nil {
			log.WithError(err).WithField("file", name).Warn("Malformed data file skipped")
			return false
		}
		set.Loaded = append(set.Loaded, name)
		return true
	}

	var ctxFile teamsContextFile
	if read(FileTeamsContext, &ctxFile) {
		set.Snapshot.Teams = ctxFile.Teams
		set.Snapshot.Friction = ctxFile.Friction
	}

	var exploits teamExploitsFile
	if read(FileTeamExploits, &exploits) {
		set.Snapshot.MarketProfiles = exploits.MarketProfiles
		set.Snapshot.H2H = exploits.H2H
	}

	read(FileReferees, &set.Snapshot.Referees)
	read(FileDefenders, &set.Snapshot.Defenders)
	read(FileGoalkeepers, &set.Goalkeepers)
	read(FileDefense, &set.Defense)

	var matches []models.MatchResult
	if read(FileMatches, &matches) {
		for i := range matches {
			if matches[i].Outcome == "" {
				matches[i].DeriveOutcome()
			}
		}
		set.Snapshot.Results = matches
	}

	var impact []PlayerImpact
	read(FilePlayersImpact, &impact)

	paths, _ := filepath.Glob(filepath.Join(dir, GoalEventsPattern))
	sort.Strings(paths)
	var events []GoalEvent
	for _, p := range paths {
		var batch []GoalEvent
		if read(filepath.Base(p), &batch) {
			events = append(events, batch...)
		}
	}
	if len(events) > 0 {
		set.Snapshot.Goalscorers = AggregateGoalscorers(events, impact)
	}

	log.WithField("files", set.Loaded).Info("Data files loaded")
	return set
}

// applyOverlays fills goalkeeper and defensive gaps on teams that lack them.
func (f FileSet) applyOverlays(s *Snapshot, logger *logrus.Logger) {
	gk := make(map[string]models.GoalkeeperDNA, len(f.Goalkeepers))
	for team, v := range f.Goalkeepers {
		gk[names.Key(names.Canonical(team))] = v
	}
	def := make(map[string]DefenseOverlay, len(f.Defense))
	for team, v := range f.Defense {
		def[names.Key(names.Canonical(team))] = v
	}

	for i := range s.Teams {
		t := &s.Teams[i]
		k := names.Key(names.Canonical(t.TeamName))

		if g, ok := gk[k]; ok {
			if t.DNA.Goalkeeper.Status == "" || t.DNA.Goalkeeper.Status == models.GoalkeeperUnknown {
				t.DNA.Goalkeeper = g
			}
		}
		if d, ok := def[k]; ok {
			if t.DNA.CurrentSeason.XGAgainstAvg == 0 {
				t.DNA.CurrentSeason.XGAgainstAvg = d.XGAgainstAvg
			}
			if t.DNA.Discipline.AvgCards == 0 {
				t.DNA.Discipline.AvgCards = d.AvgCards
			}
			if t.DNA.Discipline.AvgFouls == 0 {
				t.DNA.Discipline.AvgFouls = d.AvgFouls
			}
			if t.DNA.SetPieces.CornersAgainstAvg == 0 {
				t.DNA.SetPieces.CornersAgainstAvg = d.CornersAgainstAvg
			}
		}
	}
	logger.WithFields(logrus.Fields{
		"goalkeepers": len(gk),
		"defense":     len(def),
	}).Debug("Applied DNA overlays")
}
