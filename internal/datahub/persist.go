package datahub

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const persistBatchSize = 200

// Persist upserts a snapshot into the database in one transaction, keyed on each
// table's natural unique index. Returns the row count written per table.
func Persist(ctx context.Context, db *gorm.DB, s *Snapshot, logger *logrus.Logger) (map[string]int, error) {
	tables := []struct {
		name  string
		keys  []string
		rows  interface{}
		count int
	}{
		{"team_profiles", []string{"team_name"}, &s.Teams, len(s.Teams)},
		{"market_profiles", []string{"team", "market_type", "location"}, &s.MarketProfiles, len(s.MarketProfiles)},
		{"h2h_patterns", []string{"team_a", "team_b"}, &s.H2H, len(s.H2H)},
		{"friction", []string{"team_a", "team_b"}, &s.Friction, len(s.Friction)},
		{"referee_profiles", []string{"referee_name"}, &s.Referees, len(s.Referees)},
		{"goalscorer_profiles", []string{"player_name", "season"}, &s.Goalscorers, len(s.Goalscorers)},
		{"defender_profiles", []string{"player_name", "team"}, &s.Defenders, len(s.Defenders)},
		{"match_results", []string{"match_id"}, &s.Results, len(s.Results)},
	}

	written := make(map[string]int, len(tables))
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	for _, t := range tables {
		if t.count == 0 {
			continue
		}
		cols := make([]clause.Column, len(t.keys))
		for i, k := range t.keys {
			cols[i] = clause.Column{Name: k}
		}
		err := tx.Clauses(clause.OnConflict{Columns: cols, UpdateAll: true}).
			CreateInBatches(t.rows, persistBatchSize).Error
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to persist %s: %w", t.name, err)
		}
		written[t.name] = t.count
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit snapshot: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"teams":   written["team_profiles"],
		"results": written["match_results"],
		"tables":  len(written),
	}).Info("Snapshot persisted")
	return written, nil
}
