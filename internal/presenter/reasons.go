// Package presenter renders structured engine output as plain text for the CLI.
package presenter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/crocodileps/Mon-ps-sub009/internal/adjusters"
	"github.com/crocodileps/Mon-ps-sub009/internal/decision"
	"github.com/crocodileps/Mon-ps-sub009/internal/models"
	"github.com/crocodileps/Mon-ps-sub009/internal/shorting"
)

// templates use {name} for a param, {subject} for the reason subject and
// {params} for the full parameter list.
var templates = map[string]string{
	models.ReasonTeamNotFound:        "team not found: {subject}",
	models.ReasonDefaultFriction:     "no friction record, friction {friction} chaos {chaos} assumed",
	models.ReasonDefaultMarkets:      "no market profile for {subject}",
	models.ReasonDefaultXG:           "missing xG, {xg} assumed",
	models.ReasonStaleData:           "stale data {subject} {params}",
	models.ReasonInsufficientSample:  "insufficient sample for {subject} {params}",
	models.ReasonRefereeBaseline:     "referee {subject} unknown, league trigger rate {trigger_rate} used",
	models.ReasonUnsupportedMarket:   "market {subject} is not supported",
	models.ReasonMarketBelowMinOdds:  "{subject} typical odds {typical_odds} below minimum {min_odds}",
	models.ReasonMarketClashVeto:     "market clash vetoes {subject} {params}",
	models.ReasonResolutionConflict:  "pick {subject} stored P/L {stored_pl}, recomputed {recomputed_pl}",
	models.ReasonDefenderCollapse:    "{subject} defensive collapse probability {collapse_probability}, kelly x{kelly_multiplier}",
	models.ReasonProviderUnavailable: "odds provider unavailable",

	decision.CodeChaosExtreme:      "chaos {chaos} above extreme",
	decision.CodeXGShootout:        "total xG {total_xg} points to a shootout",
	decision.CodeEdgeLowFriction:   "z edge {z_edge} with low friction {friction}",
	decision.CodeFrictionLowXG:     "friction {friction} with low total xG {total_xg}",
	decision.CodeEdgeHighFriction:  "z edge {z_edge} with friction {friction}",
	decision.CodeChaosHigh:         "chaos {chaos} above high",
	decision.CodeNoEdge:            "no usable z edge ({z_edge})",
	decision.CodeModerateValue:     "moderate value edge ({z_edge})",
	decision.CodeAsianTotalLine:    "asian total line {line} from total xG {total_xg}",
	decision.CodeBTTSByProbability: "btts probability {btts_prob}",
	decision.CodeHandicapLine:      "handicap {line} for {subject}",
	decision.CodeUnderLine:         "under {line} from total xG {total_xg}",
	decision.CodeFavorite:          "{subject} favoured by z edge {z_edge}",
	decision.CodeCardsChaos:        "cards angle from chaos {chaos}",
	decision.CodeSecondaryFallback: "secondary fallback",
	decision.WarnChaosExtreme:      "extreme chaos, expect volatility",
	decision.WarnFrictionHigh:      "very high friction",
	decision.WarnWeakEdge:          "weak edge",
	decision.WarnShootoutExpected:  "shootout expected",

	adjusters.CodeDefaultCards:      "{subject} has no card data, {cards} assumed",
	adjusters.CodeNoCornerBenchmark: "no corner benchmark for league {subject}",
	shorting.CodeNoStarters:         "{subject} has no starting defenders",
}

// Reason renders one reason. Unknown codes fall back to CODE subject (k=v, ...).
func Reason(r models.Reason) string {
	tmpl, ok := templates[r.Code]
	if !ok {
		return fallback(r)
	}

	out := strings.ReplaceAll(tmpl, "{subject}", r.Subject)
	out = strings.ReplaceAll(out, "{params}", paramList(r))
	for _, k := range r.ParamKeys() {
		out = strings.ReplaceAll(out, "{"+k+"}", number(r.Params[k]))
	}
	if strings.Contains(out, "{") {
		// template names a param the reason did not carry
		return fallback(r)
	}
	return strings.Join(strings.Fields(out), " ")
}

func paramList(r models.Reason) string {
	if len(r.Params) == 0 {
		return ""
	}
	parts := make([]string, 0, len(r.Params))
	for _, k := range r.ParamKeys() {
		parts = append(parts, fmt.Sprintf("%s=%s", k, number(r.Params[k])))
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func fallback(r models.Reason) string {
	var b strings.Builder
	b.WriteString(r.Code)
	if r.Subject != "" {
		b.WriteString(" ")
		b.WriteString(r.Subject)
	}
	if len(r.Params) > 0 {
		b.WriteString(" ")
		b.WriteString(paramList(r))
	}
	return b.String()
}

func Reasons(rs []models.Reason) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, Reason(r))
	}
	return out
}

// number prints at most two decimals without trailing zeros.
func number(v float64) string {
	return strconv.FormatFloat(round2(v), 'f', -1, 64)
}
