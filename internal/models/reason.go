package models

import "sort"

// Reason is a structured rationale entry; rendering is left to the presenter.
type Reason struct {
	Code    string             `json:"code"`
	Subject string             `json:"subject,omitempty"`
	Params  map[string]float64 `json:"params,omitempty"`
}

func NewReason(code string, params map[string]float64) Reason {
	return Reason{Code: code, Params: params}
}

func (r Reason) WithSubject(subject string) Reason {
	r.Subject = subject
	return r
}

// ParamKeys returns the parameter names in sorted order.
func (r Reason) ParamKeys() []string {
	keys := make([]string, 0, len(r.Params))
	for k := range r.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Reason codes shared across components.
const (
	ReasonTeamNotFound        = "TEAM_NOT_FOUND"
	ReasonDefaultFriction     = "DEFAULT_FRICTION"
	ReasonDefaultMarkets      = "DEFAULT_MARKET_PROFILE"
	ReasonDefaultXG           = "DEFAULT_XG"
	ReasonStaleData           = "STALE_DATA"
	ReasonInsufficientSample  = "INSUFFICIENT_SAMPLE"
	ReasonRefereeBaseline     = "REFEREE_BASELINE"
	ReasonUnsupportedMarket   = "UNSUPPORTED_MARKET"
	ReasonMarketBelowMinOdds  = "MARKET_BELOW_MIN_ODDS"
	ReasonMarketClashVeto     = "MARKET_CLASH_VETO"
	ReasonResolutionConflict  = "RESOLUTION_CONFLICT"
	ReasonDefenderCollapse    = "DEFENDER_COLLAPSE_RISK"
	ReasonProviderUnavailable = "PROVIDER_UNAVAILABLE"
)
