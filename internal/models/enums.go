package models

import (
	"encoding/json"
	"strings"
)

// Unknown is the explicit variant for labels outside a closed set.
const Unknown = "UNKNOWN"

func parseLabel(s string, known ...string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, " ", "_")
	for _, k := range known {
		if s == k {
			return k
		}
	}
	return Unknown
}

func unmarshalLabel(data []byte, parse func(string) string) (string, error) {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return "", err
	}
	return parse(s), nil
}

type Tier string

const (
	TierElite        Tier = "ELITE"
	TierGold         Tier = "GOLD"
	TierSilver       Tier = "SILVER"
	TierBronze       Tier = "BRONZE"
	TierExperimental Tier = "EXPERIMENTAL"
	TierUnknown      Tier = Unknown
)

func ParseTier(s string) Tier {
	return Tier(parseLabel(s, "ELITE", "GOLD", "SILVER", "BRONZE", "EXPERIMENTAL"))
}

func (t *Tier) UnmarshalJSON(data []byte) error {
	s, err := unmarshalLabel(data, func(s string) string { return string(ParseTier(s)) })
	*t = Tier(s)
	return err
}

type LuckProfile string

const (
	LuckUnlucky LuckProfile = "UNLUCKY"
	LuckNeutral LuckProfile = "NEUTRAL"
	LuckLucky   LuckProfile = "LUCKY"
	LuckUnknown LuckProfile = Unknown
)

func ParseLuckProfile(s string) LuckProfile {
	return LuckProfile(parseLabel(s, "UNLUCKY", "NEUTRAL", "LUCKY"))
}

func (l *LuckProfile) UnmarshalJSON(data []byte) error {
	s, err := unmarshalLabel(data, func(s string) string { return string(ParseLuckProfile(s)) })
	*l = LuckProfile(s)
	return err
}

// KeeperStatus is the nemesis-DNA view of the opposing keeper's form.
type KeeperStatus string

const (
	KeeperLeaky   KeeperStatus = "LEAKY"
	KeeperSolid   KeeperStatus = "SOLID"
	KeeperOnFire  KeeperStatus = "ON_FIRE"
	KeeperUnknown KeeperStatus = Unknown
)

func ParseKeeperStatus(s string) KeeperStatus {
	return KeeperStatus(parseLabel(s, "LEAKY", "SOLID", "ON_FIRE"))
}

func (k *KeeperStatus) UnmarshalJSON(data []byte) error {
	s, err := unmarshalLabel(data, func(s string) string { return string(ParseKeeperStatus(s)) })
	*k = KeeperStatus(s)
	return err
}

type TacticalProfile string

const (
	TacticalGegenpress TacticalProfile = "GEGENPRESS"
	TacticalPossession TacticalProfile = "POSSESSION"
	TacticalLowBlock   TacticalProfile = "LOW_BLOCK"
	TacticalTransition TacticalProfile = "TRANSITION"
	TacticalBalanced   TacticalProfile = "BALANCED"
	TacticalUnknown    TacticalProfile = Unknown
)

func ParseTacticalProfile(s string) TacticalProfile {
	return TacticalProfile(parseLabel(s, "GEGENPRESS", "POSSESSION", "LOW_BLOCK", "TRANSITION", "BALANCED"))
}

func (p *TacticalProfile) UnmarshalJSON(data []byte) error {
	s, err := unmarshalLabel(data, func(s string) string { return string(ParseTacticalProfile(s)) })
	*p = TacticalProfile(s)
	return err
}

type GoalkeeperStatus string

const (
	GoalkeeperElite   GoalkeeperStatus = "ELITE"
	GoalkeeperSolid   GoalkeeperStatus = "SOLID"
	GoalkeeperLeaky   GoalkeeperStatus = "LEAKY"
	GoalkeeperUnknown GoalkeeperStatus = Unknown
)

func ParseGoalkeeperStatus(s string) GoalkeeperStatus {
	return GoalkeeperStatus(parseLabel(s, "ELITE", "SOLID", "LEAKY"))
}

func (g *GoalkeeperStatus) UnmarshalJSON(data []byte) error {
	s, err := unmarshalLabel(data, func(s string) string { return string(ParseGoalkeeperStatus(s)) })
	*g = GoalkeeperStatus(s)
	return err
}

type GamestateBehavior string

const (
	GamestateComebackKing GamestateBehavior = "COMEBACK_KING"
	GamestateKiller       GamestateBehavior = "KILLER"
	GamestateGameManager  GamestateBehavior = "GAME_MANAGER"
	GamestateFrontRunner  GamestateBehavior = "FRONT_RUNNER"
	GamestateSettler      GamestateBehavior = "SETTLER"
	GamestateNeutral      GamestateBehavior = "NEUTRAL"
	GamestateUnknown      GamestateBehavior = Unknown
)

func ParseGamestateBehavior(s string) GamestateBehavior {
	return GamestateBehavior(parseLabel(s, "COMEBACK_KING", "KILLER", "GAME_MANAGER", "FRONT_RUNNER", "SETTLER", "NEUTRAL"))
}

func (g *GamestateBehavior) UnmarshalJSON(data []byte) error {
	s, err := unmarshalLabel(data, func(s string) string { return string(ParseGamestateBehavior(s)) })
	*g = GamestateBehavior(s)
	return err
}

type Strictness string

const (
	StrictnessStrict  Strictness = "STRICT"
	StrictnessNeutral Strictness = "NEUTRAL"
	StrictnessLenient Strictness = "LENIENT"
	StrictnessUnknown Strictness = Unknown
)

func ParseStrictness(s string) Strictness {
	return Strictness(parseLabel(s, "STRICT", "NEUTRAL", "LENIENT"))
}

func (st *Strictness) UnmarshalJSON(data []byte) error {
	s, err := unmarshalLabel(data, func(s string) string { return string(ParseStrictness(s)) })
	*st = Strictness(s)
	return err
}

// Location selects which split of a market profile is read.
type Location string

const (
	LocationOverall Location = "overall"
	LocationHome    Location = "home"
	LocationAway    Location = "away"
)

type Outcome string

const (
	OutcomeHome Outcome = "home"
	OutcomeDraw Outcome = "draw"
	OutcomeAway Outcome = "away"
)
