package engine

import (
	"encoding/json"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Kind selects which transition an Action performs.
type Kind string

const (
	KindQuest   Kind = "quest"
	KindPenalty Kind = "penalty"
	KindCustom  Kind = "custom"
	KindStats   Kind = "stats"
	KindNewDay  Kind = "newday"
	KindReset   Kind = "reset"
)

// Titles recorded for actions that have no catalog entry.
const (
	TitleStats  = "Stats update"
	TitleNewDay = "New day"
	TitleReset  = "Daily reset"
)

// Action is one request to mutate the tracker, as decoded from the wire.
//
// Only the fields relevant to Kind are read: QuestID for quest, PenaltyID
// for penalty, CustomTitle/CustomXP for custom, Stats for stats.
type Action struct {
	Kind        Kind                   `json:"action"`
	QuestID     string                 `json:"questId,omitempty"`
	PenaltyID   string                 `json:"penaltyId,omitempty"`
	CustomTitle string                 `json:"customAction,omitempty"`
	CustomXP    *int                   `json:"customXp,omitempty"`
	Stats       map[string]json.Number `json:"stats,omitempty"`
}

// Label names the action in logs and save messages.
func (a Action) Label() string {
	switch a.Kind {
	case KindQuest:
		return string(a.Kind) + ":" + a.QuestID
	case KindPenalty:
		return string(a.Kind) + ":" + a.PenaltyID
	default:
		return string(a.Kind)
	}
}

// normalizeTitle trims and NFC-normalizes a caller-provided title so the
// same text typed on different devices lands in history identically.
func normalizeTitle(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
