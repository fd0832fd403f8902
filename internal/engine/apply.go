package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/roach88/questlog/internal/catalog"
	"github.com/roach88/questlog/internal/tracker"
)

// Messages returned for repeated per-day actions.
const (
	MsgQuestRepeated   = "Quest already completed today"
	MsgPenaltyRepeated = "Penalty already applied today"
)

// Outcome describes what Apply did to the document.
type Outcome struct {
	// Title is the history label of the action.
	Title string

	// Delta is the signed XP change before clamping at zero.
	Delta int

	// AlreadyApplied is set when a quest or penalty was already recorded
	// today. The document is untouched and must not be saved.
	AlreadyApplied bool

	// Message summarises the outcome for the caller.
	Message string
}

// Apply performs one state transition on doc in place.
//
// Apply is pure apart from mutating doc: the catalog lookup is resolved for
// now, and now is the only time source. On error doc is left unchanged;
// callers that need the original should pass a Clone.
func Apply(doc *tracker.Document, a Action, cat *catalog.Catalog, now time.Time) (Outcome, error) {
	var (
		title string
		delta int
		stat  string
	)

	switch a.Kind {
	case "":
		return Outcome{}, invalidAction("Action required")

	case KindQuest:
		entry, ok := cat.Quest(a.QuestID, now)
		if !ok {
			return Outcome{}, invalidAction("Invalid quest: %q", a.QuestID)
		}
		if tracker.Contains(doc.CompletedToday, entry.ID) {
			return Outcome{AlreadyApplied: true, Message: MsgQuestRepeated}, nil
		}
		doc.CompletedToday = append(doc.CompletedToday, entry.ID)
		tracker.Increment(doc.QuestsCompleted)
		tracker.Increment(doc.QuestsTotal)
		title, delta, stat = entry.Title, entry.XP, entry.Stat

	case KindPenalty:
		entry, ok := cat.Penalty(a.PenaltyID, now)
		if !ok {
			return Outcome{}, invalidAction("Invalid penalty: %q", a.PenaltyID)
		}
		if tracker.Contains(doc.PenaltiesToday, entry.ID) {
			return Outcome{AlreadyApplied: true, Message: MsgPenaltyRepeated}, nil
		}
		doc.PenaltiesToday = append(doc.PenaltiesToday, entry.ID)
		tracker.Increment(doc.QuestsTotal)
		title, delta, stat = entry.Title, entry.XP, entry.Stat

	case KindCustom:
		title = normalizeTitle(a.CustomTitle)
		if title == "" {
			return Outcome{}, invalidAction("Custom action requires a title")
		}
		if a.CustomXP != nil {
			delta = *a.CustomXP
		}

	case KindStats:
		deltas, err := parseCounterDeltas(a)
		if err != nil {
			return Outcome{}, err
		}
		if doc.Counters == nil {
			doc.Counters = make(map[string]float64, len(deltas))
		}
		for name, n := range deltas {
			doc.Counters[name] += n
		}
		title = TitleStats

	case KindNewDay:
		doc.CompletedToday = []string{}
		doc.PenaltiesToday = []string{}
		tracker.Increment(doc.DaysTracked)
		title = TitleNewDay

	case KindReset:
		doc.CompletedToday = []string{}
		doc.PenaltiesToday = []string{}
		title = TitleReset

	default:
		return Outcome{}, invalidAction("Invalid action: %q", a.Kind)
	}

	doc.XP = addXP(doc.XP, delta)
	if stat != "" {
		if v, ok := doc.Stats[stat]; ok {
			doc.Stats[stat] = max(tracker.MinStatValue, v+tracker.StatDelta(delta))
		}
	}
	doc.Recompute()

	stamp := now.UTC()
	if delta != 0 && title != "" {
		doc.History = tracker.AppendHistory(doc.History, tracker.HistoryEntry{
			Action: title,
			XP:     delta,
			Date:   stamp,
		})
	}
	doc.LastUpdated = stamp

	return Outcome{
		Title:   title,
		Delta:   delta,
		Message: fmt.Sprintf("%s %+d XP", title, delta),
	}, nil
}

// addXP adds delta to a non-negative xp total, saturating at math.MaxInt
// and clamping at zero.
func addXP(xp, delta int) int {
	if delta > 0 && xp > math.MaxInt-delta {
		return math.MaxInt
	}
	return max(0, xp+delta)
}

// parseCounterDeltas validates every delta before any is applied, so a bad
// entry rejects the whole action. Any finite JSON number is accepted.
func parseCounterDeltas(a Action) (map[string]float64, error) {
	out := make(map[string]float64, len(a.Stats))
	for name, raw := range a.Stats {
		if name == "" {
			return nil, invalidAction("Stats update has an empty name")
		}
		n, err := raw.Float64()
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, invalidAction("Stats delta for %q is not a number: %s", name, raw)
		}
		out[name] = n
	}
	return out, nil
}
