package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/questlog/internal/catalog"
	"github.com/roach88/questlog/internal/tracker"
)

var (
	monday   = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	saturday = time.Date(2026, 3, 7, 9, 0, 0, 0, time.UTC)
)

func quest(id string) Action   { return Action{Kind: KindQuest, QuestID: id} }
func penalty(id string) Action { return Action{Kind: KindPenalty, PenaltyID: id} }

func custom(title string, xp int) Action {
	return Action{Kind: KindCustom, CustomTitle: title, CustomXP: &xp}
}

func TestApply_Quest(t *testing.T) {
	doc := tracker.Seed(monday)

	out, err := Apply(doc, quest("steps"), catalog.Default(), monday)
	require.NoError(t, err)

	assert.False(t, out.AlreadyApplied)
	assert.Equal(t, "7000 Pas", out.Title)
	assert.Equal(t, 15, out.Delta)
	assert.Equal(t, "7000 Pas +15 XP", out.Message)

	assert.Equal(t, 15, doc.XP)
	assert.Equal(t, 1, doc.Level)
	assert.Equal(t, tracker.RankE, doc.Rank)
	assert.Equal(t, 11, doc.Stats[tracker.StatEndurance])
	assert.Equal(t, []string{"steps"}, doc.CompletedToday)
	assert.Equal(t, 1, *doc.QuestsCompleted)
	assert.Equal(t, 1, *doc.QuestsTotal)
	require.Len(t, doc.History, 1)
	assert.Equal(t, tracker.HistoryEntry{Action: "7000 Pas", XP: 15, Date: monday}, doc.History[0])
	assert.Equal(t, monday, doc.LastUpdated)
}

func TestApply_QuestIdempotentPerDay(t *testing.T) {
	doc := tracker.Seed(monday)
	_, err := Apply(doc, quest("steps"), catalog.Default(), monday)
	require.NoError(t, err)
	before := doc.Clone()

	out, err := Apply(doc, quest("steps"), catalog.Default(), monday.Add(time.Hour))
	require.NoError(t, err)

	assert.True(t, out.AlreadyApplied)
	assert.Equal(t, MsgQuestRepeated, out.Message)
	assert.Equal(t, before, doc, "repeat must not mutate")
}

func TestApply_PenaltyIdempotentPerDay(t *testing.T) {
	doc := tracker.Seed(monday)
	doc.XP = 500
	doc.Recompute()

	out, err := Apply(doc, penalty("junkFood"), catalog.Default(), monday)
	require.NoError(t, err)
	assert.Equal(t, -45, out.Delta)
	assert.Equal(t, 455, doc.XP)
	assert.Equal(t, 9, doc.Stats[tracker.StatVitality])
	assert.Equal(t, 0, *doc.QuestsCompleted)
	assert.Equal(t, 1, *doc.QuestsTotal)

	out, err = Apply(doc, penalty("junkFood"), catalog.Default(), monday)
	require.NoError(t, err)
	assert.True(t, out.AlreadyApplied)
	assert.Equal(t, MsgPenaltyRepeated, out.Message)
	assert.Equal(t, 455, doc.XP)
}

func TestApply_XPClampedAtZero(t *testing.T) {
	doc := tracker.Seed(monday)
	doc.XP = 15
	doc.Recompute()

	out, err := Apply(doc, penalty("missedWorkout"), catalog.Default(), monday)
	require.NoError(t, err)

	assert.Equal(t, 0, doc.XP)
	assert.Equal(t, -50, out.Delta)
	require.Len(t, doc.History, 1)
	assert.Equal(t, -50, doc.History[0].XP, "history keeps the unclamped delta")
}

func TestApply_StatFloor(t *testing.T) {
	doc := tracker.Seed(monday)
	doc.Stats[tracker.StatStrength] = tracker.MinStatValue

	_, err := Apply(doc, penalty("missedWorkout"), catalog.Default(), monday)
	require.NoError(t, err)

	assert.Equal(t, tracker.MinStatValue, doc.Stats[tracker.StatStrength])
}

func TestApply_StatOnlyNudgedWhenPresent(t *testing.T) {
	doc := tracker.Seed(monday)
	delete(doc.Stats, tracker.StatEndurance)

	_, err := Apply(doc, quest("steps"), catalog.Default(), monday)
	require.NoError(t, err)

	_, ok := doc.Stats[tracker.StatEndurance]
	assert.False(t, ok, "missing stat must not be created")
	assert.Equal(t, 15, doc.XP)
}

func TestApply_WeekendVariant(t *testing.T) {
	weekday := tracker.Seed(monday)
	weekend := tracker.Seed(saturday)

	wd, err := Apply(weekday, quest("work"), catalog.Default(), monday)
	require.NoError(t, err)
	we, err := Apply(weekend, quest("work"), catalog.Default(), saturday)
	require.NoError(t, err)

	assert.Equal(t, "Travail 8h", wd.Title)
	assert.Equal(t, 25, weekday.XP)
	assert.Equal(t, "Travail 3-4h", we.Title)
	assert.Equal(t, 15, weekend.XP)
	assert.NotEqual(t, wd.Delta, we.Delta)
}

func TestApply_Custom(t *testing.T) {
	doc := tracker.Seed(monday)

	out, err := Apply(doc, custom("  Cold shower ", 30), catalog.Default(), monday)
	require.NoError(t, err)
	assert.Equal(t, "Cold shower", out.Title)
	assert.Equal(t, 30, doc.XP)

	// custom actions are repeatable
	_, err = Apply(doc, custom("Cold shower", 30), catalog.Default(), monday)
	require.NoError(t, err)
	assert.Equal(t, 60, doc.XP)
	assert.Len(t, doc.History, 2)
	assert.Empty(t, doc.CompletedToday)
}

func TestApply_CustomWithoutXP(t *testing.T) {
	doc := tracker.Seed(monday)

	out, err := Apply(doc, Action{Kind: KindCustom, CustomTitle: "Meditated"}, catalog.Default(), monday)
	require.NoError(t, err)

	assert.Equal(t, 0, out.Delta)
	assert.Equal(t, "Meditated +0 XP", out.Message)
	assert.Empty(t, doc.History, "zero delta is not logged")
}

func TestApply_CustomRequiresTitle(t *testing.T) {
	doc := tracker.Seed(monday)

	_, err := Apply(doc, custom("   ", 10), catalog.Default(), monday)
	require.Error(t, err)
	assert.True(t, IsInvalidAction(err))
	assert.Equal(t, 0, doc.XP)
}

func TestApply_CustomLevelUp(t *testing.T) {
	doc := tracker.Seed(monday)

	_, err := Apply(doc, custom("Marathon", 200), catalog.Default(), monday)
	require.NoError(t, err)

	assert.Equal(t, 2, doc.Level)
	assert.Equal(t, tracker.RankE, doc.Rank)
}

func TestApply_Stats(t *testing.T) {
	doc := tracker.Seed(monday)
	doc.Counters["pushups"] = 5

	a := Action{Kind: KindStats, Stats: map[string]json.Number{"pushups": "20", "steps": "7200"}}
	out, err := Apply(doc, a, catalog.Default(), monday)
	require.NoError(t, err)

	assert.Equal(t, TitleStats, out.Title)
	assert.Equal(t, 0, out.Delta)
	assert.Equal(t, float64(25), doc.Counters["pushups"])
	assert.Equal(t, float64(7200), doc.Counters["steps"])
	assert.Equal(t, 0, doc.XP)
	assert.Empty(t, doc.History)
}

func TestApply_StatsAcceptsFractions(t *testing.T) {
	doc := tracker.Seed(monday)
	doc.Counters["sleep"] = 6

	a := Action{Kind: KindStats, Stats: map[string]json.Number{"steps": "7200.5", "sleep": "1.25", "weight": "-0.4"}}
	out, err := Apply(doc, a, catalog.Default(), monday)
	require.NoError(t, err)

	assert.Equal(t, "Stats update +0 XP", out.Message)
	assert.InDelta(t, 7200.5, doc.Counters["steps"], 1e-9)
	assert.InDelta(t, 7.25, doc.Counters["sleep"], 1e-9)
	assert.InDelta(t, -0.4, doc.Counters["weight"], 1e-9)
}

func TestApply_StatsRejectsNonNumeric(t *testing.T) {
	tests := map[string]json.Number{
		"garbage":  "lots",
		"overflow": "1e400",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			doc := tracker.Seed(monday)
			a := Action{Kind: KindStats, Stats: map[string]json.Number{"pushups": "20", "sleep": raw}}
			_, err := Apply(doc, a, catalog.Default(), monday)

			require.Error(t, err)
			assert.True(t, IsInvalidAction(err))
			assert.Empty(t, doc.Counters, "no delta is applied when one is bad")
		})
	}
}

func TestApply_NewDayAndReset(t *testing.T) {
	prepare := func(t *testing.T) *tracker.Document {
		doc := tracker.Seed(monday)
		_, err := Apply(doc, quest("steps"), catalog.Default(), monday)
		require.NoError(t, err)
		_, err = Apply(doc, penalty("junkFood"), catalog.Default(), monday)
		require.NoError(t, err)
		return doc
	}

	t.Run("newday", func(t *testing.T) {
		doc := prepare(t)
		xp := doc.XP

		out, err := Apply(doc, Action{Kind: KindNewDay}, catalog.Default(), monday)
		require.NoError(t, err)

		assert.Equal(t, TitleNewDay, out.Title)
		assert.Empty(t, doc.CompletedToday)
		assert.Empty(t, doc.PenaltiesToday)
		assert.Equal(t, 1, *doc.DaysTracked)
		assert.Equal(t, xp, doc.XP)
	})

	t.Run("reset", func(t *testing.T) {
		doc := prepare(t)
		xp := doc.XP

		out, err := Apply(doc, Action{Kind: KindReset}, catalog.Default(), monday)
		require.NoError(t, err)

		assert.Equal(t, TitleReset, out.Title)
		assert.Empty(t, doc.CompletedToday)
		assert.Empty(t, doc.PenaltiesToday)
		assert.Equal(t, 0, *doc.DaysTracked)
		assert.Equal(t, xp, doc.XP)
	})

	t.Run("quest allowed again after newday", func(t *testing.T) {
		doc := prepare(t)
		_, err := Apply(doc, Action{Kind: KindNewDay}, catalog.Default(), monday)
		require.NoError(t, err)

		out, err := Apply(doc, quest("steps"), catalog.Default(), monday.Add(24*time.Hour))
		require.NoError(t, err)
		assert.False(t, out.AlreadyApplied)
	})
}

func TestApply_UntrackedCountersStayNil(t *testing.T) {
	doc := tracker.Seed(monday)
	doc.DaysTracked, doc.QuestsCompleted, doc.QuestsTotal = nil, nil, nil

	_, err := Apply(doc, quest("water"), catalog.Default(), monday)
	require.NoError(t, err)
	_, err = Apply(doc, Action{Kind: KindNewDay}, catalog.Default(), monday)
	require.NoError(t, err)

	assert.Nil(t, doc.DaysTracked)
	assert.Nil(t, doc.QuestsCompleted)
	assert.Nil(t, doc.QuestsTotal)
}

func TestApply_HistoryCap(t *testing.T) {
	doc := tracker.Seed(monday)
	for i := 0; i < tracker.HistoryCapacity; i++ {
		doc.History = append(doc.History, tracker.HistoryEntry{
			Action: fmt.Sprintf("old-%02d", i),
			XP:     1,
			Date:   monday.Add(-time.Duration(tracker.HistoryCapacity-i) * time.Minute),
		})
	}

	_, err := Apply(doc, custom("newest", 5), catalog.Default(), monday)
	require.NoError(t, err)

	require.Len(t, doc.History, tracker.HistoryCapacity)
	assert.Equal(t, "old-01", doc.History[0].Action)
	assert.Equal(t, "newest", doc.History[tracker.HistoryCapacity-1].Action)
}

func TestApply_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		action Action
	}{
		{"empty kind", Action{}},
		{"unknown kind", Action{Kind: "dance"}},
		{"unknown quest", quest("skydiving")},
		{"missing quest id", Action{Kind: KindQuest}},
		{"quest id used as penalty", penalty("steps")},
		{"unknown penalty", penalty("laziness")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := tracker.Seed(monday)
			before := doc.Clone()

			_, err := Apply(doc, tt.action, catalog.Default(), monday)

			require.Error(t, err)
			assert.True(t, IsInvalidAction(err))
			assert.Equal(t, ErrCodeInvalidAction, CodeOf(err))
			assert.Equal(t, before, doc)
		})
	}
}

func TestAction_JSONNames(t *testing.T) {
	var a Action
	err := json.Unmarshal([]byte(`{"action":"custom","customAction":"Swim","customXp":40,"stats":{"laps":12}}`), &a)
	require.NoError(t, err)

	assert.Equal(t, KindCustom, a.Kind)
	assert.Equal(t, "Swim", a.CustomTitle)
	require.NotNil(t, a.CustomXP)
	assert.Equal(t, 40, *a.CustomXP)
	assert.Equal(t, json.Number("12"), a.Stats["laps"])
	assert.Equal(t, "custom", a.Label())
	assert.Equal(t, "quest:steps", quest("steps").Label())
}

func TestApply_HugeCustomXPSaturates(t *testing.T) {
	doc := tracker.Seed(monday)
	doc.XP = 1000
	doc.Recompute()

	out, err := Apply(doc, custom("Jackpot", math.MaxInt), catalog.Default(), monday)
	require.NoError(t, err)

	assert.Equal(t, math.MaxInt, doc.XP, "the sum must not wrap negative")
	assert.Equal(t, math.MaxInt, out.Delta)
	assert.Equal(t, tracker.Level(math.MaxInt), doc.Level)
	assert.NoError(t, doc.Validate())

	_, err = Apply(doc, custom("Again", 10), catalog.Default(), monday)
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt, doc.XP)
}

func TestAddXP(t *testing.T) {
	assert.Equal(t, 15, addXP(0, 15))
	assert.Equal(t, 0, addXP(10, -50))
	assert.Equal(t, math.MaxInt, addXP(math.MaxInt-1, 2))
	assert.Equal(t, 0, addXP(0, math.MinInt))
}
