package tracker

import "math"

// Rank names, lowest to highest.
const (
	RankE        = "E"
	RankD        = "D"
	RankC        = "C"
	RankB        = "B"
	RankA        = "A"
	RankS        = "S"
	RankNational = "NATIONAL"
)

const (
	levelXPScale    = 200.0
	levelExponent   = 0.45
	inverseExponent = 2.22
)

// rankBands is scanned top-down; the first band whose floor the level
// reaches wins.
var rankBands = []struct {
	minLevel int
	rank     string
}{
	{100, RankNational},
	{80, RankS},
	{60, RankA},
	{40, RankB},
	{25, RankC},
	{10, RankD},
}

// Level returns floor((xp/200)^0.45) + 1, or 1 for negative XP.
func Level(xp int) int {
	if xp < 0 {
		return 1
	}
	return int(math.Floor(math.Pow(float64(xp)/levelXPScale, levelExponent))) + 1
}

// Rank maps a level onto the rank ladder.
func Rank(level int) string {
	for _, b := range rankBands {
		if level >= b.minLevel {
			return b.rank
		}
	}
	return RankE
}

// StatDelta is the nudge applied to an action's stat affinity.
func StatDelta(xpDelta int) int {
	switch {
	case xpDelta > 0:
		return 1
	case xpDelta < 0:
		return -1
	default:
		return 0
	}
}

// XPForLevel approximates the XP at which level starts. It inverts the
// level curve with a rounded exponent, so it is for display only.
func XPForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	return int(math.Round(math.Pow(float64(level-1), inverseExponent) * levelXPScale))
}

// XPForNextLevel approximates the XP at which level+1 starts.
func XPForNextLevel(level int) int {
	if level < 1 {
		level = 1
	}
	return int(math.Round(math.Pow(float64(level), inverseExponent) * levelXPScale))
}

// Progress returns the percentage of the current level already earned,
// clamped to [0, 100].
func Progress(xp int) float64 {
	level := Level(xp)
	lo, hi := XPForLevel(level), XPForNextLevel(level)
	if hi <= lo {
		return 0
	}
	pct := float64(xp-lo) / float64(hi-lo) * 100
	return math.Max(0, math.Min(100, pct))
}

// Power is the aggregate score shown next to the rank.
func Power(d *Document) int {
	sum := 0
	for _, v := range d.Stats {
		sum += v
	}
	return int(math.Floor(float64(d.Level*100) + float64(sum*2) + float64(d.XP)/10))
}

// WinRate returns the share of applied quests among applied quests and
// penalties as a rounded percentage. ok is false when the counters are not
// tracked or nothing was applied yet.
func WinRate(d *Document) (rate int, ok bool) {
	if d.QuestsCompleted == nil || d.QuestsTotal == nil || *d.QuestsTotal <= 0 {
		return 0, false
	}
	return int(math.Round(float64(*d.QuestsCompleted) / float64(*d.QuestsTotal) * 100)), true
}
