package tracker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"
)

// Stat names carried by the seed document.
const (
	StatStrength     = "strength"
	StatIntelligence = "intelligence"
	StatEndurance    = "endurance"
	StatVitality     = "vitality"
	StatDiscipline   = "discipline"
)

// DefaultStatValue is the starting value of every seeded stat.
const DefaultStatValue = 10

// MinStatValue is the floor applied after every stat adjustment.
const MinStatValue = 1

// HistoryEntry is one XP-affecting action in the trailing log.
type HistoryEntry struct {
	Action string    `json:"action"`
	XP     int       `json:"xp"`
	Date   time.Time `json:"date"`
}

// Document is the tracker state persisted by the store.
//
// DaysTracked, QuestsCompleted and QuestsTotal are optional: a nil counter
// is not tracked and is left untouched by every action.
type Document struct {
	XP              int              `json:"xp"`
	Level           int              `json:"level"`
	Rank            string           `json:"rank"`
	Stats           map[string]int   `json:"stats"`
	CompletedToday  []string         `json:"completedToday"`
	PenaltiesToday  []string         `json:"penaltiesToday"`
	History         []HistoryEntry   `json:"history"`
	Counters        map[string]float64 `json:"counters"`
	DaysTracked     *int             `json:"daysTracked,omitempty"`
	QuestsCompleted *int             `json:"questsCompleted,omitempty"`
	QuestsTotal     *int             `json:"questsTotal,omitempty"`
	LastUpdated     time.Time        `json:"lastUpdated"`
}

// Seed returns the initial document.
func Seed(now time.Time) *Document {
	zero := func() *int { n := 0; return &n }
	doc := &Document{
		Stats: map[string]int{
			StatStrength:     DefaultStatValue,
			StatIntelligence: DefaultStatValue,
			StatEndurance:    DefaultStatValue,
			StatVitality:     DefaultStatValue,
			StatDiscipline:   DefaultStatValue,
		},
		CompletedToday:  []string{},
		PenaltiesToday:  []string{},
		History:         []HistoryEntry{},
		Counters:        map[string]float64{},
		DaysTracked:     zero(),
		QuestsCompleted: zero(),
		QuestsTotal:     zero(),
		LastUpdated:     now.UTC(),
	}
	doc.Recompute()
	return doc
}

// Recompute derives level and rank from XP.
func (d *Document) Recompute() {
	d.Level = Level(d.XP)
	d.Rank = Rank(d.Level)
}

// Clone returns a deep copy so a failed pipeline never leaks partial
// mutations into the caller's document.
func (d *Document) Clone() *Document {
	c := *d
	c.Stats = maps.Clone(d.Stats)
	c.Counters = maps.Clone(d.Counters)
	c.CompletedToday = slices.Clone(d.CompletedToday)
	c.PenaltiesToday = slices.Clone(d.PenaltiesToday)
	c.History = slices.Clone(d.History)
	c.DaysTracked = cloneInt(d.DaysTracked)
	c.QuestsCompleted = cloneInt(d.QuestsCompleted)
	c.QuestsTotal = cloneInt(d.QuestsTotal)
	return &c
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	n := *p
	return &n
}

// Marshal encodes the document as two-space indented JSON with a trailing
// newline, the on-disk format shared by every store.
func Marshal(d *Document) ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return append(data, '\n'), nil
}

// Unmarshal decodes a stored document and normalizes nil collections so
// callers can mutate them without nil checks. Level and rank are derived
// and recomputed from xp; any other broken invariant rejects the document.
func Unmarshal(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("unmarshal document: empty input")
	}
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	if d.Stats == nil {
		d.Stats = map[string]int{}
	}
	if d.CompletedToday == nil {
		d.CompletedToday = []string{}
	}
	if d.PenaltiesToday == nil {
		d.PenaltiesToday = []string{}
	}
	if d.History == nil {
		d.History = []HistoryEntry{}
	}
	if d.Counters == nil {
		d.Counters = map[string]float64{}
	}
	d.Recompute()
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("unmarshal document: invalid document: %w", err)
	}
	return &d, nil
}

// Validate reports the first broken document invariant, if any.
func (d *Document) Validate() error {
	if d.XP < 0 {
		return fmt.Errorf("xp %d is negative", d.XP)
	}
	for name, v := range d.Stats {
		if v < MinStatValue {
			return fmt.Errorf("stat %q is %d, below %d", name, v, MinStatValue)
		}
	}
	if dup, ok := firstDuplicate(d.CompletedToday); ok {
		return fmt.Errorf("completedToday lists %q twice", dup)
	}
	if dup, ok := firstDuplicate(d.PenaltiesToday); ok {
		return fmt.Errorf("penaltiesToday lists %q twice", dup)
	}
	if len(d.History) > HistoryCapacity {
		return fmt.Errorf("history has %d entries, capacity %d", len(d.History), HistoryCapacity)
	}
	if d.Level != Level(d.XP) || d.Rank != Rank(d.Level) {
		return fmt.Errorf("level/rank %d/%s out of sync with xp %d", d.Level, d.Rank, d.XP)
	}
	return nil
}

func firstDuplicate(ids []string) (string, bool) {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return id, true
		}
		seen[id] = struct{}{}
	}
	return "", false
}

// Contains reports whether ids already holds id.
func Contains(ids []string, id string) bool {
	return slices.Contains(ids, id)
}

// Increment bumps an optional counter when it is tracked.
func Increment(counter *int) {
	if counter != nil {
		*counter++
	}
}
