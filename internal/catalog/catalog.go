// Package catalog resolves quest and penalty identifiers to their title,
// XP value and stat affinity.
//
// Definitions are written in CUE and checked against an embedded schema
// (quests must award XP, penalties must remove it). A Catalog is immutable
// once loaded; entries that differ between weekdays and weekends are
// resolved from the date passed to each lookup, never cached.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaCUE []byte

//go:embed catalog.cue
var defaultCUE []byte

// Kind distinguishes the two tables.
type Kind string

const (
	KindQuest   Kind = "quest"
	KindPenalty Kind = "penalty"
)

// Entry is a resolved catalog definition for a specific day.
type Entry struct {
	ID    string
	Kind  Kind
	Title string
	XP    int
	Stat  string
}

// variant is the day-specific part of a definition.
type variant struct {
	Title string `json:"title"`
	XP    int    `json:"xp"`
}

// definition is one CUE entry as written. Either Title/XP or both
// Weekday and Weekend are set.
type definition struct {
	Title   string   `json:"title,omitempty"`
	XP      int      `json:"xp,omitempty"`
	Stat    string   `json:"stat,omitempty"`
	Weekday *variant `json:"weekday,omitempty"`
	Weekend *variant `json:"weekend,omitempty"`
}

func (d definition) resolve(id string, kind Kind, now time.Time) Entry {
	e := Entry{ID: id, Kind: kind, Title: d.Title, XP: d.XP, Stat: d.Stat}
	if d.Weekday != nil && d.Weekend != nil {
		v := d.Weekday
		if IsWeekend(now) {
			v = d.Weekend
		}
		e.Title, e.XP = v.Title, v.XP
	}
	return e
}

// Catalog holds the quest and penalty tables.
type Catalog struct {
	quests    map[string]definition
	penalties map[string]definition
}

// LoadError reports an invalid catalog source.
type LoadError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsWeekend reports whether now falls on a Saturday or Sunday in now's
// location.
func IsWeekend(now time.Time) bool {
	switch now.Weekday() {
	case time.Saturday, time.Sunday:
		return true
	default:
		return false
	}
}

// Default returns the built-in catalog. It panics if the embedded source is
// invalid, which the package tests rule out.
func Default() *Catalog {
	c, err := Load(defaultCUE)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded definitions: %v", err))
	}
	return c
}

// LoadFile reads and loads a CUE catalog from path.
func LoadFile(path string) (*Catalog, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return load(path, src)
}

// Load compiles a CUE catalog source and checks it against the schema.
func Load(src []byte) (*Catalog, error) {
	return load("catalog.cue", src)
}

func load(filename string, src []byte) (*Catalog, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	data := ctx.CompileBytes(src, cue.Filename(filename))
	if err := data.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v := schema.Unify(data)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	quests, err := parseTable(v, "quests")
	if err != nil {
		return nil, err
	}
	penalties, err := parseTable(v, "penalties")
	if err != nil {
		return nil, err
	}
	return &Catalog{quests: quests, penalties: penalties}, nil
}

func parseTable(v cue.Value, name string) (map[string]definition, error) {
	table := make(map[string]definition)

	tableVal := v.LookupPath(cue.ParsePath(name))
	if !tableVal.Exists() {
		return table, nil
	}

	iter, err := tableVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		id := iter.Label()
		entryVal := iter.Value()

		var def definition
		if err := entryVal.Decode(&def); err != nil {
			return nil, formatCUEError(err)
		}

		field := fmt.Sprintf("%s.%s", name, id)
		switch {
		case def.Weekday != nil || def.Weekend != nil:
			if def.Weekday == nil || def.Weekend == nil {
				return nil, &LoadError{Field: field, Message: "weekday and weekend variants must be defined together", Pos: entryVal.Pos()}
			}
			if def.Title != "" || def.XP != 0 {
				return nil, &LoadError{Field: field, Message: "title/xp cannot be combined with day variants", Pos: entryVal.Pos()}
			}
		case def.Title == "" || def.XP == 0:
			return nil, &LoadError{Field: field, Message: "title and xp are required", Pos: entryVal.Pos()}
		}

		table[id] = def
	}

	return table, nil
}

// formatCUEError keeps the first error and its source position.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &LoadError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return &LoadError{Field: "cue", Message: first.Error()}
}

// Quest resolves a quest identifier for the day of now.
func (c *Catalog) Quest(id string, now time.Time) (Entry, bool) {
	def, ok := c.quests[id]
	if !ok {
		return Entry{}, false
	}
	return def.resolve(id, KindQuest, now), true
}

// Penalty resolves a penalty identifier for the day of now.
func (c *Catalog) Penalty(id string, now time.Time) (Entry, bool) {
	def, ok := c.penalties[id]
	if !ok {
		return Entry{}, false
	}
	return def.resolve(id, KindPenalty, now), true
}

// Quests lists every quest resolved for the day of now, sorted by id.
func (c *Catalog) Quests(now time.Time) []Entry {
	return resolveAll(c.quests, KindQuest, now)
}

// Penalties lists every penalty resolved for the day of now, sorted by id.
func (c *Catalog) Penalties(now time.Time) []Entry {
	return resolveAll(c.penalties, KindPenalty, now)
}

func resolveAll(table map[string]definition, kind Kind, now time.Time) []Entry {
	ids := make([]string, 0, len(table))
	for id := range table {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	entries := make([]Entry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, table[id].resolve(id, kind, now))
	}
	return entries
}
