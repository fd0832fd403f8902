package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/questlog/internal/catalog"
	"github.com/roach88/questlog/internal/engine"
	"github.com/roach88/questlog/internal/store"
	"github.com/roach88/questlog/internal/testutil"
	"github.com/roach88/questlog/internal/tracker"
)

// TraceEvent records what one step did.
type TraceEvent struct {
	Seq            int    `json:"seq"`
	RequestID      string `json:"request_id"`
	Action         string `json:"action"`
	Message        string `json:"message,omitempty"`
	Delta          int    `json:"delta"`
	XP             int    `json:"xp"`
	Level          int    `json:"level"`
	Rank           string `json:"rank,omitempty"`
	AlreadyApplied bool   `json:"already_applied,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace holds one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Document is the stored document after the last step.
	Document *tracker.Document `json:"document"`

	// Saves counts successful store writes.
	Saves int `json:"saves"`
}

func newResult() *Result {
	return &Result{Pass: true, Trace: []TraceEvent{}, Errors: []string{}}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Run executes a scenario and returns the result.
//
// Each run uses a fresh in-memory store seeded from the scenario, a
// stepping clock and sequential request ids, so results are reproducible.
// A non-nil error means the scenario could not be executed at all; failed
// expectations are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	start, err := scenario.startTime()
	if err != nil {
		return nil, err
	}
	step, err := scenario.stepDuration()
	if err != nil {
		return nil, err
	}

	cat := catalog.Default()
	if scenario.Catalog != "" {
		cat, err = catalog.LoadFile(scenario.Catalog)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
	}

	initial, err := initialDocument(start, scenario.Initial)
	if err != nil {
		return nil, fmt.Errorf("failed to build initial document: %w", err)
	}
	mem, err := store.NewMemoryWith(initial)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory store: %w", err)
	}

	clock := testutil.NewSteppingClock(start, step)
	ids := testutil.NewSequentialIDs("req")
	p := engine.New(mem, cat,
		engine.WithClock(clock),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in tests
	)

	ctx := context.Background()
	result := newResult()
	for i, s := range scenario.Steps {
		if s.At != "" {
			at, _ := time.Parse(time.RFC3339, s.At) // validated on load
			clock.Set(at)
		}
		event := runStep(ctx, p, ids.Generate(), i+1, s)
		result.Trace = append(result.Trace, event)
		checkExpect(result, i, s, event)
	}

	doc, _, err := mem.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load final document: %w", err)
	}
	result.Document = doc
	result.Saves = mem.Saves()

	for i, a := range scenario.Assertions {
		if err := evaluateAssertion(a, result); err != nil {
			result.AddError("assertions[%d]: %v", i, err)
		}
	}
	return result, nil
}

func runStep(ctx context.Context, p *engine.Processor, requestID string, seq int, s Step) TraceEvent {
	action := s.toAction()
	event := TraceEvent{Seq: seq, RequestID: requestID, Action: action.Label()}

	res, err := p.Process(engine.ContextWithRequestID(ctx, requestID), action)
	if err != nil {
		event.Error = string(engine.CodeOf(err))
		return event
	}
	event.Message = res.Outcome.Message
	event.Delta = res.Outcome.Delta
	event.AlreadyApplied = res.Outcome.AlreadyApplied
	event.XP = res.Document.XP
	event.Level = res.Document.Level
	event.Rank = res.Document.Rank
	return event
}

func checkExpect(r *Result, index int, s Step, got TraceEvent) {
	want := s.Expect
	if want == nil {
		if got.Error != "" {
			r.AddError("steps[%d] (%s): unexpected error %s", index, got.Action, got.Error)
		}
		return
	}
	label := fmt.Sprintf("steps[%d] (%s)", index, got.Action)

	if want.Error != got.Error {
		r.AddError("%s: expected error %q, got %q", label, want.Error, got.Error)
		return
	}
	if want.Message != nil && *want.Message != got.Message {
		r.AddError("%s: expected message %q, got %q", label, *want.Message, got.Message)
	}
	if want.Delta != nil && *want.Delta != got.Delta {
		r.AddError("%s: expected delta %d, got %d", label, *want.Delta, got.Delta)
	}
	if want.XP != nil && *want.XP != got.XP {
		r.AddError("%s: expected xp %d, got %d", label, *want.XP, got.XP)
	}
	if want.Level != nil && *want.Level != got.Level {
		r.AddError("%s: expected level %d, got %d", label, *want.Level, got.Level)
	}
	if want.Rank != nil && *want.Rank != got.Rank {
		r.AddError("%s: expected rank %q, got %q", label, *want.Rank, got.Rank)
	}
	if want.AlreadyApplied != nil && *want.AlreadyApplied != got.AlreadyApplied {
		r.AddError("%s: expected already_applied %t, got %t", label, *want.AlreadyApplied, got.AlreadyApplied)
	}
}

func (s Step) toAction() engine.Action {
	a := engine.Action{
		Kind:        engine.Kind(s.Action),
		QuestID:     s.QuestID,
		PenaltyID:   s.PenaltyID,
		CustomTitle: s.CustomAction,
		CustomXP:    s.CustomXP,
	}
	if len(s.Stats) > 0 {
		a.Stats = make(map[string]json.Number, len(s.Stats))
		for name, v := range s.Stats {
			a.Stats[name] = json.Number(fmt.Sprint(v))
		}
	}
	return a
}

// initialDocument overlays overrides onto the seed document. Maps such as
// stats are merged key by key; every other field is replaced.
func initialDocument(start time.Time, overrides map[string]any) (*tracker.Document, error) {
	doc := tracker.Seed(start)
	if len(overrides) == 0 {
		return doc, nil
	}
	data, err := json.Marshal(overrides)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, err
	}
	doc.Recompute()
	return doc, nil
}
