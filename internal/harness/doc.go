// Package harness replays YAML scenarios against the action processor.
//
// A scenario describes a starting document, a clock start and a list of
// actions, each with optional expectations on the outcome. Run executes the
// steps through a real engine.Processor backed by an in-memory store, with
// a stepping clock and sequential request ids, so the same scenario always
// produces the same trace and final document.
//
// Scenario format:
//
//	name: quest-then-penalty
//	description: A completed quest followed by a penalty that clamps XP.
//	start: "2026-03-02T09:00:00Z"
//	initial:
//	  xp: 30
//	steps:
//	  - action: quest
//	    questId: steps
//	    expect:
//	      message: "7000 Pas +15 XP"
//	      xp: 45
//	  - action: penalty
//	    penaltyId: missedWorkout
//	    expect: {xp: 0}
//	assertions:
//	  - type: document
//	    expect:
//	      stats: {strength: 9}
//	  - type: saves
//	    count: 2
//
// Golden snapshots (see RunWithGolden) store the canonical JSON of the
// trace and final document under testdata/golden.
package harness
