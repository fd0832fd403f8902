// Package engine applies tracker actions to the stored document.
//
// Apply is the pure state transition: given a document, an action, the
// catalog and the current time, it mutates the document in place or
// rejects the action. Processor wraps Apply in one read-modify-write
// against a store.Store:
//
//  1. Load the document and its version token
//  2. Clone it and Apply the action
//  3. Save the result conditioned on the version that was read
//
// Quest and penalty ids are recorded per day, so a repeat returns an
// AlreadyApplied outcome and performs no write. A save that loses a
// version race fails with ErrCodeUpstreamWrite; the processor never
// retries and never merges.
//
// Every Process call gets a request id (UUIDv7 by default), a slog record
// and a span tree rooted at "questlog.process".
package engine
