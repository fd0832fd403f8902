// Package store persists the tracker document behind a versioned
// load/save contract.
//
// Every Load returns the document together with an opaque version token.
// Save is conditioned on that token: if the stored document changed in the
// meantime the write is rejected with a *ConflictError and nothing is
// written. Callers decide what to do with a conflict; the engine surfaces it
// to the client without retrying.
//
// # Adapters
//
//   - Memory: process-local, used by tests and throwaway sessions
//   - SQLite: single-row document table with a revision audit log
//   - GitHub: a JSON file in a repository, via the contents API; the
//     blob SHA is the version token
//
// Memory and SQLite derive their version token from the canonical JSON
// fingerprint of the document (see internal/canon), so the token is a pure
// function of content.
//
// # SQLite Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
