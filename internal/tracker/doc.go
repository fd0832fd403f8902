// Package tracker defines the persisted tracker document and the pure
// progression rules derived from it.
//
// The document is the only durable state. Level and rank are never trusted
// from a previous write; Recompute derives them from XP every time a new
// version is produced.
package tracker
