package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/questlog/internal/tracker"
)

// Memory keeps the serialized document in process memory.
//
// Thread-safety: all methods are safe for concurrent use. Loads return a
// freshly decoded copy, so callers never share mutable state.
type Memory struct {
	mu      sync.Mutex
	body    []byte
	version string
	saves   int
}

// NewMemory returns an empty store. Load fails with ErrNotFound until Init
// or Reset stores a document.
func NewMemory() *Memory {
	return &Memory{}
}

// NewMemoryWith returns a store holding doc.
func NewMemoryWith(doc *tracker.Document) (*Memory, error) {
	m := &Memory{}
	if err := m.Reset(doc); err != nil {
		return nil, err
	}
	return m, nil
}

// Load implements Store.
func (m *Memory) Load(ctx context.Context) (*tracker.Document, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	m.mu.Lock()
	body, version := m.body, m.version
	m.mu.Unlock()

	if body == nil {
		return nil, "", ErrNotFound
	}
	doc, err := tracker.Unmarshal(body)
	if err != nil {
		return nil, "", fmt.Errorf("memory load: %w", err)
	}
	return doc, version, nil
}

// Save implements Store.
func (m *Memory) Save(ctx context.Context, w Write) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	body, version, err := encode(w.Document)
	if err != nil {
		return "", fmt.Errorf("memory save: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.body == nil {
		return "", ErrNotFound
	}
	if m.version != w.Version {
		return "", &ConflictError{Expected: w.Version, Current: m.version}
	}
	m.body, m.version = body, version
	m.saves++
	return version, nil
}

// Init implements Initializer.
func (m *Memory) Init(ctx context.Context, doc *tracker.Document, _ string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	body, version, err := encode(doc)
	if err != nil {
		return false, fmt.Errorf("memory init: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.body != nil {
		return false, nil
	}
	m.body, m.version = body, version
	return true, nil
}

// Reset unconditionally replaces the stored document.
func (m *Memory) Reset(doc *tracker.Document) error {
	body, version, err := encode(doc)
	if err != nil {
		return fmt.Errorf("memory reset: %w", err)
	}
	m.mu.Lock()
	m.body, m.version = body, version
	m.mu.Unlock()
	return nil
}

// Saves returns the number of successful conditional writes.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Raw returns the stored JSON bytes and version.
func (m *Memory) Raw() ([]byte, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.body...), m.version
}
