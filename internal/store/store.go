package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/questlog/internal/canon"
	"github.com/roach88/questlog/internal/tracker"
)

var (
	// ErrNotFound is returned when no document has been stored yet.
	ErrNotFound = errors.New("document not found")

	// ErrVersionConflict matches any *ConflictError via errors.Is.
	ErrVersionConflict = errors.New("version conflict")
)

// ConflictError reports a Save whose version token no longer matches the
// stored document. Current is empty when the backend does not disclose it.
type ConflictError struct {
	Expected string
	Current  string
}

func (e *ConflictError) Error() string {
	if e.Current != "" {
		return fmt.Sprintf("version conflict: expected %s, found %s", short(e.Expected), short(e.Current))
	}
	return fmt.Sprintf("version conflict: expected %s", short(e.Expected))
}

// Is lets errors.Is(err, ErrVersionConflict) match.
func (e *ConflictError) Is(target error) bool {
	return target == ErrVersionConflict
}

func short(version string) string {
	if len(version) > 12 {
		return version[:12]
	}
	return version
}

// Write is a conditional document write.
type Write struct {
	Document *tracker.Document
	// Version is the token returned by the Load this write is based on.
	Version string
	// Message describes the change. Backends that keep a revision log
	// (SQLite, GitHub commits) record it.
	Message string
}

// Store is the document store boundary consumed by the engine.
type Store interface {
	// Load returns the current document and its version token.
	Load(ctx context.Context) (*tracker.Document, string, error)

	// Save replaces the document if Version still matches and returns
	// the new version token.
	Save(ctx context.Context, w Write) (string, error)
}

// Initializer is implemented by stores that can create the document when
// it does not exist yet.
type Initializer interface {
	// Init stores doc unless a document already exists. created reports
	// whether doc was written.
	Init(ctx context.Context, doc *tracker.Document, message string) (created bool, err error)
}

// Fingerprint is the content-derived version token used by Memory and
// SQLite.
func Fingerprint(body []byte) (string, error) {
	return canon.FingerprintJSON(canon.DomainDocument, body)
}

// encode serializes a document and computes its fingerprint in one step.
func encode(doc *tracker.Document) (body []byte, version string, err error) {
	if doc == nil {
		return nil, "", errors.New("nil document")
	}
	body, err = tracker.Marshal(doc)
	if err != nil {
		return nil, "", err
	}
	version, err = Fingerprint(body)
	if err != nil {
		return nil, "", err
	}
	return body, version, nil
}
