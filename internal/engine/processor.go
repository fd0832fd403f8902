package engine

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/questlog/internal/catalog"
	"github.com/roach88/questlog/internal/store"
	"github.com/roach88/questlog/internal/tracker"
)

const tracerName = "github.com/roach88/questlog/internal/engine"

// Result is what a successful Process call reports back.
type Result struct {
	RequestID string
	Outcome   Outcome

	// Document is the state after the action. For an AlreadyApplied
	// outcome it is the loaded, unmodified document.
	Document *tracker.Document

	// Version is the store version of Document.
	Version string
}

// Processor runs the load, apply, save pipeline for one action at a time.
//
// The processor holds no document state between calls; every Process
// reads the current document from the store and writes back conditioned on
// the version it read. A version conflict is reported, never retried.
//
// Thread-safety: Process is safe for concurrent use as long as the Store
// is. Concurrent writers lose to whoever saves first.
type Processor struct {
	store   store.Store
	catalog *catalog.Catalog
	clock   Clock
	ids     RequestIDGenerator
	logger  *slog.Logger
	tracer  trace.Tracer
}

// Option configures a Processor.
type Option func(*Processor)

// WithClock sets the wall clock. Default: SystemClock in time.Local.
func WithClock(c Clock) Option {
	return func(p *Processor) {
		p.clock = c
	}
}

// WithRequestIDs sets the request id generator. Default: UUIDv7Generator.
func WithRequestIDs(g RequestIDGenerator) Option {
	return func(p *Processor) {
		p.ids = g
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = l
	}
}

// WithTracer sets the tracer. Default: the global provider's tracer, a
// no-op unless telemetry is configured.
func WithTracer(t trace.Tracer) Option {
	return func(p *Processor) {
		p.tracer = t
	}
}

// New creates a Processor over s, resolving ids against cat.
func New(s store.Store, cat *catalog.Catalog, opts ...Option) *Processor {
	p := &Processor{
		store:   s,
		catalog: cat,
		clock:   SystemClock{},
		ids:     UUIDv7Generator{},
		logger:  slog.Default(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process applies a to the stored document.
//
// The document is only written when the transition succeeds and changes
// something; an AlreadyApplied outcome returns the loaded state without a
// save. Errors are *Error values; the request id is attached to the log
// record either way.
func (p *Processor) Process(ctx context.Context, a Action) (*Result, error) {
	requestID, ok := RequestIDFromContext(ctx)
	if !ok {
		requestID = p.ids.Generate()
	}
	logger := p.logger.With("request_id", requestID, "action", a.Label())

	ctx, span := p.tracer.Start(ctx, "questlog.process", trace.WithAttributes(
		attribute.String("questlog.request_id", requestID),
		attribute.String("questlog.action", string(a.Kind)),
	))
	defer span.End()

	res, err := p.process(ctx, requestID, a)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(CodeOf(err)))
		logger.Warn("action failed", "code", CodeOf(err), "error", err)
		return nil, err
	}

	if res.Outcome.AlreadyApplied {
		logger.Info("action already applied", "xp", res.Document.XP)
	} else {
		logger.Info("action applied",
			"delta", res.Outcome.Delta,
			"xp", res.Document.XP,
			"level", res.Document.Level,
			"rank", res.Document.Rank,
			"version", res.Version,
		)
	}
	return res, nil
}

func (p *Processor) process(ctx context.Context, requestID string, a Action) (*Result, error) {
	if a.Kind == "" {
		return nil, invalidAction("Action required")
	}
	now := p.clock.Now()

	loaded, version, err := p.load(ctx)
	if err != nil {
		return nil, &Error{Code: ErrCodeUpstreamRead, Message: "failed to load tracker", Err: err}
	}

	doc := loaded.Clone()
	outcome, err := Apply(doc, a, p.catalog, now)
	if err != nil {
		return nil, err
	}
	if outcome.AlreadyApplied {
		return &Result{RequestID: requestID, Outcome: outcome, Document: loaded, Version: version}, nil
	}

	saved, err := p.save(ctx, store.Write{
		Document: doc,
		Version:  version,
		Message:  saveMessage(outcome, a),
	})
	if err != nil {
		msg := "failed to save tracker"
		if errors.Is(err, store.ErrVersionConflict) {
			msg = "tracker changed since it was read"
		}
		return nil, &Error{Code: ErrCodeUpstreamWrite, Message: msg, Err: err}
	}

	return &Result{RequestID: requestID, Outcome: outcome, Document: doc, Version: saved}, nil
}

func (p *Processor) load(ctx context.Context) (*tracker.Document, string, error) {
	ctx, span := p.tracer.Start(ctx, "store.load")
	defer span.End()

	doc, version, err := p.store.Load(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return nil, "", err
	}
	span.SetAttributes(attribute.String("questlog.version", version))
	return doc, version, nil
}

func (p *Processor) save(ctx context.Context, w store.Write) (string, error) {
	ctx, span := p.tracer.Start(ctx, "store.save", trace.WithAttributes(
		attribute.String("questlog.expected_version", w.Version),
	))
	defer span.End()

	version, err := p.store.Save(ctx, w)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		return "", err
	}
	span.SetAttributes(attribute.String("questlog.version", version))
	return version, nil
}

// saveMessage labels the revision, e.g. "Update tracker: Walk 10k steps".
func saveMessage(o Outcome, a Action) string {
	if o.Title != "" {
		return "Update tracker: " + o.Title
	}
	return "Update tracker: " + string(a.Kind)
}
