// Package server exposes the action processor over HTTP.
//
// A single endpoint accepts POSTed actions. Every response carries
// permissive CORS headers so a static client hosted elsewhere can call it,
// and every request except the preflight must present the shared secret as
// a bearer token.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/roach88/questlog/internal/engine"
	"github.com/roach88/questlog/internal/tracker"
)

// maxBodyBytes bounds a request body. Actions are a few hundred bytes.
const maxBodyBytes = 64 << 10

// HeaderRequestID carries the request id on every response.
const HeaderRequestID = "X-Request-Id"

// Processor is the part of *engine.Processor the handler needs.
type Processor interface {
	Process(ctx context.Context, a engine.Action) (*engine.Result, error)
}

// Handler serves the action endpoint.
type Handler struct {
	processor Processor
	secret    string
	ids       engine.RequestIDGenerator
	logger    *slog.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithRequestIDs sets the generator for X-Request-Id. Default: UUIDv7.
func WithRequestIDs(g engine.RequestIDGenerator) HandlerOption {
	return func(h *Handler) {
		h.ids = g
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = l
	}
}

// NewHandler returns a handler that authenticates with secret. An empty
// secret rejects every request.
func NewHandler(p Processor, secret string, opts ...HandlerOption) *Handler {
	h := &Handler{
		processor: p,
		secret:    secret,
		ids:       engine.UUIDv7Generator{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes mounts the handler at /api/update and /.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/update", h)
	mux.Handle("/", h)
	return mux
}

type errorResponse struct {
	Error string `json:"error"`
}

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	XP      int    `json:"xp"`
	Level   int    `json:"level"`
	Rank    string `json:"rank"`
	WinRate *int   `json:"winRate,omitempty"`
}

type appliedResponse struct {
	Message string `json:"message"`
	XP      int    `json:"xp"`
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := h.ids.Generate()
	header := w.Header()
	header.Set("Access-Control-Allow-Origin", "*")
	header.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	header.Set(HeaderRequestID, requestID)

	logger := h.logger.With("request_id", requestID, "method", r.Method, "path", r.URL.Path)

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
	default:
		writeJSON(logger, w, http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed"})
		return
	}

	if !h.authorized(r) {
		logger.Warn("unauthorized request")
		h.writeError(logger, w, &engine.Error{Code: engine.ErrCodeUnauthorized, Message: "Unauthorized"})
		return
	}

	var action engine.Action
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&action); err != nil {
		logger.Debug("malformed body", "error", err)
		writeJSON(logger, w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON body"})
		return
	}
	if action.Kind == "" {
		writeJSON(logger, w, http.StatusBadRequest, errorResponse{Error: "Action required"})
		return
	}

	ctx := engine.ContextWithRequestID(r.Context(), requestID)
	res, err := h.processor.Process(ctx, action)
	if err != nil {
		h.writeError(logger, w, err)
		return
	}

	if res.Outcome.AlreadyApplied {
		writeJSON(logger, w, http.StatusOK, appliedResponse{Message: res.Outcome.Message, XP: res.Document.XP})
		return
	}

	body := successResponse{
		Success: true,
		Message: res.Outcome.Message,
		XP:      res.Document.XP,
		Level:   res.Document.Level,
		Rank:    res.Document.Rank,
	}
	if rate, ok := tracker.WinRate(res.Document); ok {
		body.WinRate = &rate
	}
	writeJSON(logger, w, http.StatusOK, body)
}

// authorized compares the bearer token in constant time.
func (h *Handler) authorized(r *http.Request) bool {
	if h.secret == "" {
		return false
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) == 1
}

// writeError maps an engine error onto a status code. Messages never
// include credentials: store errors only carry API status and message.
func (h *Handler) writeError(logger *slog.Logger, w http.ResponseWriter, err error) {
	var e *engine.Error
	if !errors.As(err, &e) {
		logger.Error("unexpected processor error", "error", err)
		writeJSON(logger, w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
		return
	}

	status := statusFor(e.Code)
	msg := e.Message
	if status == http.StatusBadGateway && e.Err != nil {
		msg = e.Message + ": " + e.Err.Error()
	}
	if status == http.StatusInternalServerError {
		msg = "Internal server error"
	}
	writeJSON(logger, w, status, errorResponse{Error: msg})
}

func statusFor(code engine.ErrorCode) int {
	switch code {
	case engine.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case engine.ErrCodeInvalidAction:
		return http.StatusBadRequest
	case engine.ErrCodeUpstreamRead, engine.ErrCodeUpstreamWrite:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(logger *slog.Logger, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Debug("failed to write response", "status", status, "error", err)
	}
}
