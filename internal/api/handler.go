package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/eugenenazirov/confstore/internal/environment"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// Reader is the read side of the configuration store served over HTTP.
type Reader interface {
	Lookup(path string) (any, bool)
	Names() []string
	Environment() environment.Name
}

// LookupObserver is notified of every configuration lookup.
type LookupObserver interface {
	ObserveLookup(found bool)
}

// Handler wires a configuration reader into HTTP handlers.
type Handler struct {
	reader   Reader
	observer LookupObserver

	clock func() time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithLookupObserver reports lookup hits and misses to observer.
func WithLookupObserver(observer LookupObserver) HandlerOption {
	return func(h *Handler) {
		h.observer = observer
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(reader Reader, opts ...HandlerOption) *Handler {
	h := &Handler{
		reader: reader,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleEnvironment(w http.ResponseWriter, r *http.Request) {
	_ = r
	active := h.reader.Environment()
	resp := environmentResponse{
		Environment:           string(active),
		Supported:             environment.IsSupported(active),
		SupportedEnvironments: environment.Supported(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleListNames(w http.ResponseWriter, r *http.Request) {
	_ = r
	writeJSON(w, http.StatusOK, namesResponse{Names: h.reader.Names()})
}

func (h *Handler) handleGetValue(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "Invalid request", "configuration path is required")
		return
	}

	value, found := h.reader.Lookup(path)
	if h.observer != nil {
		h.observer.ObserveLookup(found)
	}

	if found {
		writeJSON(w, http.StatusOK, valueResponse{Path: path, Value: value})
		return
	}

	query := r.URL.Query()
	if query.Has("default") {
		writeJSON(w, http.StatusOK, valueResponse{Path: path, Value: query.Get("default"), Defaulted: true})
		return
	}

	writeError(w, http.StatusNotFound, "Not found", "no configuration value at "+path,
		"Pass ?default= to receive a fallback value instead")
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type valueResponse struct {
	Path      string `json:"path"`
	Value     any    `json:"value"`
	Defaulted bool   `json:"defaulted,omitempty"`
}

type namesResponse struct {
	Names []string `json:"names"`
}

type environmentResponse struct {
	Environment           string             `json:"environment"`
	Supported             bool               `json:"supported"`
	SupportedEnvironments []environment.Name `json:"supportedEnvironments"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}
