// Package audit records the changes admins make through the API.
package audit

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/tendant/simple-oxtrust/pkg/adminauth"
)

// Event is one audited request
type Event struct {
	ID        uuid.UUID
	Subject   string
	Method    string
	Route     string
	URI       string
	Status    int
	Duration  time.Duration
	Timestamp time.Time
	Metadata  map[string]interface{}
}

// WithMetadata returns a copy of e carrying key.
func (e Event) WithMetadata(key string, value interface{}) Event {
	md := make(map[string]interface{}, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		md[k] = v
	}
	md[key] = value
	e.Metadata = md
	return e
}

// Sink receives audit events. Record must not block for long.
type Sink interface {
	Record(ctx context.Context, event Event)
}

// LogSink writes events to a slog logger.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Record(ctx context.Context, e Event) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "Admin audit",
		slog.String("id", e.ID.String()),
		slog.String("sub", e.Subject),
		slog.String("method", e.Method),
		slog.String("route", e.Route),
		slog.String("uri", e.URI),
		slog.Int("status", e.Status),
		slog.Duration("duration", e.Duration),
		slog.Any("metadata", e.Metadata),
	)
}

// Middleware audits requests that change state. Reads are skipped.
type Middleware struct {
	sink Sink
	now  func() time.Time
}

func NewMiddleware(sink Sink) *Middleware {
	if sink == nil {
		sink = LogSink{}
	}
	return &Middleware{sink: sink, now: time.Now}
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isMutation(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		start := m.now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		event := Event{
			ID:        uuid.New(),
			Method:    r.Method,
			URI:       r.RequestURI,
			Status:    ww.Status(),
			Timestamp: start,
			Duration:  m.now().Sub(start),
		}
		if event.Status == 0 {
			event.Status = http.StatusOK
		}
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			event.Route = rctx.RoutePattern()
		}
		if user := adminauth.FromContext(r.Context()); user != nil {
			event.Subject = user.Subject
		} else {
			event = event.WithMetadata("message", "no admin user")
		}
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			event = event.WithMetadata("requestId", reqID)
		}

		m.sink.Record(r.Context(), event)
	})
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}
