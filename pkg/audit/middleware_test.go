package audit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-oxtrust/pkg/adminauth"
)

type memorySink struct {
	mu     sync.Mutex
	events []Event
}

func (s *memorySink) Record(_ context.Context, e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func TestMiddleware(t *testing.T) {
	sink := &memorySink{}
	m := NewMiddleware(sink)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := &adminauth.AdminUser{Subject: "alice", Roles: []string{"admin"}}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), adminauth.AdminUserKey, user)))
		})
	})
	r.Use(m.Handler)
	r.Get("/api/scopes/{inum}", func(w http.ResponseWriter, r *http.Request) {})
	r.Delete("/api/scopes/{inum}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Post("/api/clients", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{}"))
	})

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/scopes/abc", nil),
		httptest.NewRequest(http.MethodDelete, "/api/scopes/abc", nil),
		httptest.NewRequest(http.MethodPost, "/api/clients", nil),
	} {
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	require.Len(t, sink.events, 2)

	del := sink.events[0]
	assert.Equal(t, "alice", del.Subject)
	assert.Equal(t, http.MethodDelete, del.Method)
	assert.Equal(t, "/api/scopes/{inum}", del.Route)
	assert.Equal(t, "/api/scopes/abc", del.URI)
	assert.Equal(t, http.StatusNoContent, del.Status)
	assert.NotEqual(t, del.ID, sink.events[1].ID)

	assert.Equal(t, http.StatusOK, sink.events[1].Status)
}

func TestMiddleware_Anonymous(t *testing.T) {
	sink := &memorySink{}
	h := NewMiddleware(sink).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/x", nil))

	require.Len(t, sink.events, 1)
	assert.Empty(t, sink.events[0].Subject)
	assert.Equal(t, "no admin user", sink.events[0].Metadata["message"])
}

func TestEvent_WithMetadata(t *testing.T) {
	base := Event{}.WithMetadata("a", 1)
	derived := base.WithMetadata("b", 2)
	assert.Len(t, base.Metadata, 1)
	assert.Len(t, derived.Metadata, 2)
}
