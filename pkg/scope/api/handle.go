package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/jinzhu/copier"
	oxerrors "github.com/tendant/simple-oxtrust/pkg/errors"
	"github.com/tendant/simple-oxtrust/pkg/persistence"
	"github.com/tendant/simple-oxtrust/pkg/scope"
)

const (
	// MaxPatternLength caps the search pattern accepted by GET /scopes.
	MaxPatternLength = 30
	DefaultLimit     = 100
)

// Handle serves the scope administration API
type Handle struct {
	scopeService *scope.ScopeService
}

func NewHandle(scopeService *scope.ScopeService) *Handle {
	return &Handle{scopeService: scopeService}
}

// Routes mounts the scope endpoints on a new router
func Routes(h *Handle) http.Handler {
	r := chi.NewRouter()

	r.Get("/", h.ListScopes)
	r.Post("/", h.CreateScope)
	r.Get("/types", h.GetScopeTypes)
	r.Get("/{inum}", h.GetScope)
	r.Put("/{inum}", h.UpdateScope)
	r.Delete("/{inum}", h.DeleteScope)

	return r
}

// ListScopes handles GET /scopes?pattern=&limit=
func (h *Handle) ListScopes(w http.ResponseWriter, r *http.Request) {
	pattern := strings.TrimSpace(r.URL.Query().Get("pattern"))
	if utf8.RuneCountInString(pattern) > MaxPatternLength {
		renderError(w, r, oxerrors.InvalidInput("pattern", "must be at most 30 characters"))
		return
	}

	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		renderError(w, r, err)
		return
	}

	scopes := h.scopeService.SearchScopes(r.Context(), pattern, limit)

	response := ScopeListResponse{
		Scopes:  make([]ScopeResponse, 0, len(scopes)),
		Pattern: pattern,
		Limit:   limit,
	}
	for _, s := range scopes {
		response.Scopes = append(response.Scopes, toScopeResponse(s))
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response)
}

// CreateScope handles POST /scopes
func (h *Handle) CreateScope(w http.ResponseWriter, r *http.Request) {
	var req ScopeRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		slog.Error("Failed to parse scope request", "err", err)
		renderError(w, r, oxerrors.InvalidInput("body", "malformed JSON"))
		return
	}

	s := &scope.Scope{}
	if err := fromScopeRequest(&req, s); err != nil {
		renderError(w, r, err)
		return
	}

	if err := h.scopeService.AddScope(r.Context(), s); err != nil {
		slog.Error("Failed to add scope", "displayName", req.DisplayName, "err", err)
		renderError(w, r, serviceError(err))
		return
	}

	slog.Info("Scope created", "inum", s.Inum, "displayName", s.DisplayName)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toScopeResponse(s))
}

// GetScope handles GET /scopes/{inum}
func (h *Handle) GetScope(w http.ResponseWriter, r *http.Request) {
	inum := chi.URLParam(r, "inum")
	s, err := h.scopeService.LookupScopeByInum(r.Context(), inum)
	if err != nil {
		renderError(w, r, serviceError(err))
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, toScopeResponse(s))
}

// UpdateScope handles PUT /scopes/{inum}
func (h *Handle) UpdateScope(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	inum := chi.URLParam(r, "inum")

	existing, err := h.scopeService.LookupScopeByInum(ctx, inum)
	if err != nil {
		renderError(w, r, serviceError(err))
		return
	}

	var req ScopeRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		slog.Error("Failed to parse scope request", "err", err)
		renderError(w, r, oxerrors.InvalidInput("body", "malformed JSON"))
		return
	}

	updated := *existing
	if err := fromScopeRequest(&req, &updated); err != nil {
		renderError(w, r, err)
		return
	}

	if err := h.scopeService.UpdateScope(ctx, &updated); err != nil {
		slog.Error("Failed to update scope", "inum", inum, "err", err)
		renderError(w, r, serviceError(err))
		return
	}

	slog.Info("Scope updated", "inum", inum)
	render.Status(r, http.StatusOK)
	render.JSON(w, r, toScopeResponse(&updated))
}

// DeleteScope handles DELETE /scopes/{inum}
func (h *Handle) DeleteScope(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	inum := chi.URLParam(r, "inum")

	existing, err := h.scopeService.LookupScopeByInum(ctx, inum)
	if err != nil {
		renderError(w, r, serviceError(err))
		return
	}
	if err := h.scopeService.RemoveScope(ctx, existing); err != nil {
		slog.Error("Failed to remove scope", "inum", inum, "err", err)
		renderError(w, r, serviceError(err))
		return
	}

	slog.Info("Scope removed", "inum", inum)
	w.WriteHeader(http.StatusNoContent)
}

// GetScopeTypes handles GET /scopes/types
func (h *Handle) GetScopeTypes(w http.ResponseWriter, r *http.Request) {
	types := h.scopeService.ScopeTypes()
	response := ScopeTypesResponse{Types: make([]string, 0, len(types))}
	for _, t := range types {
		response.Types = append(response.Types, string(t))
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, response)
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return DefaultLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, oxerrors.InvalidInput("limit", "must be a positive integer")
	}
	return limit, nil
}

func fromScopeRequest(req *ScopeRequest, s *scope.Scope) error {
	if err := copier.Copy(s, req); err != nil {
		return oxerrors.InternalWrap(err, "failed to read scope request")
	}
	if req.Default != nil {
		s.DefaultScope = persistence.TriStateOf(*req.Default)
	}
	if s.Type != "" && !s.Type.IsValid() {
		return oxerrors.InvalidInput("scope_type", "unknown scope type "+req.Type)
	}
	return nil
}

func toScopeResponse(s *scope.Scope) ScopeResponse {
	var response ScopeResponse
	copier.Copy(&response, s)
	if s.DefaultScope.IsSet() {
		v := s.DefaultScope.IsTrue()
		response.Default = &v
	}
	return response
}

// serviceError maps scope service errors onto coded API errors
func serviceError(err error) error {
	switch {
	case errors.Is(err, scope.ErrScopeNotFound):
		return oxerrors.Wrap(err, oxerrors.ErrCodeScopeNotFound, "scope not found")
	case errors.Is(err, scope.ErrEmptyScopeName):
		return oxerrors.Wrap(err, oxerrors.ErrCodeMissingRequired, "display_name is required")
	case errors.Is(err, scope.ErrInvalidScopeType):
		return oxerrors.Wrap(err, oxerrors.ErrCodeInvalidInput, "invalid scope type")
	case errors.Is(err, persistence.ErrEntryExists):
		return oxerrors.Wrap(err, oxerrors.ErrCodeAlreadyExists, "scope already exists")
	case errors.Is(err, persistence.ErrInumGenerationExhausted):
		return oxerrors.Wrap(err, oxerrors.ErrCodeInumExhausted, "could not allocate an inum")
	default:
		return oxerrors.Wrap(err, oxerrors.ErrCodeStoreUnavailable, "scope store unavailable")
	}
}

func renderError(w http.ResponseWriter, r *http.Request, err error) {
	status, response := oxerrors.ToResponse(err)
	render.Status(r, status)
	render.JSON(w, r, response)
}
