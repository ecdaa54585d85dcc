package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	oxerrors "github.com/tendant/simple-oxtrust/pkg/errors"
	"github.com/tendant/simple-oxtrust/pkg/registration"
)

// ConfigurationStore reads and replaces the registration configuration
type ConfigurationStore interface {
	RegistrationConfiguration(ctx context.Context) (*registration.Configuration, error)
	UpdateRegistrationConfiguration(ctx context.Context, cfg *registration.Configuration) error
}

type EvaluateRequest struct {
	Person registration.Person `json:"person"`
	Params map[string][]string `json:"params,omitempty"`
}

type EvaluateResponse struct {
	Phase   registration.ScriptType `json:"phase"`
	Allowed bool                    `json:"allowed"`
}

type Handle struct {
	store        ConfigurationStore
	interception *registration.InterceptionService
}

func NewHandle(store ConfigurationStore, interception *registration.InterceptionService) *Handle {
	return &Handle{store: store, interception: interception}
}

// Routes mounts the registration endpoints on a new router
func Routes(h *Handle) http.Handler {
	r := chi.NewRouter()
	r.Get("/configuration", h.GetConfiguration)
	r.Put("/configuration", h.UpdateConfiguration)
	r.Post("/{phase}/evaluate", h.Evaluate)
	return r
}

// GetConfiguration handles GET /registration/configuration
func (h *Handle) GetConfiguration(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.store.RegistrationConfiguration(r.Context())
	if err != nil {
		slog.Error("Failed to read registration configuration", "err", err)
		renderError(w, r, oxerrors.Wrap(err, oxerrors.ErrCodeStoreUnavailable, "registration configuration unavailable"))
		return
	}
	if cfg == nil {
		cfg = &registration.Configuration{}
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, cfg)
}

// UpdateConfiguration handles PUT /registration/configuration
func (h *Handle) UpdateConfiguration(w http.ResponseWriter, r *http.Request) {
	var cfg registration.Configuration
	if err := render.DecodeJSON(r.Body, &cfg); err != nil {
		renderError(w, r, oxerrors.InvalidInput("body", "malformed JSON"))
		return
	}
	for _, s := range cfg.Scripts {
		switch s.Type {
		case registration.ScriptTypeInit, registration.ScriptTypePre, registration.ScriptTypePost:
		default:
			renderError(w, r, oxerrors.InvalidInput("type", "unknown script type "+string(s.Type)))
			return
		}
		if h.interception == nil {
			continue
		}
		if err := h.interception.ValidateScript(s); err != nil {
			renderError(w, r, oxerrors.InvalidInput("script", err.Error()))
			return
		}
	}

	if err := h.store.UpdateRegistrationConfiguration(r.Context(), &cfg); err != nil {
		slog.Error("Failed to update registration configuration", "err", err)
		renderError(w, r, oxerrors.Wrap(err, oxerrors.ErrCodeStoreUnavailable, "registration configuration unavailable"))
		return
	}

	slog.Info("Registration configuration updated", "scripts", len(cfg.Scripts))
	render.Status(r, http.StatusOK)
	render.JSON(w, r, cfg)
}

// Evaluate handles POST /registration/{phase}/evaluate. It runs the
// interceptors of one phase against a sample person without registering it.
func (h *Handle) Evaluate(w http.ResponseWriter, r *http.Request) {
	phase := registration.ScriptType(chi.URLParam(r, "phase"))

	var req EvaluateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		renderError(w, r, oxerrors.InvalidInput("body", "malformed JSON"))
		return
	}

	var allowed bool
	switch phase {
	case registration.ScriptTypeInit:
		allowed = h.interception.RunInitRegistration(r.Context(), &req.Person, req.Params)
	case registration.ScriptTypePre:
		allowed = h.interception.RunPreRegistration(r.Context(), &req.Person, req.Params)
	case registration.ScriptTypePost:
		allowed = h.interception.RunPostRegistration(r.Context(), &req.Person, req.Params)
	default:
		renderError(w, r, oxerrors.InvalidInput("phase", "must be init, pre or post"))
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, EvaluateResponse{Phase: phase, Allowed: allowed})
}

func renderError(w http.ResponseWriter, r *http.Request, err error) {
	status, response := oxerrors.ToResponse(err)
	render.Status(r, status)
	render.JSON(w, r, response)
}
