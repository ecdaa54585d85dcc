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
	"github.com/tendant/simple-oxtrust/pkg/oauthclient"
	"github.com/tendant/simple-oxtrust/pkg/persistence"
)

const (
	MaxPatternLength = 30
	DefaultLimit     = 100
)

// Handle serves the OAuth client administration API
type Handle struct {
	clientService *oauthclient.ClientService
}

func NewHandle(clientService *oauthclient.ClientService) *Handle {
	return &Handle{clientService: clientService}
}

// Routes mounts the client endpoints on a new router
func Routes(h *Handle) http.Handler {
	r := chi.NewRouter()

	r.Get("/", h.ListClients)
	r.Post("/", h.RegisterClient)
	r.Get("/{inum}", h.GetClient)
	r.Put("/{inum}", h.UpdateClient)
	r.Delete("/{inum}", h.DeleteClient)
	r.Post("/{inum}/secret", h.RegenerateClientSecret)

	return r
}

// ListClients handles GET /clients?pattern=&limit=
func (h *Handle) ListClients(w http.ResponseWriter, r *http.Request) {
	pattern := strings.TrimSpace(r.URL.Query().Get("pattern"))
	if utf8.RuneCountInString(pattern) > MaxPatternLength {
		renderError(w, r, oxerrors.InvalidInput("pattern", "must be at most 30 characters"))
		return
	}

	limit := DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			renderError(w, r, oxerrors.InvalidInput("limit", "must be a positive integer"))
			return
		}
		limit = parsed
	}

	clients := h.clientService.SearchClients(r.Context(), pattern, limit)

	response := ClientListResponse{
		Clients: make([]ClientResponse, 0, len(clients)),
		Pattern: pattern,
		Limit:   limit,
	}
	for _, c := range clients {
		response.Clients = append(response.Clients, toClientResponse(c, ""))
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response)
}

// RegisterClient handles POST /clients. A secret is generated when the
// request carries none; the plaintext is returned once.
func (h *Handle) RegisterClient(w http.ResponseWriter, r *http.Request) {
	var req ClientRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		slog.Error("Failed to parse client request", "err", err)
		renderError(w, r, oxerrors.InvalidInput("body", "malformed JSON"))
		return
	}

	client := oauthclient.NewOAuthClient()
	if err := fromClientRequest(&req, client); err != nil {
		renderError(w, r, err)
		return
	}
	if len(client.ResponseTypes) == 0 {
		client.ResponseTypes = []oauthclient.ResponseType{oauthclient.ResponseTypeCode}
	}
	if len(client.GrantTypes) == 0 {
		client.GrantTypes = []oauthclient.GrantType{oauthclient.GrantTypeAuthorizationCode}
	}
	if client.ClientSecret == "" {
		secret, err := h.clientService.GenerateClientSecret()
		if err != nil {
			slog.Error("Failed to generate client secret", "err", err)
			renderError(w, r, oxerrors.InternalWrap(err, "failed to generate client credentials"))
			return
		}
		client.ClientSecret = secret
	}

	if err := h.clientService.AddClient(r.Context(), client); err != nil {
		slog.Error("Failed to add client", "displayName", req.DisplayName, "err", err)
		renderError(w, r, serviceError(err))
		return
	}

	slog.Info("Client registered", "inum", client.Inum, "displayName", client.DisplayName)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toClientResponse(client, client.ClientSecret))
}

// GetClient handles GET /clients/{inum}
func (h *Handle) GetClient(w http.ResponseWriter, r *http.Request) {
	client, err := h.clientService.LookupClientByInum(r.Context(), chi.URLParam(r, "inum"))
	if err != nil {
		renderError(w, r, serviceError(err))
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, toClientResponse(client, ""))
}

// UpdateClient handles PUT /clients/{inum}. The request replaces the
// editable metadata; flags left out keep their stored value.
func (h *Handle) UpdateClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	inum := chi.URLParam(r, "inum")

	existing, err := h.clientService.LookupClientByInum(ctx, inum)
	if err != nil {
		renderError(w, r, serviceError(err))
		return
	}

	var req ClientRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		slog.Error("Failed to parse client request", "err", err)
		renderError(w, r, oxerrors.InvalidInput("body", "malformed JSON"))
		return
	}

	updated := *existing
	if err := fromClientRequest(&req, &updated); err != nil {
		renderError(w, r, err)
		return
	}

	if err := h.clientService.UpdateClient(ctx, &updated); err != nil {
		slog.Error("Failed to update client", "inum", inum, "err", err)
		renderError(w, r, serviceError(err))
		return
	}

	slog.Info("Client updated", "inum", inum)
	render.Status(r, http.StatusOK)
	render.JSON(w, r, toClientResponse(&updated, ""))
}

// DeleteClient handles DELETE /clients/{inum}
func (h *Handle) DeleteClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	inum := chi.URLParam(r, "inum")

	existing, err := h.clientService.LookupClientByInum(ctx, inum)
	if err != nil {
		renderError(w, r, serviceError(err))
		return
	}
	if err := h.clientService.RemoveClient(ctx, existing); err != nil {
		slog.Error("Failed to remove client", "inum", inum, "err", err)
		renderError(w, r, serviceError(err))
		return
	}

	slog.Info("Client removed", "inum", inum)
	w.WriteHeader(http.StatusNoContent)
}

// RegenerateClientSecret handles POST /clients/{inum}/secret
func (h *Handle) RegenerateClientSecret(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	inum := chi.URLParam(r, "inum")

	existing, err := h.clientService.LookupClientByInum(ctx, inum)
	if err != nil {
		renderError(w, r, serviceError(err))
		return
	}

	secret, err := h.clientService.GenerateClientSecret()
	if err != nil {
		slog.Error("Failed to generate client secret", "err", err)
		renderError(w, r, oxerrors.InternalWrap(err, "failed to generate client secret"))
		return
	}

	updated := *existing
	updated.ClientSecret = secret
	if err := h.clientService.UpdateClient(ctx, &updated); err != nil {
		slog.Error("Failed to store new client secret", "inum", inum, "err", err)
		renderError(w, r, serviceError(err))
		return
	}

	slog.Info("Client secret regenerated", "inum", inum)
	render.Status(r, http.StatusOK)
	render.JSON(w, r, ClientSecretResponse{
		Inum:         inum,
		ClientSecret: secret,
		ExpiresAt:    updated.ClientSecretExpiresAt(),
	})
}

type flagBinding struct {
	state *persistence.TriState
	value **bool
}

func flagBindings(c *oauthclient.OAuthClient, f *ClientFlags) []flagBinding {
	return []flagBinding{
		{&c.TrustedClient, &f.Trusted},
		{&c.Disabled, &f.Disabled},
		{&c.RequireAuthTime, &f.RequireAuthTime},
		{&c.RPTAsJWT, &f.RPTAsJWT},
		{&c.AccessTokenAsJWT, &f.AccessTokenAsJWT},
		{&c.LogoutSessionRequired, &f.LogoutSessionRequired},
		{&c.PersistClientAuthorizations, &f.PersistClientAuthorizations},
		{&c.IncludeClaimsInIDToken, &f.IncludeClaimsInIDToken},
	}
}

func fromClientRequest(req *ClientRequest, c *oauthclient.OAuthClient) error {
	if err := copier.Copy(c, req); err != nil {
		return oxerrors.InternalWrap(err, "failed to read client request")
	}
	if req.Flags != nil {
		for _, b := range flagBindings(c, req.Flags) {
			if *b.value != nil {
				*b.state = persistence.TriStateOf(**b.value)
			}
		}
	}
	if req.Extra != nil {
		extra := *req.Extra
		c.SetAttributes(&extra)
	}
	return nil
}

func toClientResponse(c *oauthclient.OAuthClient, secret string) ClientResponse {
	var response ClientResponse
	copier.Copy(&response, c)
	response.ClientSecret = secret
	response.ExpiresAt = c.ClientSecretExpiresAt()
	response.Extra = c.Attributes()
	for _, b := range flagBindings(c, &response.Flags) {
		if b.state.IsSet() {
			v := b.state.IsTrue()
			*b.value = &v
		}
	}
	return response
}

// serviceError maps client service errors onto coded API errors
func serviceError(err error) error {
	var verrs oauthclient.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return oxerrors.ValidationFailed(verrs.Fields())
	case errors.Is(err, oauthclient.ErrClientNotFound):
		return oxerrors.Wrap(err, oxerrors.ErrCodeClientNotFound, "client not found")
	case errors.Is(err, oauthclient.ErrInumImmutable):
		return oxerrors.Wrap(err, oxerrors.ErrCodeImmutableAttribute, "inum cannot be changed")
	case errors.Is(err, oauthclient.ErrEncryptionKey), errors.Is(err, oauthclient.ErrEmptySecret):
		return oxerrors.InternalWrap(err, "failed to encode client secret")
	case errors.Is(err, persistence.ErrEntryExists):
		return oxerrors.Wrap(err, oxerrors.ErrCodeAlreadyExists, "client already exists")
	case errors.Is(err, persistence.ErrInumGenerationExhausted):
		return oxerrors.Wrap(err, oxerrors.ErrCodeInumExhausted, "could not allocate an inum")
	default:
		return oxerrors.Wrap(err, oxerrors.ErrCodeStoreUnavailable, "client store unavailable")
	}
}

func renderError(w http.ResponseWriter, r *http.Request, err error) {
	status, response := oxerrors.ToResponse(err)
	render.Status(r, status)
	render.JSON(w, r, response)
}
