package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	oxerrors "github.com/tendant/simple-oxtrust/pkg/errors"
	"github.com/tendant/simple-oxtrust/pkg/oauthclient"
	"github.com/tendant/simple-oxtrust/pkg/persistence"
)

type testOrg struct{}

func (testOrg) DNForOrganization() string { return "o=@!1111,o=gluu" }

func newTestRouter(t *testing.T) (http.Handler, *oauthclient.ClientService) {
	t.Helper()
	codec, err := oauthclient.NewEncryptionService("handler-test-encryption-key")
	require.NoError(t, err)
	svc := oauthclient.NewClientService(persistence.NewInMemoryEntryStore(), testOrg{}, codec)
	return Routes(NewHandle(svc)), svc
}

func doRequest(t *testing.T, h http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func portalRequest() ClientRequest {
	return ClientRequest{
		DisplayName:  "Portal",
		Description:  "customer portal",
		RedirectURIs: []string{"https://portal.example.com/callback"},
		Scopes:       []string{"inum=10B2,ou=scopes,o=@!1111,o=gluu"},
	}
}

func TestRegisterAndGetClient(t *testing.T) {
	router, svc := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/", portalRequest())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decode[ClientResponse](t, rec)
	require.NotEmpty(t, created.Inum)
	assert.Equal(t, "inum="+created.Inum+",ou=clients,o=@!1111,o=gluu", created.DN)
	assert.NotEmpty(t, created.ClientSecret)
	assert.Equal(t, []oauthclient.ResponseType{oauthclient.ResponseTypeCode}, created.ResponseTypes)
	assert.Equal(t, []oauthclient.GrantType{oauthclient.GrantTypeAuthorizationCode}, created.GrantTypes)
	require.NotNil(t, created.Flags.Trusted)
	assert.False(t, *created.Flags.Trusted)
	require.NotNil(t, created.Flags.PersistClientAuthorizations)
	assert.True(t, *created.Flags.PersistClientAuthorizations)
	assert.Nil(t, created.Flags.Disabled)

	_, err := svc.ValidateClientCredentials(context.Background(), created.Inum, created.ClientSecret)
	assert.NoError(t, err)

	rec = doRequest(t, router, http.MethodGet, "/"+created.Inum, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[ClientResponse](t, rec)
	assert.Equal(t, "Portal", got.DisplayName)
	assert.Empty(t, got.ClientSecret)
	assert.Equal(t, created.ExpiresAt.Unix(), got.ExpiresAt.Unix())
}

func TestRegisterClient_Invalid(t *testing.T) {
	router, _ := newTestRouter(t)

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("validation details", func(t *testing.T) {
		body := portalRequest()
		body.DisplayName = ""
		body.RedirectURIs = []string{"http://portal.example.com/cb"}

		rec := doRequest(t, router, http.MethodPost, "/", body)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		resp := decode[oxerrors.Response](t, rec)
		assert.Equal(t, oxerrors.ErrCodeValidationFailed, resp.Code)
		assert.Contains(t, resp.Details, "displayName")
		assert.Contains(t, resp.Details, "oxAuthRedirectURI[0]")
	})
}

func TestListClients(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, name := range []string{"Portal", "Mobile portal", "Batch"} {
		body := portalRequest()
		body.DisplayName = name
		body.Description = ""
		require.Equal(t, http.StatusCreated, doRequest(t, router, http.MethodPost, "/", body).Code)
	}

	rec := doRequest(t, router, http.MethodGet, "/?pattern=portal", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[ClientListResponse](t, rec)
	assert.Len(t, list.Clients, 2)
	assert.Equal(t, DefaultLimit, list.Limit)
	for _, c := range list.Clients {
		assert.Empty(t, c.ClientSecret)
	}

	rec = doRequest(t, router, http.MethodGet, "/?limit=1", nil)
	assert.Len(t, decode[ClientListResponse](t, rec).Clients, 1)

	rec = doRequest(t, router, http.MethodGet, "/?pattern="+strings.Repeat("x", MaxPatternLength+1), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	accented := url.QueryEscape(strings.Repeat("é", MaxPatternLength))
	rec = doRequest(t, router, http.MethodGet, "/?pattern="+accented, nil)
	assert.Equal(t, http.StatusOK, rec.Code, "length counts characters, not bytes")

	rec = doRequest(t, router, http.MethodGet, "/?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateClient(t *testing.T) {
	router, svc := newTestRouter(t)
	ctx := context.Background()

	created := decode[ClientResponse](t, doRequest(t, router, http.MethodPost, "/", portalRequest()))

	body := portalRequest()
	body.Description = "renamed"
	body.GrantTypes = []oauthclient.GrantType{oauthclient.GrantTypeAuthorizationCode, oauthclient.GrantTypeRefreshToken}
	yes := true
	body.Flags = &ClientFlags{Disabled: &yes}

	rec := doRequest(t, router, http.MethodPut, "/"+created.Inum, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[ClientResponse](t, rec)
	assert.Equal(t, "renamed", updated.Description)
	require.NotNil(t, updated.Flags.Disabled)
	assert.True(t, *updated.Flags.Disabled)
	require.NotNil(t, updated.Flags.PersistClientAuthorizations)
	assert.True(t, *updated.Flags.PersistClientAuthorizations)

	stored := svc.GetClientByInum(ctx, created.Inum)
	require.NotNil(t, stored)
	assert.True(t, stored.IsDisabled())
	assert.True(t, stored.HasGrantType(oauthclient.GrantTypeRefreshToken))

	plain, err := svc.DecodeClientSecret(stored)
	require.NoError(t, err)
	assert.Equal(t, created.ClientSecret, plain)

	rec = doRequest(t, router, http.MethodPut, "/missing", body)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegenerateAndDeleteClient(t *testing.T) {
	router, svc := newTestRouter(t)
	ctx := context.Background()

	created := decode[ClientResponse](t, doRequest(t, router, http.MethodPost, "/", portalRequest()))

	rec := doRequest(t, router, http.MethodPost, "/"+created.Inum+"/secret", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rotated := decode[ClientSecretResponse](t, rec)
	assert.NotEqual(t, created.ClientSecret, rotated.ClientSecret)

	_, err := svc.ValidateClientCredentials(ctx, created.Inum, created.ClientSecret)
	assert.ErrorIs(t, err, oauthclient.ErrInvalidCredentials)
	_, err = svc.ValidateClientCredentials(ctx, created.Inum, rotated.ClientSecret)
	assert.NoError(t, err)

	rec = doRequest(t, router, http.MethodDelete, "/"+created.Inum, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/"+created.Inum, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decode[oxerrors.Response](t, rec)
	assert.Equal(t, oxerrors.ErrCodeClientNotFound, resp.Code)

	rec = doRequest(t, router, http.MethodPost, "/"+created.Inum+"/secret", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
