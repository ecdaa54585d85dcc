package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-oxtrust/pkg/registration"
)

type memoryConfig struct {
	cfg *registration.Configuration
}

func (m *memoryConfig) RegistrationConfiguration(context.Context) (*registration.Configuration, error) {
	return m.cfg, nil
}

func (m *memoryConfig) UpdateRegistrationConfiguration(_ context.Context, cfg *registration.Configuration) error {
	m.cfg = cfg
	return nil
}

func send(t *testing.T, h http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, &buf))
	return rec
}

func TestRegistrationRoutes(t *testing.T) {
	engine, err := registration.NewCELEngine()
	require.NoError(t, err)
	store := &memoryConfig{}
	router := Routes(NewHandle(store, registration.NewInterceptionService(store, nil, engine)))

	rec := send(t, router, http.MethodGet, "/configuration", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	cfg := registration.Configuration{
		InterceptorsConfigured: true,
		Scripts: []registration.InterceptorScript{{
			Name:    "corporate-mail",
			Type:    registration.ScriptTypePre,
			Enabled: true,
			Script:  `person.mail.endsWith("@example.com")`,
		}},
	}
	rec = send(t, router, http.MethodPut, "/configuration", cfg)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, store.cfg)

	evaluate := func(phase, mail string) (int, EvaluateResponse) {
		rec := send(t, router, http.MethodPost, "/"+phase+"/evaluate", EvaluateRequest{
			Person: registration.Person{UID: "jdoe", Mail: mail},
		})
		var resp EvaluateResponse
		if rec.Code == http.StatusOK {
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		}
		return rec.Code, resp
	}

	code, resp := evaluate("pre", "jdoe@example.com")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Allowed)

	_, resp = evaluate("pre", "jdoe@elsewhere.org")
	assert.False(t, resp.Allowed)

	// no post scripts configured
	_, resp = evaluate("post", "jdoe@elsewhere.org")
	assert.True(t, resp.Allowed)

	code, _ = evaluate("during", "jdoe@example.com")
	assert.Equal(t, http.StatusBadRequest, code)

	bad := cfg
	bad.Scripts = []registration.InterceptorScript{{Name: "x", Type: "later"}}
	rec = send(t, router, http.MethodPut, "/configuration", bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	typo := cfg
	typo.Scripts = []registration.InterceptorScript{{
		Name:    "corporate-mail",
		Type:    registration.ScriptTypePre,
		Enabled: true,
		Script:  `person.mail.endsWith("@example.com"`,
	}}
	rec = send(t, router, http.MethodPut, "/configuration", typo)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "corporate-mail")

	missing := cfg
	missing.Scripts = []registration.InterceptorScript{{Name: "unregistered", Type: registration.ScriptTypeInit, Enabled: true}}
	rec = send(t, router, http.MethodPut, "/configuration", missing)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// rejected updates leave the stored configuration untouched
	require.Len(t, store.cfg.Scripts, 1)
	assert.Equal(t, `person.mail.endsWith("@example.com")`, store.cfg.Scripts[0].Script)
}
