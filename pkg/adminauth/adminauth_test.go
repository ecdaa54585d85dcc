package adminauth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-oxtrust/pkg/config"
)

var testConfig = config.JWTConfig{
	Secret:   "test-jwt-secret-key",
	Issuer:   "simple-oxtrust",
	Audience: "simple-oxtrust",
}

func newProtectedRouter(roles ...string) http.Handler {
	ja := NewJWTAuth(testConfig)
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(Verifier(ja))
		r.Use(jwtauth.Authenticator(ja))
		r.Use(AdminUserMiddleware)
		r.Use(RequireRole(roles...))
		r.Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(FromContext(r.Context()).Subject))
		})
	})
	return r
}

func TestIssueAndParseToken(t *testing.T) {
	token, expiresAt, err := IssueToken(testConfig, "admin-1", "Admin", []string{"admin"}, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := ParseToken(testConfig, token)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.Subject)
	assert.Equal(t, []string{"admin"}, claims.Roles)

	other := testConfig
	other.Secret = "another-secret"
	_, err = ParseToken(other, token)
	assert.Error(t, err)

	other = testConfig
	other.Audience = "someone-else"
	_, err = ParseToken(other, token)
	assert.Error(t, err)
}

func TestProtectedRoutes(t *testing.T) {
	router := newProtectedRouter("admin", "superadmin")

	do := func(setup func(r *http.Request)) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		setup(req)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}
	bearer := func(token string) func(r *http.Request) {
		return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
	}

	adminToken, _, err := IssueToken(testConfig, "admin-1", "", []string{"SuperAdmin"}, time.Hour)
	require.NoError(t, err)
	rec := do(bearer(adminToken))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin-1", rec.Body.String())

	rec = do(func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: adminToken})
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	userToken, _, err := IssueToken(testConfig, "user-1", "", []string{"user"}, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, do(bearer(userToken)).Code)

	expired, _, err := IssueToken(testConfig, "admin-1", "", []string{"admin"}, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(bearer(expired)).Code)

	noSubject, _, err := IssueToken(testConfig, "", "", []string{"admin"}, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(bearer(noSubject)).Code)

	assert.Equal(t, http.StatusUnauthorized, do(func(*http.Request) {}).Code)

	foreignIssuer := testConfig
	foreignIssuer.Issuer = "another-service"
	wrongIssuer, _, err := IssueToken(foreignIssuer, "admin-1", "", []string{"admin"}, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(bearer(wrongIssuer)).Code)

	foreignAudience := testConfig
	foreignAudience.Audience = "another-audience"
	wrongAudience, _, err := IssueToken(foreignAudience, "admin-1", "", []string{"admin"}, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(bearer(wrongAudience)).Code)
}

func TestRequireRole_NoUser(t *testing.T) {
	h := RequireRole("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"UNAUTHORIZED"`)
}
