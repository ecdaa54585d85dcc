package oauthclient

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-oxtrust/pkg/persistence"
)

func validClient() *OAuthClient {
	c := NewOAuthClient()
	c.DisplayName = "Portal"
	c.RedirectURIs = []string{"https://portal.example.com/callback"}
	c.ResponseTypes = []ResponseType{ResponseTypeCode}
	c.GrantTypes = []GrantType{GrantTypeAuthorizationCode, GrantTypeRefreshToken}
	c.TokenEndpointAuthMethod = AuthMethodClientSecretBasic
	return c
}

func TestNewOAuthClient_Defaults(t *testing.T) {
	c := NewOAuthClient()
	assert.Equal(t, persistence.False, c.TrustedClient)
	assert.Equal(t, persistence.True, c.PersistClientAuthorizations)
	assert.Equal(t, persistence.False, c.LogoutSessionRequired)
	assert.Equal(t, persistence.False, c.IncludeClaimsInIDToken)
	assert.Equal(t, persistence.Unset, c.Disabled)
	assert.False(t, c.IsDisabled())
}

func TestClientSecretExpiresAt(t *testing.T) {
	t.Run("unset reads as one century out", func(t *testing.T) {
		c := NewOAuthClient()
		before := time.Now()
		got := c.ClientSecretExpiresAt()
		after := time.Now()

		assert.Nil(t, c.SecretExpiresAt)
		assert.Contains(t, []time.Time{inOneCentury(before), inOneCentury(after)}, got)
		assert.Equal(t, 0, got.Hour())
		assert.Equal(t, 0, got.Minute())
		assert.Equal(t, time.Local, got.Location())
	})

	t.Run("explicit value is returned as set", func(t *testing.T) {
		c := NewOAuthClient()
		expiry := time.Date(2031, 3, 4, 5, 6, 7, 0, time.UTC)
		c.SetClientSecretExpiresAt(expiry)
		assert.True(t, expiry.Equal(c.ClientSecretExpiresAt()))
	})

	t.Run("century arithmetic", func(t *testing.T) {
		now := time.Date(2024, 2, 29, 15, 30, 0, 0, time.UTC)
		// Feb 29 2124 exists, so the day is kept
		assert.Equal(t, time.Date(2124, 2, 29, 0, 0, 0, 0, time.UTC), inOneCentury(now))
	})
}

func TestAttributes_Lazy(t *testing.T) {
	c := NewOAuthClient()
	first := c.Attributes()
	require.NotNil(t, first)
	assert.Same(t, first, c.Attributes())

	first.AdditionalAudience = []string{"api"}
	assert.Equal(t, []string{"api"}, c.Attributes().AdditionalAudience)

	replacement := &ClientAttributes{AllowSpontaneousScopes: true}
	c.SetAttributes(replacement)
	assert.Same(t, replacement, c.Attributes())

	c.SetAttributes(nil)
	assert.NotNil(t, c.Attributes())
	assert.NotSame(t, replacement, c.Attributes())
}

func TestOAuthClient_JSON(t *testing.T) {
	c := validClient()
	c.SetDN("inum=abc,ou=clients,o=gluu")
	c.Inum = "abc"
	c.ClientSecret = "plaintext"
	c.EncodedClientSecret = "encoded"
	c.IDTokenSignedResponseAlg = jose.RS256
	c.Attributes().BackchannelLogoutURIs = []string{"https://portal.example.com/logout"}

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "inum=abc,ou=clients,o=gluu", raw["dn"])
	assert.Equal(t, "RS256", raw["oxAuthIdTokenSignedResponseAlg"])
	assert.Equal(t, "false", raw["oxAuthTrustedClient"])
	assert.Equal(t, "true", raw["oxPersistClientAuthorizations"])
	assert.NotContains(t, raw, "oxDisabled")
	assert.NotContains(t, raw, "ClientSecret")
	assert.NotContains(t, string(data), "plaintext")
	assert.Contains(t, raw, "oxAttributes")

	var decoded OAuthClient
	require.NoError(t, json.Unmarshal(data, &decoded))
	c.ClientSecret = ""
	if diff := cmp.Diff(c, &decoded, cmp.AllowUnexported(OAuthClient{}), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("decoded client mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"https://portal.example.com/logout"}, decoded.Attributes().BackchannelLogoutURIs)
}

func publicJWKS(t *testing.T) string {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	set := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key:       &key.PublicKey,
		KeyID:     "k1",
		Algorithm: string(jose.RS256),
		Use:       "sig",
	}}}
	data, err := json.Marshal(set)
	require.NoError(t, err)
	return string(data)
}

func TestValidate(t *testing.T) {
	jwks := publicJWKS(t)

	tests := []struct {
		name    string
		mutate  func(c *OAuthClient)
		wantErr string
	}{
		{name: "valid", mutate: func(c *OAuthClient) {}},
		{name: "localhost http", mutate: func(c *OAuthClient) {
			c.RedirectURIs = []string{"http://localhost:8080/cb", "http://127.0.0.1/cb"}
		}},
		{name: "missing display name", mutate: func(c *OAuthClient) { c.DisplayName = " " }, wantErr: "displayName"},
		{name: "http redirect", mutate: func(c *OAuthClient) {
			c.RedirectURIs = []string{"http://portal.example.com/cb"}
		}, wantErr: "oxAuthRedirectURI[0]"},
		{name: "fragment", mutate: func(c *OAuthClient) {
			c.RedirectURIs = []string{"https://portal.example.com/cb#x"}
		}, wantErr: "oxAuthRedirectURI[0]"},
		{name: "ftp post logout", mutate: func(c *OAuthClient) {
			c.PostLogoutRedirectURIs = []string{"ftp://portal.example.com"}
		}, wantErr: "oxAuthPostLogoutRedirectURI[0]"},
		{name: "code without authorization_code", mutate: func(c *OAuthClient) {
			c.GrantTypes = []GrantType{GrantTypeClientCredentials}
		}, wantErr: "oxAuthGrantType"},
		{name: "id_token without implicit", mutate: func(c *OAuthClient) {
			c.ResponseTypes = []ResponseType{ResponseTypeCode, ResponseTypeIDToken}
		}, wantErr: "oxAuthGrantType"},
		{name: "implicit", mutate: func(c *OAuthClient) {
			c.ResponseTypes = []ResponseType{ResponseTypeToken, ResponseTypeIDToken}
			c.GrantTypes = []GrantType{GrantTypeImplicit}
		}},
		{name: "unknown grant", mutate: func(c *OAuthClient) {
			c.GrantTypes = append(c.GrantTypes, "magic")
		}, wantErr: "oxAuthGrantType[2]"},
		{name: "unknown signing alg", mutate: func(c *OAuthClient) {
			c.IDTokenSignedResponseAlg = "RS1"
		}, wantErr: "oxAuthIdTokenSignedResponseAlg"},
		{name: "enc without alg", mutate: func(c *OAuthClient) {
			c.IDTokenEncryptedResponseEnc = jose.A128CBC_HS256
		}, wantErr: "oxAuthIdTokenEncryptedResponseEnc"},
		{name: "encryption pair", mutate: func(c *OAuthClient) {
			c.UserInfoEncryptedResponseAlg = jose.RSA_OAEP
			c.UserInfoEncryptedResponseEnc = jose.A256GCM
		}},
		{name: "private_key_jwt with jwks", mutate: func(c *OAuthClient) {
			c.TokenEndpointAuthMethod = AuthMethodPrivateKeyJWT
			c.TokenEndpointAuthSigningAlg = jose.RS256
			c.JWKS = jwks
		}},
		{name: "private_key_jwt without keys", mutate: func(c *OAuthClient) {
			c.TokenEndpointAuthMethod = AuthMethodPrivateKeyJWT
		}, wantErr: "oxAuthTokenEndpointAuthMethod"},
		{name: "signing alg with basic auth", mutate: func(c *OAuthClient) {
			c.TokenEndpointAuthSigningAlg = jose.RS256
		}, wantErr: "oxAuthTokenEndpointAuthSigningAlg"},
		{name: "malformed jwks", mutate: func(c *OAuthClient) { c.JWKS = "{not json" }, wantErr: "oxAuthJwks"},
		{name: "jwks and jwks uri", mutate: func(c *OAuthClient) {
			c.JWKS = jwks
			c.JWKSURI = "https://portal.example.com/jwks"
		}, wantErr: "oxAuthJwks"},
		{name: "negative lifetime", mutate: func(c *OAuthClient) {
			v := -1
			c.AccessTokenLifetime = &v
		}, wantErr: "oxAccessTokenLifetime"},
		{name: "bad application type", mutate: func(c *OAuthClient) { c.ApplicationType = "desktop" }, wantErr: "oxAuthAppType"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validClient()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs))
			assert.Contains(t, verrs.Fields(), tt.wantErr)
		})
	}
}
