package api

import (
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/tendant/simple-oxtrust/pkg/oauthclient"
)

// ClientFlags carries the tri-state switches of a client. A nil field
// leaves the stored value unchanged.
type ClientFlags struct {
	Trusted                     *bool `json:"trusted_client,omitempty"`
	Disabled                    *bool `json:"disabled,omitempty"`
	RequireAuthTime             *bool `json:"require_auth_time,omitempty"`
	RPTAsJWT                    *bool `json:"rpt_as_jwt,omitempty"`
	AccessTokenAsJWT            *bool `json:"access_token_as_jwt,omitempty"`
	LogoutSessionRequired       *bool `json:"logout_session_required,omitempty"`
	PersistClientAuthorizations *bool `json:"persist_client_authorizations,omitempty"`
	IncludeClaimsInIDToken      *bool `json:"include_claims_in_id_token,omitempty"`
}

// ClientRequest is the body of POST /clients and PUT /clients/{inum}.
// Field names follow RFC 7591 where one exists.
type ClientRequest struct {
	DisplayName                 string                           `json:"client_name"`
	Description                 string                           `json:"description,omitempty"`
	ClientSecret                string                           `json:"client_secret,omitempty"`
	ApplicationType             oauthclient.ApplicationType      `json:"application_type,omitempty"`
	SubjectType                 oauthclient.SubjectType          `json:"subject_type,omitempty"`
	Contacts                    []string                         `json:"contacts,omitempty"`
	RedirectURIs                []string                         `json:"redirect_uris,omitempty"`
	PostLogoutRedirectURIs      []string                         `json:"post_logout_redirect_uris,omitempty"`
	Scopes                      []string                         `json:"scopes,omitempty"`
	Claims                      []string                         `json:"claims,omitempty"`
	ResponseTypes               []oauthclient.ResponseType       `json:"response_types,omitempty"`
	GrantTypes                  []oauthclient.GrantType          `json:"grant_types,omitempty"`
	LogoURI                     string                           `json:"logo_uri,omitempty"`
	ClientURI                   string                           `json:"client_uri,omitempty"`
	PolicyURI                   string                           `json:"policy_uri,omitempty"`
	TosURI                      string                           `json:"tos_uri,omitempty"`
	JWKSURI                     string                           `json:"jwks_uri,omitempty"`
	JWKS                        string                           `json:"jwks,omitempty"`
	SectorIdentifierURI         string                           `json:"sector_identifier_uri,omitempty"`
	InitiateLoginURI            string                           `json:"initiate_login_uri,omitempty"`
	IDTokenSignedResponseAlg    jose.SignatureAlgorithm          `json:"id_token_signed_response_alg,omitempty"`
	TokenEndpointAuthMethod     oauthclient.AuthenticationMethod `json:"token_endpoint_auth_method,omitempty"`
	TokenEndpointAuthSigningAlg jose.SignatureAlgorithm          `json:"token_endpoint_auth_signing_alg,omitempty"`
	AccessTokenLifetime         *int                             `json:"access_token_lifetime,omitempty"`
	RefreshTokenLifetime        *int                             `json:"refresh_token_lifetime,omitempty"`
	DefaultMaxAge               *int                             `json:"default_max_age,omitempty"`
	Flags                       *ClientFlags                     `json:"flags,omitempty"`
	Extra                       *oauthclient.ClientAttributes    `json:"attributes,omitempty"`
}

// ClientResponse is a client as returned by the API. ClientSecret is only
// filled when the request created or rotated the secret.
type ClientResponse struct {
	Inum                        string                           `json:"inum"`
	DN                          string                           `json:"dn"`
	DisplayName                 string                           `json:"client_name"`
	Description                 string                           `json:"description,omitempty"`
	ClientSecret                string                           `json:"client_secret,omitempty"`
	ExpiresAt                   time.Time                        `json:"client_secret_expires_at"`
	ApplicationType             oauthclient.ApplicationType      `json:"application_type,omitempty"`
	SubjectType                 oauthclient.SubjectType          `json:"subject_type,omitempty"`
	Contacts                    []string                         `json:"contacts,omitempty"`
	RedirectURIs                []string                         `json:"redirect_uris,omitempty"`
	PostLogoutRedirectURIs      []string                         `json:"post_logout_redirect_uris,omitempty"`
	Scopes                      []string                         `json:"scopes,omitempty"`
	Claims                      []string                         `json:"claims,omitempty"`
	ResponseTypes               []oauthclient.ResponseType       `json:"response_types,omitempty"`
	GrantTypes                  []oauthclient.GrantType          `json:"grant_types,omitempty"`
	LogoURI                     string                           `json:"logo_uri,omitempty"`
	ClientURI                   string                           `json:"client_uri,omitempty"`
	PolicyURI                   string                           `json:"policy_uri,omitempty"`
	TosURI                      string                           `json:"tos_uri,omitempty"`
	JWKSURI                     string                           `json:"jwks_uri,omitempty"`
	SectorIdentifierURI         string                           `json:"sector_identifier_uri,omitempty"`
	InitiateLoginURI            string                           `json:"initiate_login_uri,omitempty"`
	IDTokenSignedResponseAlg    jose.SignatureAlgorithm          `json:"id_token_signed_response_alg,omitempty"`
	TokenEndpointAuthMethod     oauthclient.AuthenticationMethod `json:"token_endpoint_auth_method,omitempty"`
	TokenEndpointAuthSigningAlg jose.SignatureAlgorithm          `json:"token_endpoint_auth_signing_alg,omitempty"`
	AccessTokenLifetime         *int                             `json:"access_token_lifetime,omitempty"`
	RefreshTokenLifetime        *int                             `json:"refresh_token_lifetime,omitempty"`
	DefaultMaxAge               *int                             `json:"default_max_age,omitempty"`
	Flags                       ClientFlags                      `json:"flags"`
	Extra                       *oauthclient.ClientAttributes    `json:"attributes,omitempty"`
}

type ClientListResponse struct {
	Clients []ClientResponse `json:"clients"`
	Pattern string           `json:"pattern,omitempty"`
	Limit   int              `json:"limit"`
}

// ClientSecretResponse is returned by POST /clients/{inum}/secret
type ClientSecretResponse struct {
	Inum         string    `json:"inum"`
	ClientSecret string    `json:"client_secret"`
	ExpiresAt    time.Time `json:"client_secret_expires_at"`
}
