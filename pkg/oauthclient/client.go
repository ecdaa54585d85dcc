package oauthclient

import (
	"encoding/json"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/tendant/simple-oxtrust/pkg/persistence"
)

// ApplicationType is the OpenID Connect application_type
type ApplicationType string

const (
	ApplicationTypeWeb    ApplicationType = "web"
	ApplicationTypeNative ApplicationType = "native"
)

// SubjectType is the OpenID Connect subject_type
type SubjectType string

const (
	SubjectTypePublic   SubjectType = "public"
	SubjectTypePairwise SubjectType = "pairwise"
)

// ResponseType is an OAuth2 response_type value
type ResponseType string

const (
	ResponseTypeCode    ResponseType = "code"
	ResponseTypeToken   ResponseType = "token"
	ResponseTypeIDToken ResponseType = "id_token"
)

// GrantType is an OAuth2 grant_type value
type GrantType string

const (
	GrantTypeAuthorizationCode GrantType = "authorization_code"
	GrantTypeImplicit          GrantType = "implicit"
	GrantTypeRefreshToken      GrantType = "refresh_token"
	GrantTypeClientCredentials GrantType = "client_credentials"
	GrantTypePassword          GrantType = "password"
	GrantTypeUMATicket         GrantType = "urn:ietf:params:oauth:grant-type:uma-ticket"
	GrantTypeDeviceCode        GrantType = "urn:ietf:params:oauth:grant-type:device_code"
)

// AuthenticationMethod is a token_endpoint_auth_method value
type AuthenticationMethod string

const (
	AuthMethodClientSecretBasic AuthenticationMethod = "client_secret_basic"
	AuthMethodClientSecretPost  AuthenticationMethod = "client_secret_post"
	AuthMethodClientSecretJWT   AuthenticationMethod = "client_secret_jwt"
	AuthMethodPrivateKeyJWT     AuthenticationMethod = "private_key_jwt"
	AuthMethodTLSClientAuth     AuthenticationMethod = "tls_client_auth"
	AuthMethodSelfSignedTLS     AuthenticationMethod = "self_signed_tls_client_auth"
	AuthMethodNone              AuthenticationMethod = "none"
)

// ClientAttributes holds client settings stored as one JSON attribute
// rather than as individual entry attributes.
type ClientAttributes struct {
	TLSClientAuthSubjectDN                 string   `json:"tlsClientAuthSubjectDn,omitempty"`
	RunIntrospectionScriptBeforeJWT        bool     `json:"runIntrospectionScriptBeforeAccessTokenAsJwtCreationAndIncludeClaims,omitempty"`
	KeepClientAuthorizationAfterExpiration bool     `json:"keepClientAuthorizationAfterExpiration,omitempty"`
	AllowSpontaneousScopes                 bool     `json:"allowSpontaneousScopes,omitempty"`
	SpontaneousScopes                      []string `json:"spontaneousScopes,omitempty"`
	BackchannelLogoutURIs                  []string `json:"backchannelLogoutUri,omitempty"`
	BackchannelLogoutSessionRequired       bool     `json:"backchannelLogoutSessionRequired,omitempty"`
	AdditionalAudience                     []string `json:"additionalAudience,omitempty"`
	PostAuthnScripts                       []string `json:"postAuthnScripts,omitempty"`
	ConsentGatheringScripts                []string `json:"consentGatheringScripts,omitempty"`
	IntrospectionScripts                   []string `json:"introspectionScripts,omitempty"`
	RPTClaimsScripts                       []string `json:"rptClaimsScripts,omitempty"`
}

// OAuthClient is a registered OAuth2 / OpenID Connect relying party.
//
// Inum is assigned by ClientService.AddClient and never changes afterwards.
// ClientSecret holds the plaintext secret only in memory; the store keeps
// EncodedClientSecret.
type OAuthClient struct {
	persistence.BaseEntry
	Inum        string `json:"inum"`
	IName       string `json:"iname,omitempty"`
	DisplayName string `json:"displayName"`
	Description string `json:"description,omitempty"`

	ApplicationType        ApplicationType `json:"oxAuthAppType,omitempty"`
	Contacts               []string        `json:"oxAuthContact,omitempty"`
	RedirectURIs           []string        `json:"oxAuthRedirectURI,omitempty"`
	PostLogoutRedirectURIs []string        `json:"oxAuthPostLogoutRedirectURI,omitempty"`
	ClaimRedirectURIs      []string        `json:"oxClaimRedirectURI,omitempty"`
	LogoutURIs             []string        `json:"oxAuthLogoutURI,omitempty"`
	RequestURIs            []string        `json:"oxAuthRequestURI,omitempty"`
	AuthorizedOrigins      []string        `json:"oxAuthAuthorizedOrigins,omitempty"`
	Scopes                 []string        `json:"oxAuthScope,omitempty"`
	Claims                 []string        `json:"oxAuthClaim,omitempty"`
	AssociatedPersons      []string        `json:"associatedPerson,omitempty"`
	DefaultACRValues       []string        `json:"oxAuthDefaultAcrValues,omitempty"`

	EncodedClientSecret string     `json:"oxAuthClientSecret,omitempty"`
	ClientSecret        string     `json:"-"`
	SecretExpiresAt     *time.Time `json:"oxAuthClientSecretExpiresAt,omitempty"`

	ResponseTypes []ResponseType `json:"oxAuthResponseType,omitempty"`
	GrantTypes    []GrantType    `json:"oxAuthGrantType,omitempty"`

	LogoURI             string      `json:"oxAuthLogoURI,omitempty"`
	ClientURI           string      `json:"oxAuthClientURI,omitempty"`
	PolicyURI           string      `json:"oxAuthPolicyURI,omitempty"`
	TosURI              string      `json:"oxAuthTosURI,omitempty"`
	JWKSURI             string      `json:"oxAuthJwksURI,omitempty"`
	JWKS                string      `json:"oxAuthJwks,omitempty"`
	SectorIdentifierURI string      `json:"oxAuthSectorIdentifierURI,omitempty"`
	InitiateLoginURI    string      `json:"oxAuthInitiateLoginURI,omitempty"`
	SubjectType         SubjectType `json:"oxAuthSubjectType,omitempty"`

	IDTokenTokenBindingCnf string `json:"oxIdTokenTokenBindingCnf,omitempty"`

	AccessTokenSigningAlg        jose.SignatureAlgorithm `json:"oxAccessTokenSigningAlg,omitempty"`
	IDTokenSignedResponseAlg     jose.SignatureAlgorithm `json:"oxAuthIdTokenSignedResponseAlg,omitempty"`
	IDTokenEncryptedResponseAlg  jose.KeyAlgorithm       `json:"oxAuthIdTokenEncryptedResponseAlg,omitempty"`
	IDTokenEncryptedResponseEnc  jose.ContentEncryption  `json:"oxAuthIdTokenEncryptedResponseEnc,omitempty"`
	UserInfoSignedResponseAlg    jose.SignatureAlgorithm `json:"oxAuthSignedResponseAlg,omitempty"`
	UserInfoEncryptedResponseAlg jose.KeyAlgorithm       `json:"oxAuthUserInfoEncryptedResponseAlg,omitempty"`
	UserInfoEncryptedResponseEnc jose.ContentEncryption  `json:"oxAuthUserInfoEncryptedResponseEnc,omitempty"`
	RequestObjectSigningAlg      jose.SignatureAlgorithm `json:"oxAuthRequestObjectSigningAlg,omitempty"`
	RequestObjectEncryptionAlg   jose.KeyAlgorithm       `json:"oxAuthRequestObjectEncryptionAlg,omitempty"`
	RequestObjectEncryptionEnc   jose.ContentEncryption  `json:"oxAuthRequestObjectEncryptionEnc,omitempty"`
	TokenEndpointAuthMethod      AuthenticationMethod    `json:"oxAuthTokenEndpointAuthMethod,omitempty"`
	TokenEndpointAuthSigningAlg  jose.SignatureAlgorithm `json:"oxAuthTokenEndpointAuthSigningAlg,omitempty"`

	DefaultMaxAge        *int `json:"oxAuthDefaultMaxAge,omitempty"`
	RefreshTokenLifetime *int `json:"oxRefreshTokenLifetime,omitempty"`
	AccessTokenLifetime  *int `json:"oxAccessTokenLifetime,omitempty"`

	TrustedClient               persistence.TriState `json:"oxAuthTrustedClient,omitempty"`
	Disabled                    persistence.TriState `json:"oxDisabled,omitempty"`
	RequireAuthTime             persistence.TriState `json:"oxAuthRequireAuthTime,omitempty"`
	RPTAsJWT                    persistence.TriState `json:"oxRptAsJwt,omitempty"`
	AccessTokenAsJWT            persistence.TriState `json:"oxAccessTokenAsJwt,omitempty"`
	LogoutSessionRequired       persistence.TriState `json:"oxAuthLogoutSessionRequired,omitempty"`
	PersistClientAuthorizations persistence.TriState `json:"oxPersistClientAuthorizations,omitempty"`
	IncludeClaimsInIDToken      persistence.TriState `json:"oxIncludeClaimsInIdToken,omitempty"`

	SoftwareID        string `json:"oxSoftwareId,omitempty"`
	SoftwareVersion   string `json:"oxSoftwareVersion,omitempty"`
	SoftwareStatement string `json:"oxSoftwareStatement,omitempty"`
	OxdID             string `json:"oxdId,omitempty"`

	attributes *ClientAttributes
}

func (OAuthClient) ObjectClass() string { return "oxAuthClient" }

// NewOAuthClient returns a client carrying the flag defaults applied to
// newly registered clients.
func NewOAuthClient() *OAuthClient {
	return &OAuthClient{
		TrustedClient:               persistence.False,
		RPTAsJWT:                    persistence.False,
		AccessTokenAsJWT:            persistence.False,
		LogoutSessionRequired:       persistence.False,
		PersistClientAuthorizations: persistence.True,
		IncludeClaimsInIDToken:      persistence.False,
	}
}

// ClientSecretExpiresAt returns the secret expiry. An unset expiry reads as
// the start of the day one hundred years from now, local time.
func (c *OAuthClient) ClientSecretExpiresAt() time.Time {
	if c.SecretExpiresAt != nil {
		return *c.SecretExpiresAt
	}
	return inOneCentury(time.Now())
}

// SetClientSecretExpiresAt stores an explicit expiry.
func (c *OAuthClient) SetClientSecretExpiresAt(t time.Time) {
	c.SecretExpiresAt = &t
}

func inOneCentury(now time.Time) time.Time {
	y, m, d := now.AddDate(100, 0, 0).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// Attributes returns the extension attributes, creating an empty set on
// first use. Later calls return the same value until SetAttributes.
func (c *OAuthClient) Attributes() *ClientAttributes {
	if c.attributes == nil {
		c.attributes = &ClientAttributes{}
	}
	return c.attributes
}

func (c *OAuthClient) SetAttributes(attrs *ClientAttributes) {
	c.attributes = attrs
}

// IsDisabled reports whether the client has been switched off.
func (c *OAuthClient) IsDisabled() bool {
	return c.Disabled.IsTrue()
}

// HasGrantType reports whether gt is among the client's grant types.
func (c *OAuthClient) HasGrantType(gt GrantType) bool {
	for _, v := range c.GrantTypes {
		if v == gt {
			return true
		}
	}
	return false
}

// HasResponseType reports whether rt is among the client's response types.
func (c *OAuthClient) HasResponseType(rt ResponseType) bool {
	for _, v := range c.ResponseTypes {
		if v == rt {
			return true
		}
	}
	return false
}

// HasRedirectURI reports whether uri is registered for the client.
func (c *OAuthClient) HasRedirectURI(uri string) bool {
	for _, v := range c.RedirectURIs {
		if v == uri {
			return true
		}
	}
	return false
}

// clientJSON adds the unexported attributes to the stored form.
type clientAlias OAuthClient

type clientJSON struct {
	*clientAlias
	Attributes *ClientAttributes `json:"oxAttributes,omitempty"`
}

func (c OAuthClient) MarshalJSON() ([]byte, error) {
	return json.Marshal(clientJSON{clientAlias: (*clientAlias)(&c), Attributes: c.attributes})
}

func (c *OAuthClient) UnmarshalJSON(data []byte) error {
	aux := clientJSON{clientAlias: (*clientAlias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.attributes = aux.Attributes
	return nil
}
