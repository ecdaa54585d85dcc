package oauthclient

import (
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/go-jose/go-jose/v4"
)

var (
	validApplicationTypes = map[ApplicationType]bool{
		ApplicationTypeWeb:    true,
		ApplicationTypeNative: true,
	}

	validSubjectTypes = map[SubjectType]bool{
		SubjectTypePublic:   true,
		SubjectTypePairwise: true,
	}

	validResponseTypes = map[ResponseType]bool{
		ResponseTypeCode:    true,
		ResponseTypeToken:   true,
		ResponseTypeIDToken: true,
	}

	validGrantTypes = map[GrantType]bool{
		GrantTypeAuthorizationCode: true,
		GrantTypeImplicit:          true,
		GrantTypeRefreshToken:      true,
		GrantTypeClientCredentials: true,
		GrantTypePassword:          true,
		GrantTypeUMATicket:         true,
		GrantTypeDeviceCode:        true,
	}

	validAuthMethods = map[AuthenticationMethod]bool{
		AuthMethodClientSecretBasic: true,
		AuthMethodClientSecretPost:  true,
		AuthMethodClientSecretJWT:   true,
		AuthMethodPrivateKeyJWT:     true,
		AuthMethodTLSClientAuth:     true,
		AuthMethodSelfSignedTLS:     true,
		AuthMethodNone:              true,
	}

	// "none" is accepted for unsigned ID tokens, user info and request objects
	validSignatureAlgs = map[jose.SignatureAlgorithm]bool{
		"none": true,
		jose.HS256: true, jose.HS384: true, jose.HS512: true,
		jose.RS256: true, jose.RS384: true, jose.RS512: true,
		jose.ES256: true, jose.ES384: true, jose.ES512: true,
		jose.PS256: true, jose.PS384: true, jose.PS512: true,
		jose.EdDSA: true,
	}

	validKeyAlgs = map[jose.KeyAlgorithm]bool{
		jose.RSA1_5: true, jose.RSA_OAEP: true, jose.RSA_OAEP_256: true,
		jose.A128KW: true, jose.A192KW: true, jose.A256KW: true,
		jose.DIRECT: true,
		jose.ECDH_ES: true, jose.ECDH_ES_A128KW: true, jose.ECDH_ES_A192KW: true, jose.ECDH_ES_A256KW: true,
		jose.A128GCMKW: true, jose.A192GCMKW: true, jose.A256GCMKW: true,
	}

	validContentEncryptions = map[jose.ContentEncryption]bool{
		jose.A128CBC_HS256: true, jose.A192CBC_HS384: true, jose.A256CBC_HS512: true,
		jose.A128GCM: true, jose.A192GCM: true, jose.A256GCM: true,
	}

	// Auth methods that sign a client assertion
	jwtAuthMethods = map[AuthenticationMethod]bool{
		AuthMethodClientSecretJWT: true,
		AuthMethodPrivateKeyJWT:   true,
	}
)

// ValidationError describes one invalid client field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error in field '%s': %s", e.Field, e.Message)
}

// ValidationErrors collects every problem found in a client
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var messages []string
	for _, err := range e {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("multiple validation errors: %s", strings.Join(messages, "; "))
}

// Fields returns the error messages keyed by field name.
func (e ValidationErrors) Fields() map[string]interface{} {
	fields := make(map[string]interface{}, len(e))
	for _, err := range e {
		fields[err.Field] = err.Message
	}
	return fields
}

func (e *ValidationErrors) add(field, code, format string, args ...interface{}) {
	*e = append(*e, ValidationError{Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
}

// Validate checks the client's registration metadata. It returns nil or a
// ValidationErrors value.
func (c *OAuthClient) Validate() error {
	var errs ValidationErrors

	if strings.TrimSpace(c.DisplayName) == "" {
		errs.add("displayName", "invalid_client_metadata", "display name is required")
	}

	if c.ApplicationType != "" && !validApplicationTypes[c.ApplicationType] {
		errs.add("oxAuthAppType", "invalid_client_metadata", "invalid application type: %s", c.ApplicationType)
	}
	if c.SubjectType != "" && !validSubjectTypes[c.SubjectType] {
		errs.add("oxAuthSubjectType", "invalid_client_metadata", "invalid subject type: %s", c.SubjectType)
	}

	for i, uri := range c.RedirectURIs {
		if err := validateRedirectURI(uri); err != nil {
			errs.add(fmt.Sprintf("oxAuthRedirectURI[%d]", i), "invalid_redirect_uri", "%v", err)
		}
	}
	for i, uri := range c.PostLogoutRedirectURIs {
		if err := validateRedirectURI(uri); err != nil {
			errs.add(fmt.Sprintf("oxAuthPostLogoutRedirectURI[%d]", i), "invalid_redirect_uri", "%v", err)
		}
	}
	for field, uri := range map[string]string{
		"oxAuthLogoURI":             c.LogoURI,
		"oxAuthClientURI":           c.ClientURI,
		"oxAuthPolicyURI":           c.PolicyURI,
		"oxAuthTosURI":              c.TosURI,
		"oxAuthJwksURI":             c.JWKSURI,
		"oxAuthSectorIdentifierURI": c.SectorIdentifierURI,
		"oxAuthInitiateLoginURI":    c.InitiateLoginURI,
	} {
		if uri == "" {
			continue
		}
		if err := validateURI(uri); err != nil {
			errs.add(field, "invalid_client_metadata", "%v", err)
		}
	}

	for i, rt := range c.ResponseTypes {
		if !validResponseTypes[rt] {
			errs.add(fmt.Sprintf("oxAuthResponseType[%d]", i), "invalid_client_metadata", "invalid response type: %s", rt)
		}
	}
	for i, gt := range c.GrantTypes {
		if !validGrantTypes[gt] {
			errs.add(fmt.Sprintf("oxAuthGrantType[%d]", i), "invalid_client_metadata", "invalid grant type: %s", gt)
		}
	}
	if err := validateGrantTypeResponseTypeConsistency(c); err != nil {
		errs = append(errs, *err)
	}

	if c.TokenEndpointAuthMethod != "" && !validAuthMethods[c.TokenEndpointAuthMethod] {
		errs.add("oxAuthTokenEndpointAuthMethod", "invalid_client_metadata", "invalid token endpoint auth method: %s", c.TokenEndpointAuthMethod)
	}
	if c.TokenEndpointAuthSigningAlg != "" && !jwtAuthMethods[c.TokenEndpointAuthMethod] {
		errs.add("oxAuthTokenEndpointAuthSigningAlg", "invalid_client_metadata", "signing algorithm requires a JWT token endpoint auth method")
	}
	if c.TokenEndpointAuthMethod == AuthMethodPrivateKeyJWT && c.JWKS == "" && c.JWKSURI == "" {
		errs.add("oxAuthTokenEndpointAuthMethod", "invalid_client_metadata", "private_key_jwt requires jwks or jwks_uri")
	}

	if c.JWKS != "" && c.JWKSURI != "" {
		errs.add("oxAuthJwks", "invalid_client_metadata", "jwks and jwks_uri are mutually exclusive")
	}
	if c.JWKS != "" {
		if err := validateJWKS(c.JWKS); err != nil {
			errs.add("oxAuthJwks", "invalid_client_metadata", "%v", err)
		}
	}

	for field, alg := range map[string]jose.SignatureAlgorithm{
		"oxAccessTokenSigningAlg":           c.AccessTokenSigningAlg,
		"oxAuthIdTokenSignedResponseAlg":    c.IDTokenSignedResponseAlg,
		"oxAuthSignedResponseAlg":           c.UserInfoSignedResponseAlg,
		"oxAuthRequestObjectSigningAlg":     c.RequestObjectSigningAlg,
		"oxAuthTokenEndpointAuthSigningAlg": c.TokenEndpointAuthSigningAlg,
	} {
		if alg != "" && !validSignatureAlgs[alg] {
			errs.add(field, "invalid_client_metadata", "unsupported signing algorithm: %s", alg)
		}
	}
	validateEncryptionPair(&errs, "oxAuthIdTokenEncryptedResponse", c.IDTokenEncryptedResponseAlg, c.IDTokenEncryptedResponseEnc)
	validateEncryptionPair(&errs, "oxAuthUserInfoEncryptedResponse", c.UserInfoEncryptedResponseAlg, c.UserInfoEncryptedResponseEnc)
	validateEncryptionPair(&errs, "oxAuthRequestObjectEncryption", c.RequestObjectEncryptionAlg, c.RequestObjectEncryptionEnc)

	for field, v := range map[string]*int{
		"oxAuthDefaultMaxAge":    c.DefaultMaxAge,
		"oxRefreshTokenLifetime": c.RefreshTokenLifetime,
		"oxAccessTokenLifetime":  c.AccessTokenLifetime,
	} {
		if v != nil && *v < 0 {
			errs.add(field, "invalid_client_metadata", "must not be negative")
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// validateRedirectURI accepts https URIs, and http only for loopback hosts
func validateRedirectURI(uri string) error {
	if uri == "" {
		return fmt.Errorf("redirect URI cannot be empty")
	}

	parsedURI, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("invalid URI format: %v", err)
	}

	switch parsedURI.Scheme {
	case "https":
	case "http":
		if !isLoopback(parsedURI.Hostname()) {
			return fmt.Errorf("http redirect URI is only allowed for localhost")
		}
	default:
		return fmt.Errorf("invalid URI scheme: %s", parsedURI.Scheme)
	}

	if parsedURI.Host == "" {
		return fmt.Errorf("redirect URI must have a host")
	}
	if parsedURI.Fragment != "" {
		return fmt.Errorf("redirect URI must not contain fragment")
	}

	return nil
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// validateURI validates a general URI
func validateURI(uri string) error {
	parsedURI, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("invalid URI format: %v", err)
	}

	if parsedURI.Scheme == "" {
		return fmt.Errorf("URI must have a scheme")
	}

	if parsedURI.Scheme != "https" && parsedURI.Scheme != "http" {
		return fmt.Errorf("URI must use HTTP or HTTPS scheme")
	}

	return nil
}

func validateJWKS(raw string) error {
	var set jose.JSONWebKeySet
	if err := json.Unmarshal([]byte(raw), &set); err != nil {
		return fmt.Errorf("invalid JWKS: %v", err)
	}
	if len(set.Keys) == 0 {
		return fmt.Errorf("JWKS contains no keys")
	}
	for i, key := range set.Keys {
		if !key.Valid() {
			return fmt.Errorf("JWKS key %d is invalid", i)
		}
		if !key.IsPublic() {
			return fmt.Errorf("JWKS key %d must be a public key", i)
		}
	}
	return nil
}

// validateEncryptionPair requires the key algorithm whenever a content
// encryption is chosen.
func validateEncryptionPair(errs *ValidationErrors, field string, alg jose.KeyAlgorithm, enc jose.ContentEncryption) {
	if alg != "" && !validKeyAlgs[alg] {
		errs.add(field+"Alg", "invalid_client_metadata", "unsupported key algorithm: %s", alg)
	}
	if enc != "" && !validContentEncryptions[enc] {
		errs.add(field+"Enc", "invalid_client_metadata", "unsupported content encryption: %s", enc)
	}
	if enc != "" && alg == "" {
		errs.add(field+"Enc", "invalid_client_metadata", "content encryption requires a key algorithm")
	}
}

// validateGrantTypeResponseTypeConsistency validates consistency between grant types and response types
func validateGrantTypeResponseTypeConsistency(c *OAuthClient) *ValidationError {
	if c.HasResponseType(ResponseTypeCode) && !c.HasGrantType(GrantTypeAuthorizationCode) {
		return &ValidationError{
			Field:   "oxAuthGrantType",
			Message: "authorization_code grant type is required when using code response type",
			Code:    "invalid_client_metadata",
		}
	}

	if (c.HasResponseType(ResponseTypeToken) || c.HasResponseType(ResponseTypeIDToken)) && !c.HasGrantType(GrantTypeImplicit) {
		return &ValidationError{
			Field:   "oxAuthGrantType",
			Message: "implicit grant type is required when using token or id_token response type",
			Code:    "invalid_client_metadata",
		}
	}

	return nil
}
