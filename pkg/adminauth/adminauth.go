// Package adminauth authenticates callers of the admin API with HS256 bearer
// tokens and checks their roles.
package adminauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	"github.com/golang-jwt/jwt/v5"
	jwxjwt "github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/tendant/simple-oxtrust/pkg/config"
	oxerrors "github.com/tendant/simple-oxtrust/pkg/errors"
)

const AccessTokenCookie = "access_token"

var ErrMissingSubject = errors.New("token has no subject")

// AdminUser is the authenticated caller
type AdminUser struct {
	Subject string   `json:"sub"`
	Name    string   `json:"name,omitempty"`
	Roles   []string `json:"roles,omitempty"`
}

func (u AdminUser) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("sub", u.Subject),
		slog.Any("roles", u.Roles),
	)
}

// HasAnyRole reports whether u holds one of roles
func (u *AdminUser) HasAnyRole(roles ...string) bool {
	if u == nil {
		return false
	}
	return config.HasAnyAdminRole(u.Roles, roles)
}

type contextKey struct {
	name string
}

func (k *contextKey) String() string {
	return "adminauth context value " + k.name
}

var AdminUserKey = &contextKey{"AdminUser"}

// FromContext returns the user stored by AdminUserMiddleware, or nil.
func FromContext(ctx context.Context) *AdminUser {
	u, _ := ctx.Value(AdminUserKey).(*AdminUser)
	return u
}

// NewJWTAuth returns the HS256 verifier for cfg.Secret. Tokens must carry
// cfg.Issuer and cfg.Audience when those are set.
func NewJWTAuth(cfg config.JWTConfig) *jwtauth.JWTAuth {
	var opts []jwxjwt.ValidateOption
	if cfg.Issuer != "" {
		opts = append(opts, jwxjwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwxjwt.WithAudience(cfg.Audience))
	}
	return jwtauth.New("HS256", []byte(cfg.Secret), nil, opts...)
}

// Verifier looks for a token in the Authorization header, then in the
// access_token cookie.
func Verifier(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return jwtauth.Verify(ja, jwtauth.TokenFromHeader, TokenFromCookie)
}

func TokenFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(AccessTokenCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// AdminUserMiddleware loads the verified claims into an AdminUser. It must
// run after Verifier and jwtauth.Authenticator.
func AdminUserMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			writeError(w, r, oxerrors.Wrap(err, oxerrors.ErrCodeTokenInvalid, "missing or invalid token"))
			return
		}

		user, err := userFromClaims(claims)
		if err != nil {
			slog.Warn("Rejected admin token", "err", err)
			writeError(w, r, oxerrors.Wrap(err, oxerrors.ErrCodeTokenInvalid, "invalid token claims"))
			return
		}

		slog.Debug("Authenticated admin user", "user", user)
		ctx := context.WithValue(r.Context(), AdminUserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFromClaims(claims map[string]interface{}) (*AdminUser, error) {
	data, err := json.Marshal(claims)
	if err != nil {
		return nil, err
	}
	user := new(AdminUser)
	if err := json.Unmarshal(data, user); err != nil {
		return nil, err
	}
	if user.Subject == "" {
		return nil, ErrMissingSubject
	}
	return user, nil
}

// RequireRole rejects callers without one of roles. Returns 401 when no user
// is in the context and 403 when the roles do not match.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := FromContext(r.Context())
			if user == nil {
				writeError(w, r, oxerrors.Unauthorized("authentication required"))
				return
			}
			if !user.HasAnyRole(roles...) {
				slog.Warn("User lacks required role", "user", user, "requiredRoles", roles)
				writeError(w, r, oxerrors.Forbidden("insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := oxerrors.ToResponse(err)
	render.Status(r, status)
	render.JSON(w, r, body)
}

// Claims is the payload of an admin token
type Claims struct {
	jwt.RegisteredClaims
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// IssueToken signs an admin token for subject with cfg's secret, issuer and
// audience.
func IssueToken(cfg config.JWTConfig, subject, name string, roles []string, expiry time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(expiry)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Name:  name,
		Roles: roles,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseToken verifies tokenString and returns its claims.
func ParseToken(cfg config.JWTConfig, tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(cfg.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
