package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthorized is returned for a missing, malformed or rejected token.
var ErrUnauthorized = errors.New("unauthorized")

const leeway = 30 * time.Second

// Authenticator signs and verifies HS256 bearer tokens. The subject claim
// is the owner id.
type Authenticator struct {
	secret   []byte
	audience string
	now      func() time.Time
}

// NewAuthenticator returns an authenticator for secret. An empty audience
// skips the aud check.
func NewAuthenticator(secret, audience string) *Authenticator {
	return &Authenticator{
		secret:   []byte(secret),
		audience: audience,
		now:      time.Now,
	}
}

// Issue signs a token for ownerID valid for ttl. Production tokens come from
// the identity provider; cmd/compras-token uses this for local development.
func (a *Authenticator) Issue(ownerID string, ttl time.Duration) (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   ownerID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if a.audience != "" {
		claims.Audience = jwt.ClaimStrings{a.audience}
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

// Verify checks signature, expiry and audience and returns the caller.
func (a *Authenticator) Verify(token string) (AuthContext, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(leeway),
		jwt.WithTimeFunc(a.now),
	}
	if a.audience != "" {
		opts = append(opts, jwt.WithAudience(a.audience))
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return AuthContext{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return AuthContext{}, fmt.Errorf("%w: missing subject", ErrUnauthorized)
	}
	return AuthContext{OwnerID: claims.Subject}, nil
}

// Middleware requires a valid bearer token. When allowQuery is set the token
// may also come from the "token" query parameter, for WebSocket clients that
// cannot set headers. onFail writes the rejection.
func (a *Authenticator) Middleware(allowQuery bool, onFail func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" && allowQuery {
				token = r.URL.Query().Get("token")
			}
			if token == "" {
				onFail(w, r, fmt.Errorf("%w: missing bearer token", ErrUnauthorized))
				return
			}

			ac, err := a.Verify(token)
			if err != nil {
				slog.WarnContext(r.Context(), "Rejected token", "path", r.URL.Path, "error", err)
				onFail(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAuth(r.Context(), ac)))
		})
	}
}

// BearerToken extracts the token from an Authorization header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
