// Package auth verifies bearer access tokens against the identity
// provider's JWKS endpoint. RS256 only, with audience and issuer pinned.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var ErrUnauthorized = errors.New("unauthorized")

// Custom claim namespace some tenants use for email on access tokens.
const emailNamespaceClaim = "https://pacecal.app/email"

// Claims carries the verified identity attached to a request.
type Claims struct {
	Subject string
	Email   string
}

type claimSet struct {
	Email          string `json:"email"`
	NamespacedMail string `json:"https://pacecal.app/email"`
	jwt.RegisteredClaims
}

// Verifier checks RS256 access tokens against a key set, audience and
// issuer.
type Verifier struct {
	keys     *KeySet
	audience string
	issuer   string
}

// NewVerifier builds a verifier for an identity domain, e.g.
// "tenant.us.auth0.com". The issuer is https://<domain>/ and keys come
// from https://<domain>/.well-known/jwks.json.
func NewVerifier(domain, audience string, client *http.Client) *Verifier {
	domain = strings.TrimSuffix(strings.TrimSpace(domain), "/")
	return &Verifier{
		keys:     NewKeySet(fmt.Sprintf("https://%s/.well-known/jwks.json", domain), client),
		audience: audience,
		issuer:   fmt.Sprintf("https://%s/", domain),
	}
}

// NewVerifierWithKeySet wires an explicit key set, audience and issuer.
// Useful when the JWKS endpoint is not at the conventional path.
func NewVerifierWithKeySet(keys *KeySet, audience, issuer string) *Verifier {
	return &Verifier{keys: keys, audience: audience, issuer: issuer}
}

// Verify parses and validates a raw token string.
func (v *Verifier) Verify(ctx context.Context, raw string) (Claims, error) {
	var cs claimSet
	_, err := jwt.ParseWithClaims(raw, &cs,
		func(t *jwt.Token) (any, error) {
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("token has no kid header")
			}
			return v.keys.Key(ctx, kid)
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.audience),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %s", ErrUnauthorized, err)
	}

	email := cs.Email
	if email == "" {
		email = cs.NamespacedMail
	}
	return Claims{Subject: cs.Subject, Email: email}, nil
}

type contextKey struct{}

// ClaimsFromContext returns the claims attached by Middleware.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(contextKey{}).(Claims)
	return c, ok
}

// Middleware rejects requests without a valid bearer token and attaches
// the verified claims to the request context.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			http.Error(w, "Missing Authorization header", http.StatusUnauthorized)
			return
		}
		claims, err := v.Verify(r.Context(), raw)
		if err != nil {
			slog.DebugContext(r.Context(), "Token verification failed", "error", err)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), contextKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
