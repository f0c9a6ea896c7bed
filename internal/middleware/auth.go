// Package middleware provides HTTP middlewares for authentication, logging
// and throttling.
package middleware

import (
	"context"
	"net/http"
	"strings"

	domainerrors "github.com/atinyakov/GophTally/internal/errors"
	"github.com/atinyakov/GophTally/internal/service"
)

type ctxKey string

const (
	userKey   ctxKey = "user"
	claimsKey ctxKey = "claims"
)

// TokenVerifier checks session tokens.
type TokenVerifier interface {
	VerifyToken(token string) (*service.Claims, error)
}

// publicPaths are served without a session token.
var publicPaths = map[string]bool{
	"/api/auth/signup":         true,
	"/api/auth/signin":         true,
	"/api/auth/reset-password": true,
}

func isPublic(path string) bool {
	return publicPaths[path] || strings.HasPrefix(path, "/api/auth/provider/")
}

// TokenAuth is a middleware that requires a bearer session token.
//
// Sign-up, sign-in, provider sign-in and password reset are let through
// without one. On success the user id and token claims are stored in the
// request context.
func TokenAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublic(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				domainerrors.Write(w, domainerrors.ErrUnauthenticated)
				return
			}
			claims, err := verifier.VerifyToken(token)
			if err != nil {
				domainerrors.Write(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), userKey, claims.UserID)
			ctx = context.WithValue(ctx, claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserIDFromContext extracts the authenticated user ID from the request
// context. Returns an empty string if not found.
func GetUserIDFromContext(ctx context.Context) string {
	val := ctx.Value(userKey)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}

// GetClaimsFromContext returns the verified token claims, or nil.
func GetClaimsFromContext(ctx context.Context) *service.Claims {
	c, _ := ctx.Value(claimsKey).(*service.Claims)
	return c
}
