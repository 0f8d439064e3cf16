package infrastructure

import (
	"context"
	"net/http"
	"strings"

	"smilyweb/pkg/jwt"
)

type contextKey string

const identityKey contextKey = "user"

// WithIdentity attaches the verified claims to the request context.
func WithIdentity(ctx context.Context, claims *jwt.TokenClaims) context.Context {
	return context.WithValue(ctx, identityKey, claims)
}

// IdentityFromContext returns the claims the auth gate attached, if any.
func IdentityFromContext(ctx context.Context) (*jwt.TokenClaims, bool) {
	claims, ok := ctx.Value(identityKey).(*jwt.TokenClaims)
	return claims, ok
}

// ExtractAccessToken reads the access token from the accessToken cookie or
// the Authorization bearer header.
func ExtractAccessToken(r *http.Request) string {
	if cookie, err := r.Cookie("accessToken"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// ExtractRefreshToken reads the refresh token from the refreshToken cookie
// or the x-refresh header.
func ExtractRefreshToken(r *http.Request) string {
	if cookie, err := r.Cookie("refreshToken"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return r.Header.Get("x-refresh")
}
