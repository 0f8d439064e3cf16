package auth

import (
	"context"
	"log/slog"
	"net/http"

	"go.mongodb.org/mongo-driver/v2/bson"

	"smilyweb/infrastructure"
	"smilyweb/internal/sessions"
	"smilyweb/internal/user"
	"smilyweb/pkg/jwt"
)

// Middleware is the request gate: every protected route passes through
// RequireAuth before its handler runs.
type Middleware struct {
	access   AccessCodec
	refresh  RefreshCodec
	issuer   *TokenIssuer
	users    user.Repository
	sessions sessions.Repository
}

func NewMiddleware(
	access AccessCodec,
	refresh RefreshCodec,
	issuer *TokenIssuer,
	users user.Repository,
	sessionRepo sessions.Repository,
) *Middleware {
	return &Middleware{
		access:   access,
		refresh:  refresh,
		issuer:   issuer,
		users:    users,
		sessions: sessionRepo,
	}
}

// RequireAuth resolves the caller's identity or rejects the request.
//
// A present-but-invalid access token is rejected outright: renewal runs
// only when the caller sent no access token at all and a refresh token is
// available. The refresh path re-validates that both the user and the
// session still exist, so a logged-out session cannot be replayed into a
// fresh access token.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accessToken := infrastructure.ExtractAccessToken(r)
		refreshToken := infrastructure.ExtractRefreshToken(r)

		if accessToken == "" && refreshToken == "" {
			infrastructure.WriteError(w, infrastructure.Unauthenticated())
			return
		}

		if accessToken != "" {
			claims, expired := m.access.Verify(accessToken)
			if claims != nil && !expired {
				next.ServeHTTP(w, r.WithContext(infrastructure.WithIdentity(r.Context(), claims)))
				return
			}
			infrastructure.WriteError(w, infrastructure.Unauthenticated())
			return
		}

		newAccessToken, claims := m.reissueAccessToken(r.Context(), refreshToken)
		if claims == nil {
			infrastructure.WriteError(w, infrastructure.Unauthenticated())
			return
		}

		w.Header().Set("x-access-token", newAccessToken)
		setTokenCookie(w, "accessToken", newAccessToken, m.issuer.AccessTTL())
		next.ServeHTTP(w, r.WithContext(infrastructure.WithIdentity(r.Context(), claims)))
	})
}

// reissueAccessToken mints a new access token bound to the same user and
// session the refresh token names. Any failure along the way degrades to
// nil so the gate answers with a single 401.
func (m *Middleware) reissueAccessToken(ctx context.Context, refreshToken string) (string, *jwt.TokenClaims) {
	claims, expired := m.refresh.Verify(refreshToken)
	if claims == nil || expired {
		return "", nil
	}

	userID, err := bson.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return "", nil
	}
	sessionID, err := bson.ObjectIDFromHex(claims.Session)
	if err != nil {
		return "", nil
	}

	u, err := m.users.FindByID(ctx, userID)
	if err != nil {
		return "", nil
	}
	session, err := m.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return "", nil
	}

	fresh := jwt.TokenClaims{
		UserClaims: u.Claims(),
		Session:    session.ID.Hex(),
	}
	token, err := m.access.Sign(fresh, m.issuer.AccessTTL())
	if err != nil {
		slog.Error("access token reissue failed", "user", claims.UserID, "error", err)
		return "", nil
	}
	return token, &fresh
}

// RequireRole rejects callers whose role is not in the allow-list. It must
// run after RequireAuth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := infrastructure.IdentityFromContext(r.Context())
			if !ok {
				infrastructure.WriteError(w, infrastructure.Unauthenticated())
				return
			}
			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			infrastructure.WriteError(w, infrastructure.Forbidden("you are not authorized for this route"))
		})
	}
}
