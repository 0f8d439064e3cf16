package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smilyweb/infrastructure"
	"smilyweb/internal/user"
	"smilyweb/pkg/jwt"
)

type gateEnv struct {
	access   AccessCodec
	refresh  RefreshCodec
	issuer   *TokenIssuer
	users    *fakeUserRepo
	sessions *fakeSessionRepo
	mw       *Middleware
}

func newGateEnv(t *testing.T) *gateEnv {
	t.Helper()
	cfg := newTestConfig(t)

	access, err := NewAccessCodec(cfg)
	require.NoError(t, err)
	refresh, err := NewRefreshCodec(cfg)
	require.NoError(t, err)
	issuer := NewTokenIssuer(cfg, access, refresh)

	users := newFakeUserRepo()
	sessionRepo := newFakeSessionRepo()
	return &gateEnv{
		access:   access,
		refresh:  refresh,
		issuer:   issuer,
		users:    users,
		sessions: sessionRepo,
		mw:       NewMiddleware(access, refresh, issuer, users, sessionRepo),
	}
}

// seedUser creates a user with a live session and returns both.
func (e *gateEnv) seedUser(t *testing.T) (*user.User, string) {
	t.Helper()
	u, err := e.users.Create(context.Background(), &user.User{
		Name:     "Ann",
		Email:    "ann@example.com",
		Password: "irrelevant",
	})
	require.NoError(t, err)
	session, err := e.sessions.Create(context.Background(), u.ID, "test-agent")
	require.NoError(t, err)
	return u, session.ID.Hex()
}

func TestRequireAuthNoTokens(t *testing.T) {
	env := newGateEnv(t)
	gate := env.mw.RequireAuth(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "unauthorized user")
}

func TestRequireAuthValidAccessToken(t *testing.T) {
	env := newGateEnv(t)
	u, sessionID := env.seedUser(t)

	token, err := env.access.Sign(jwt.TokenClaims{UserClaims: u.Claims(), Session: sessionID}, time.Hour)
	require.NoError(t, err)

	var seen *jwt.TokenClaims
	gate := env.mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = infrastructure.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: token})
	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, u.ID.Hex(), seen.UserID)
	assert.Equal(t, sessionID, seen.Session)
}

func TestRequireAuthBearerHeader(t *testing.T) {
	env := newGateEnv(t)
	u, sessionID := env.seedUser(t)

	token, err := env.access.Sign(jwt.TokenClaims{UserClaims: u.Claims(), Session: sessionID}, time.Hour)
	require.NoError(t, err)

	gate := env.mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

// A bad access token is rejected even when a perfectly good refresh token
// rides on the same request: renewal only runs when no access token was
// sent at all.
func TestRequireAuthInvalidAccessTokenNoFallback(t *testing.T) {
	env := newGateEnv(t)
	u, sessionID := env.seedUser(t)

	refreshToken, err := env.refresh.Sign(jwt.TokenClaims{UserClaims: u.Claims(), Session: sessionID}, time.Hour)
	require.NoError(t, err)

	gate := env.mw.RequireAuth(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: "garbage"})
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: refreshToken})
	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Header().Get("x-access-token"))
}

func TestRequireAuthExpiredAccessToken(t *testing.T) {
	env := newGateEnv(t)
	u, sessionID := env.seedUser(t)

	token, err := env.access.Sign(jwt.TokenClaims{UserClaims: u.Claims(), Session: sessionID}, -time.Minute)
	require.NoError(t, err)

	gate := env.mw.RequireAuth(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: token})
	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthRefreshReissuesAccessToken(t *testing.T) {
	env := newGateEnv(t)
	u, sessionID := env.seedUser(t)

	refreshToken, err := env.refresh.Sign(jwt.TokenClaims{UserClaims: u.Claims(), Session: sessionID}, time.Hour)
	require.NoError(t, err)

	var seen *jwt.TokenClaims
	gate := env.mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = infrastructure.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("x-refresh", refreshToken)
	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, sessionID, seen.Session)

	// A fresh access token is handed back in both header and cookie form.
	newToken := rec.Header().Get("x-access-token")
	require.NotEmpty(t, newToken)
	claims, expired := env.access.Verify(newToken)
	require.NotNil(t, claims)
	assert.False(t, expired)
	assert.Equal(t, u.ID.Hex(), claims.UserID)
	assert.Equal(t, sessionID, claims.Session)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "accessToken" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, newToken, cookie.Value)
}

// Logging out deletes the session, so replaying the old refresh token must
// not mint a new access token.
func TestRequireAuthRefreshAfterSessionDeleted(t *testing.T) {
	env := newGateEnv(t)
	u, sessionID := env.seedUser(t)

	refreshToken, err := env.refresh.Sign(jwt.TokenClaims{UserClaims: u.Claims(), Session: sessionID}, time.Hour)
	require.NoError(t, err)

	for id := range env.sessions.sessions {
		require.NoError(t, env.sessions.DeleteByID(context.Background(), id))
	}

	gate := env.mw.RequireAuth(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("x-refresh", refreshToken)
	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Header().Get("x-access-token"))
}

func TestRequireAuthRefreshSignedWithWrongKey(t *testing.T) {
	env := newGateEnv(t)
	u, sessionID := env.seedUser(t)

	// A token signed by the access key must not pass refresh verification.
	wrongToken, err := env.access.Sign(jwt.TokenClaims{UserClaims: u.Claims(), Session: sessionID}, time.Hour)
	require.NoError(t, err)

	gate := env.mw.RequireAuth(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("x-refresh", wrongToken)
	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	admin := RequireRole(user.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	request := func(role string) *httptest.ResponseRecorder {
		claims := &jwt.TokenClaims{UserClaims: jwt.UserClaims{UserID: "abc", Role: role}}
		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		req = req.WithContext(infrastructure.WithIdentity(req.Context(), claims))
		rec := httptest.NewRecorder()
		admin.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, request(user.RoleAdmin).Code)

	rec := request(user.RoleUser)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "you are not authorized for this route")

	// No identity on the context at all.
	rec = httptest.NewRecorder()
	admin.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
