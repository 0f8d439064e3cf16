package auth

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"go.mongodb.org/mongo-driver/v2/bson"

	"smilyweb/config"
	"smilyweb/infrastructure"
	"smilyweb/internal/sessions"
	"smilyweb/internal/user"
)

// Handler serves register, login, logout and the google callback. All of
// them funnel into the same session + token primitives.
type Handler struct {
	users       *user.Service
	sessions    sessions.Repository
	issuer      *TokenIssuer
	google      *GoogleClient
	frontendURL string
}

func NewHandler(
	cfg *config.Config,
	users *user.Service,
	sessionRepo sessions.Repository,
	issuer *TokenIssuer,
	google *GoogleClient,
) *Handler {
	return &Handler{
		users:       users,
		sessions:    sessionRepo,
		issuer:      issuer,
		google:      google,
		frontendURL: cfg.FrontendURL,
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) error {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return infrastructure.BadRequest("invalid request body")
	}
	if err := req.Validate(); err != nil {
		return err
	}

	u, err := h.users.CreateUser(r.Context(), req.Name, req.Email, req.Password)
	if errors.Is(err, user.ErrEmailTaken) {
		return infrastructure.Conflict("email already taken")
	}
	if err != nil {
		slog.Error("register: create user failed", "error", err)
		return infrastructure.ServerError()
	}

	session, err := h.sessions.Create(r.Context(), u.ID, r.UserAgent())
	if err != nil {
		slog.Error("register: create session failed", "user", u.ID.Hex(), "error", err)
		return infrastructure.ServerError()
	}

	if err := h.issuer.IssueAndSetCookies(w, u, session.ID); err != nil {
		return infrastructure.ServerError()
	}

	infrastructure.WriteJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "user created successfully",
		"user":    u,
	})
	return nil
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) error {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return infrastructure.BadRequest("invalid request body")
	}
	if err := req.Validate(); err != nil {
		return err
	}

	u, err := h.users.ValidatePassword(r.Context(), req.Email, req.Password)
	if errors.Is(err, user.ErrPasswordMismatch) {
		return infrastructure.InvalidCredentials()
	}
	if err != nil {
		slog.Error("login: validate password failed", "error", err)
		return infrastructure.ServerError()
	}

	session, err := h.sessions.CreateOrUpdate(r.Context(), u.ID, r.UserAgent())
	if err != nil {
		slog.Error("login: session upsert failed", "user", u.ID.Hex(), "error", err)
		return infrastructure.ServerError()
	}

	if err := h.issuer.IssueAndSetCookies(w, u, session.ID); err != nil {
		return infrastructure.ServerError()
	}

	infrastructure.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "logged in successfully",
		"user":    u,
	})
	return nil
}

// Logout deletes the session named in the caller's claims, which revokes
// the refresh path for every token minted against it.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) error {
	claims, ok := infrastructure.IdentityFromContext(r.Context())
	if !ok {
		return infrastructure.Unauthenticated()
	}

	sessionID, err := bson.ObjectIDFromHex(claims.Session)
	if err != nil {
		return infrastructure.ServerError()
	}
	if err := h.sessions.DeleteByID(r.Context(), sessionID); err != nil {
		slog.Error("logout: delete session failed", "session", claims.Session, "error", err)
		return infrastructure.ServerError()
	}

	clearTokenCookies(w)
	infrastructure.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "logged out successfully",
	})
	return nil
}

// GoogleCallback turns an OAuth authorization code into a local login:
// create-or-link the user by email, then the usual session + token pair.
func (h *Handler) GoogleCallback(w http.ResponseWriter, r *http.Request) error {
	code := r.URL.Query().Get("code")
	if code == "" {
		return infrastructure.BadRequest("missing authorization code")
	}

	tokens, err := h.google.ExchangeCode(r.Context(), code)
	if err != nil {
		slog.Error("google auth: code exchange failed", "error", err)
		return infrastructure.UpstreamError("google data fetching error")
	}

	profile, err := h.google.FetchProfile(r.Context(), tokens.IDToken, tokens.AccessToken)
	if err != nil {
		slog.Error("google auth: userinfo fetch failed", "error", err)
		return infrastructure.UpstreamError("google data fetching error")
	}

	if !profile.VerifiedEmail {
		return infrastructure.Forbidden("Google account is not verified")
	}

	// New google users get an unusable random local password so the
	// password grant and the reset flow stay closed to them.
	placeholder, err := unusablePassword()
	if err != nil {
		return infrastructure.ServerError()
	}

	u, err := h.users.Repo().UpsertByEmail(r.Context(), profile.Email,
		bson.M{
			"name":                 profile.Name,
			"email":                profile.Email,
			"isLoggedInWithGoogle": true,
		},
		bson.M{"password": placeholder},
	)
	if err != nil {
		slog.Error("google auth: user upsert failed", "email", profile.Email, "error", err)
		return infrastructure.ServerError()
	}

	session, err := h.sessions.CreateOrUpdate(r.Context(), u.ID, r.UserAgent())
	if err != nil {
		slog.Error("google auth: session upsert failed", "user", u.ID.Hex(), "error", err)
		return infrastructure.ServerError()
	}

	if err := h.issuer.IssueAndSetCookies(w, u, session.ID); err != nil {
		return infrastructure.ServerError()
	}

	http.Redirect(w, r, h.frontendURL, http.StatusFound)
	return nil
}

func unusablePassword() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return user.HashPassword(hex.EncodeToString(buf))
}
