package auth

import (
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"smilyweb/config"
	"smilyweb/internal/user"
	"smilyweb/pkg/jwt"
)

// AccessCodec and RefreshCodec wrap the token codec so the two key pairs
// stay distinct through the dependency graph.
type AccessCodec struct {
	*jwt.Codec
}

type RefreshCodec struct {
	*jwt.Codec
}

func NewAccessCodec(cfg *config.Config) (AccessCodec, error) {
	codec, err := jwt.NewCodec(cfg.AccessTokenPrivateKey, cfg.AccessTokenPublicKey)
	if err != nil {
		return AccessCodec{}, err
	}
	return AccessCodec{codec}, nil
}

func NewRefreshCodec(cfg *config.Config) (RefreshCodec, error) {
	codec, err := jwt.NewCodec(cfg.RefreshTokenPrivateKey, cfg.RefreshTokenPublicKey)
	if err != nil {
		return RefreshCodec{}, err
	}
	return RefreshCodec{codec}, nil
}

// TokenIssuer mints the access/refresh pair for a user+session and sets
// both cookies on the response.
type TokenIssuer struct {
	access     AccessCodec
	refresh    RefreshCodec
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenIssuer(cfg *config.Config, access AccessCodec, refresh RefreshCodec) *TokenIssuer {
	return &TokenIssuer{
		access:     access,
		refresh:    refresh,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
	}
}

func (i *TokenIssuer) IssueAndSetCookies(w http.ResponseWriter, u *user.User, sessionID bson.ObjectID) error {
	claims := jwt.TokenClaims{
		UserClaims: u.Claims(),
		Session:    sessionID.Hex(),
	}

	accessToken, err := i.access.Sign(claims, i.accessTTL)
	if err != nil {
		return err
	}
	refreshToken, err := i.refresh.Sign(claims, i.refreshTTL)
	if err != nil {
		return err
	}

	setTokenCookie(w, "accessToken", accessToken, i.accessTTL)
	setTokenCookie(w, "refreshToken", refreshToken, i.refreshTTL)
	return nil
}

func (i *TokenIssuer) AccessTTL() time.Duration {
	return i.accessTTL
}

func setTokenCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   false,
	})
}

func clearTokenCookies(w http.ResponseWriter) {
	for _, name := range []string{"accessToken", "refreshToken"} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
		})
	}
}
