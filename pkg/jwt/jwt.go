package jwt

import (
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// UserClaims are the public profile fields embedded in every token.
type UserClaims struct {
	UserID       string `json:"_id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	Avatar       string `json:"avatar,omitempty"`
	GoogleLinked bool   `json:"isLoggedInWithGoogle"`
}

// TokenClaims is the full claim set: the user's public fields plus the id
// of the server-side session the token was minted against.
type TokenClaims struct {
	UserClaims
	Session string `json:"session"`
	jwt.RegisteredClaims
}

// Codec signs and verifies RS256 tokens for one key pair. Access and
// refresh tokens each get their own Codec so the signing surfaces stay
// independent.
type Codec struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
}

// NewCodec decodes a base64-wrapped PEM key pair. The base64 wrapping is
// an env-transport convenience, not a security property.
func NewCodec(privateKeyB64, publicKeyB64 string) (*Codec, error) {
	privatePEM, err := base64.StdEncoding.DecodeString(privateKeyB64)
	if err != nil {
		return nil, errors.New("private key is not valid base64")
	}
	publicPEM, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil {
		return nil, errors.New("public key is not valid base64")
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privatePEM)
	if err != nil {
		return nil, err
	}
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicPEM)
	if err != nil {
		return nil, err
	}

	return &Codec{privateKey: privateKey, publicKey: publicKey}, nil
}

// Sign mints a token expiring after ttl.
func (c *Codec) Sign(claims TokenClaims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, &claims)
	return token.SignedString(c.privateKey)
}

// Verify never returns an error. Any failure, bad signature, malformed
// input, wrong algorithm or expiry, degrades to (nil, true) so callers
// branch on claims != nil && !expired only.
func (c *Codec) Verify(tokenString string) (*TokenClaims, bool) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return c.publicKey, nil
	})
	if err != nil || !token.Valid {
		return nil, true
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok {
		return nil, true
	}
	return claims, false
}
