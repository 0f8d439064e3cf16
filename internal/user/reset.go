package user

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// resetTokenDelimiter separates expiry and random string in the token
// handed to the user. It must stay exactly ".bR": the literal is what the
// frontend round-trips and it cannot collide with the hex alphabet.
const resetTokenDelimiter = ".bR"

const resetTokenTTL = 15 * time.Minute

var ErrMalformedResetToken = errors.New("malformed reset token")

// ResetToken is the outcome of the pure derivation step. Only Digest and
// Expiry are persisted; UserToken goes into the mail and is never stored.
type ResetToken struct {
	UserToken string
	Digest    string
	Expiry    int64
}

// NewResetToken derives a fresh single-use token: 26 random bytes hex
// encoded, a 15 minute expiry in epoch milliseconds and the HMAC-SHA256
// digest over "<random>.<expiry>".
func NewResetToken(secret string, now time.Time) (*ResetToken, error) {
	buf := make([]byte, 26)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	random := hex.EncodeToString(buf)
	expiry := now.Add(resetTokenTTL).UnixMilli()

	return &ResetToken{
		UserToken: fmt.Sprintf("%d%s%s", expiry, resetTokenDelimiter, random),
		Digest:    ResetDigest(secret, random, expiry),
		Expiry:    expiry,
	}, nil
}

// ParseResetToken splits a presented token on the delimiter and recomputes
// the digest the server expects to find stored.
func ParseResetToken(secret, token string) (digest string, expiry int64, err error) {
	expiryPart, random, found := strings.Cut(token, resetTokenDelimiter)
	if !found || random == "" {
		return "", 0, ErrMalformedResetToken
	}
	expiry, err = strconv.ParseInt(expiryPart, 10, 64)
	if err != nil {
		return "", 0, ErrMalformedResetToken
	}
	return ResetDigest(secret, random, expiry), expiry, nil
}

func ResetDigest(secret, random string, expiry int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s.%d", random, expiry)
	return hex.EncodeToString(mac.Sum(nil))
}
