package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every credential failure the relay cares about:
// malformed, badly signed or expired tokens all look the same to a caller.
var ErrInvalidToken = errors.New("invalid or expired token")

// Verifier validates an opaque credential and yields the user identity it was
// issued for. The relay treats the credential format as someone else's
// decision; this interface is the seam.
type Verifier interface {
	Verify(credential string) (string, error)
}

// HMACVerifier verifies HS256 tokens carrying the user id in the "user_id"
// claim, the format the directory service issues.
type HMACVerifier struct {
	secret []byte
}

func NewHMACVerifier(secret []byte) *HMACVerifier {
	return &HMACVerifier{secret: secret}
}

func (v *HMACVerifier) Verify(credential string) (string, error) {
	parsed, err := jwt.Parse(credential, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected alg: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", ErrInvalidToken
	}
	return userID, nil
}

// Issue signs a token for the given user id. The relay never issues tokens in
// production; this exists for tooling and tests.
func (v *HMACVerifier) Issue(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	})
	return tok.SignedString(v.secret)
}
