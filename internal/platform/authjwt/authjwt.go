package authjwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is what a verified access token says about its bearer.
type Identity struct {
	UserID   string
	Username string
}

// Parse verifies an HS256 token. The subject is either a plain user id or an
// object {"uid": ..., "username": ...} as issued by the account service.
func Parse(secret []byte, raw string) (Identity, error) {
	if len(secret) == 0 {
		return Identity{}, fmt.Errorf("%w: no signing key configured", ErrInvalidToken)
	}
	tok, err := jwt.Parse(raw, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return Identity{}, ErrInvalidToken
	}

	var id Identity
	switch sub := claims["sub"].(type) {
	case string:
		id.UserID = sub
	case map[string]interface{}:
		id.UserID, _ = sub["uid"].(string)
		id.Username, _ = sub["username"].(string)
	}
	if id.Username == "" {
		id.Username, _ = claims["username"].(string)
	}
	id.UserID = strings.TrimSpace(id.UserID)
	if id.UserID == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return id, nil
}

// Sign issues a token in the object-subject form Parse accepts. A zero ttl
// issues a token without expiry.
func Sign(secret []byte, id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": map[string]interface{}{"uid": id.UserID, "username": id.Username},
		"iat": jwt.NewNumericDate(now),
	}
	if ttl != 0 {
		claims["exp"] = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
