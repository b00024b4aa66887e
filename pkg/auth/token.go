// Package auth mints and verifies the HS256 access tokens Qdrant accepts in
// place of a static API key.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrEncoding is returned when a token cannot be signed
var ErrEncoding = errors.New("token encoding error")

// Qdrant access levels
const (
	AccessRead   = "r"
	AccessManage = "m"
	AccessWrite  = "rw"
)

// CollectionAccess grants access to a single collection
type CollectionAccess struct {
	Collection string `json:"collection"`
	Access     string `json:"access"`
}

// MintToken signs claims with secret using HMAC-SHA256. The same secret and
// claims always produce the same token.
func MintToken(secret string, claims map[string]any) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("%w: empty secret", ErrEncoding)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims(claims))
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return signed, nil
}

// ParseToken verifies the signature with secret and returns the claims
func ParseToken(secret, token string) (map[string]any, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}
	return claims, nil
}

// AccessClaims builds a Qdrant claim set. access is either a global level
// (AccessRead, AccessManage) or a []CollectionAccess list. A zero ttl leaves
// the token without expiry.
func AccessClaims(access any, ttl time.Duration, now time.Time) map[string]any {
	claims := map[string]any{
		"access": access,
	}
	if ttl > 0 {
		claims["exp"] = now.Add(ttl).Unix()
	}
	return claims
}
