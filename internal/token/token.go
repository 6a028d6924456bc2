// Package token issues and validates capability tokens. The decrypt endpoint
// demands one of these, distinct from whatever credential authorized the
// original masking call.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken covers expired, malformed, and mis-signed tokens alike so
// callers cannot distinguish why a token was refused.
var ErrInvalidToken = errors.New("invalid capability token")

// Claims binds a capability grant to one requester.
type Claims struct {
	RequesterID string `json:"requester_id"`
	Capability  string `json:"capability"`
	jwt.RegisteredClaims
}

// Service signs and validates capability tokens with an HMAC key.
type Service struct {
	signingKey []byte
	issuer     string
}

func NewService(signingKey, issuer string) *Service {
	return &Service{signingKey: []byte(signingKey), issuer: issuer}
}

// Issue mints a capability token for a requester.
func (s *Service) Issue(requesterID, capability string, ttl time.Duration) (string, error) {
	claims := Claims{
		RequesterID: requesterID,
		Capability:  capability,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign capability token: %w", err)
	}
	return signed, nil
}

// Validate parses a token and checks it grants the required capability.
func (s *Service) Validate(tokenString, requiredCapability string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.Capability != requiredCapability {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
