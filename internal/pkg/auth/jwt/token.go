package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

const (
	// HostSessionExpiration is the lifetime of host session tokens.
	HostSessionExpiration = 12 * time.Hour

	// TokenIssuer identifies the seller backend that mints host sessions.
	TokenIssuer = "LiveShop-Server"
)

var (
	// ErrMissingHostID is returned for sessions that do not name a host.
	ErrMissingHostID = errors.New("jwt: session has no host id")

	parser = &jwt.Parser{ValidMethods: []string{jwt.SigningMethodHS256.Alg()}}
)

// GenerateToken signs a host session for payload with HS256. Sessions are
// normally minted by the seller backend; this server mints them in tests and tooling.
func GenerateToken(payload *Payload, secretKey string, duration time.Duration) (string, error) {
	if payload.ID == "" {
		return "", ErrMissingHostID
	}

	now := time.Now()
	payload.StandardClaims = jwt.StandardClaims{
		ExpiresAt: now.Add(duration).Unix(),
		IssuedAt:  now.Unix(),
		Issuer:    TokenIssuer,
		Subject:   payload.ID,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString([]byte(secretKey))
}

// ParseToken verifies an HS256 host session signed with secretKey and returns its claims.
func ParseToken(tokenString string, secretKey string) (*Payload, error) {
	claims := &Payload{}

	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("jwt: invalid or expired session")
	}

	if !claims.VerifyIssuer(TokenIssuer, true) {
		return nil, fmt.Errorf("jwt: unexpected issuer %q", claims.Issuer)
	}
	if claims.ID == "" {
		return nil, ErrMissingHostID
	}

	return claims, nil
}
