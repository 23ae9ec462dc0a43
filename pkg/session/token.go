package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/dukahq/storefront-backend/pkg/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// Claims carries the guest cart-session identity inside a signed token.
type Claims struct {
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// Mint issues a signed token for a new or existing cart session. An empty
// sessionID starts a fresh session.
func Mint(cfg config.SessionConfig, now time.Time, sessionID string) (string, string, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return "", "", fmt.Errorf("session secret is required")
	}
	if strings.TrimSpace(cfg.Issuer) == "" {
		return "", "", fmt.Errorf("session issuer is required")
	}
	if cfg.TTL() <= 0 {
		return "", "", fmt.Errorf("session ttl must be positive")
	}

	id := strings.TrimSpace(sessionID)
	if id == "" {
		id = uuid.NewString()
	}

	claims := Claims{
		SessionID: id,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL())),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwtSigningMethod, claims)
	signed, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, id, nil
}

// Parse validates the token string and returns the embedded session id.
func Parse(cfg config.SessionConfig, tokenString string) (string, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return "", fmt.Errorf("session secret is required")
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
	)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(claims.SessionID) == "" {
		return "", fmt.Errorf("session token missing session id")
	}
	return claims.SessionID, nil
}
