package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/cppla/yatube/config"
)

// Claims defines the session claims carried by the cookie and bearer tokens.
type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	// Version must match the user's session_version; password changes bump it.
	Version uint `json:"ver"`
	jwt.RegisteredClaims
}

// GenerateToken issues a signed session token for the specified user and session version.
func GenerateToken(userID uint, username string, version uint, duration time.Duration) (string, error) {
	cfg := config.Get()
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		Version:  version,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// ParseToken validates a token and returns its claims. Revoked tokens are rejected.
func ParseToken(tokenStr string) (*Claims, error) {
	cfg := config.Get()
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if IsTokenBlacklisted(claims.ID) {
		return nil, errors.New("token revoked")
	}
	return claims, nil
}

// RevokeToken blacklists a still valid token, used on logout.
func RevokeToken(tokenStr string) {
	claims, err := ParseToken(tokenStr)
	if err != nil || claims.ExpiresAt == nil {
		return
	}
	BlacklistToken(claims.ID, claims.ExpiresAt.Time)
}
