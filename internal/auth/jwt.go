package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionClaims carries the custom claims of a UI session token
type SessionClaims struct {
	SessionID uuid.UUID `json:"sid"`
	jwt.RegisteredClaims
}

type JWTHandler struct {
	secretKey  []byte
	sessionTTL time.Duration
}

func NewJWTHandler(secretKey string, sessionTTL time.Duration) *JWTHandler {
	return &JWTHandler{
		secretKey:  []byte(secretKey),
		sessionTTL: sessionTTL,
	}
}

// GenerateSessionToken creates a signed token for a new UI session
func (j *JWTHandler) GenerateSessionToken() (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(j.sessionTTL)

	claims := SessionClaims{
		SessionID: uuid.New(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ui-session",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    "joycore-link",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, expiresAt, nil
}

// ValidateSessionToken validates and parses a session token
func (j *JWTHandler) ValidateSessionToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}
