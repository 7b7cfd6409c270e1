package auth

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gingerskull/joycore-link/internal/config"
)

var (
	// ErrInvalidKey is returned when the presented access key does not match
	ErrInvalidKey = errors.New("invalid access key")
	// ErrDisabled is returned when session auth is switched off in the config
	ErrDisabled = errors.New("authentication disabled")
)

// Service exchanges the configured access key for short-lived session
// tokens. The link runs on a trusted desktop by default, so the whole
// mechanism is opt-in via auth.enabled.
type Service struct {
	cfg        config.AuthConfig
	hasher     *KeyHasher
	jwtHandler *JWTHandler
	logger     *zap.Logger
}

func NewService(cfg config.AuthConfig, logger *zap.Logger) *Service {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}

	return &Service{
		cfg:        cfg,
		hasher:     NewKeyHasher(),
		jwtHandler: NewJWTHandler(cfg.GetJWTSecret(), ttl),
		logger:     logger,
	}
}

func (s *Service) Enabled() bool {
	return s.cfg.Enabled
}

// CreateSession verifies the access key and issues a session token
func (s *Service) CreateSession(accessKey string) (string, time.Time, error) {
	if !s.cfg.Enabled {
		return "", time.Time{}, ErrDisabled
	}
	if s.cfg.AccessKeyHash == "" {
		return "", time.Time{}, fmt.Errorf("auth enabled but no access key hash configured")
	}

	valid, err := s.hasher.VerifyKey(accessKey, s.cfg.AccessKeyHash)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to verify access key: %w", err)
	}
	if !valid {
		s.logger.Warn("Session request rejected, wrong access key")
		return "", time.Time{}, ErrInvalidKey
	}

	token, expiresAt, err := s.jwtHandler.GenerateSessionToken()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("UI session created", zap.Time("expires_at", expiresAt))
	return token, expiresAt, nil
}

// ValidateToken checks a session token and returns its claims
func (s *Service) ValidateToken(tokenString string) (*SessionClaims, error) {
	return s.jwtHandler.ValidateSessionToken(tokenString)
}
