package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gingerskull/joycore-link/internal/auth"
	"github.com/gingerskull/joycore-link/internal/types"
)

type SessionRequest struct {
	AccessKey string `json:"access_key" binding:"required"`
}

type SessionResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// POST /api/v1/auth/session
func (s *Server) createSession(c *gin.Context) {
	if s.authService == nil || !s.authService.Enabled() {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Authentication is disabled",
		})
		return
	}

	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("AUTH_400", "Invalid request body", err.Error()))
		return
	}

	token, expiresAt, err := s.authService.CreateSession(req.AccessKey)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidKey) {
			c.JSON(http.StatusUnauthorized, types.NewErrorResponse("AUTH_401", "Invalid access key", nil))
			return
		}
		s.logger.Error("Session creation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("AUTH_500", "Failed to create session", err.Error()))
		return
	}

	c.JSON(http.StatusOK, SessionResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
	})
}
