package rest

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// GET /api/v1/system/status
func (s *Server) getSystemStatus(c *gin.Context) {
	status := s.lm.GetCurrentStatus()
	c.JSON(http.StatusOK, status)
}

// POST /api/v1/system/shutdown
func (s *Server) shutdown(c *gin.Context) {
	c.JSON(http.StatusAccepted, gin.H{
		"message": "Shutdown initiated",
	})

	// Trigger shutdown in background, the request context dies with the reply
	go func() {
		s.lm.Shutdown(context.Background())
	}()
}

// GET /api/v1/debug/trace
func (s *Server) getDebugTrace(c *gin.Context) {
	if !s.lm.Config().Debug.Enabled {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Debug trace is disabled",
		})
		return
	}

	c.JSON(http.StatusOK, s.lm.Diagnostics().Snapshot())
}
